package unit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	contributionledger "tessera/contexts/value-attribution/contribution-ledger"
	"tessera/contexts/value-attribution/contribution-ledger/domain/coherence"
	ledgererrors "tessera/contexts/value-attribution/contribution-ledger/domain/errors"
	ledgerhttp "tessera/contexts/value-attribution/contribution-ledger/transport/http"
)

func recordRequest(contributorID string, assetName string) ledgerhttp.RecordContributionRequest {
	return ledgerhttp.RecordContributionRequest{
		ContributorID:   contributorID,
		ContributorKind: "HUMAN",
		ContributorName: "Test Contributor",
		AssetName:       assetName,
		AssetVersion:    "1.0.0",
		AssetType:       "CODE",
		EventType:       "MANUAL_LABOR",
		CostAmount:      "125.50",
		CoherenceScore:  "0.8",
	}
}

func TestLedgerRecordContributionCreatesAssetAndContributor(t *testing.T) {
	module := contributionledger.NewInMemoryModule(nil)
	ctx := context.Background()

	event, err := module.Handler.RecordContributionHandler(ctx, recordRequest("user-1", "parser"))
	if err != nil {
		t.Fatalf("record contribution failed: %v", err)
	}
	if event.Sequence != 1 {
		t.Fatalf("expected sequence 1 for first event, got %d", event.Sequence)
	}
	if event.AssetID == "" {
		t.Fatalf("expected asset to be created on first touch")
	}

	contributor, err := module.Handler.GetContributorHandler(ctx, "user-1")
	if err != nil {
		t.Fatalf("get contributor failed: %v", err)
	}
	if contributor.TotalCostContributed != "125.50" {
		t.Fatalf("expected total cost 125.50, got %s", contributor.TotalCostContributed)
	}
	if contributor.TotalValueEarned != "0.00" {
		t.Fatalf("value earned must not move on ingestion, got %s", contributor.TotalValueEarned)
	}

	asset, err := module.Handler.GetAssetHandler(ctx, event.AssetID)
	if err != nil {
		t.Fatalf("get asset failed: %v", err)
	}
	if asset.Status != "ACTIVE" {
		t.Fatalf("expected ACTIVE asset, got %s", asset.Status)
	}
	if asset.CreationCost != "125.50" {
		t.Fatalf("expected creation cost 125.50, got %s", asset.CreationCost)
	}
}

func TestLedgerSequenceIsMonotonicPerAsset(t *testing.T) {
	module := contributionledger.NewInMemoryModule(nil)
	ctx := context.Background()

	first, err := module.Handler.RecordContributionHandler(ctx, recordRequest("user-seq", "pipeline"))
	if err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	req := recordRequest("user-seq", "pipeline")
	req.AssetID = first.AssetID
	second, err := module.Handler.RecordContributionHandler(ctx, req)
	if err != nil {
		t.Fatalf("second record failed: %v", err)
	}
	if first.Sequence != 1 || second.Sequence != 2 {
		t.Fatalf("expected sequences 1 and 2, got %d and %d", first.Sequence, second.Sequence)
	}

	events, err := module.Handler.ListAssetEventsHandler(ctx, first.AssetID)
	if err != nil {
		t.Fatalf("list asset events failed: %v", err)
	}
	if len(events.Items) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events.Items))
	}
	if events.Items[0].Sequence >= events.Items[1].Sequence {
		t.Fatalf("events not in sequence order")
	}
}

func TestLedgerInvalidEventTypeRejected(t *testing.T) {
	module := contributionledger.NewInMemoryModule(nil)

	req := recordRequest("user-2", "widget")
	req.EventType = "GIFTED"
	if _, err := module.Handler.RecordContributionHandler(context.Background(), req); !errors.Is(err, ledgererrors.ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}
}

func TestLedgerCoherenceOutOfRangeRejected(t *testing.T) {
	module := contributionledger.NewInMemoryModule(nil)

	req := recordRequest("user-3", "widget")
	req.CoherenceScore = "1.2"
	if _, err := module.Handler.RecordContributionHandler(context.Background(), req); !errors.Is(err, coherence.ErrScoreOutOfRange) {
		t.Fatalf("expected ErrScoreOutOfRange, got %v", err)
	}
}

func TestLedgerCoherenceComponentsComposite(t *testing.T) {
	module := contributionledger.NewInMemoryModule(nil)

	req := recordRequest("user-4", "model-train")
	req.CoherenceScore = ""
	req.CoherenceComponents = map[string]string{
		"quality":       "1",
		"architecture":  "0",
		"value_add":     "0",
		"test_coverage": "1",
		"documentation": "0",
		"network":       "0",
		"novelty":       "0",
	}
	event, err := module.Handler.RecordContributionHandler(context.Background(), req)
	if err != nil {
		t.Fatalf("record with components failed: %v", err)
	}
	if event.CoherenceScore != "0.35" {
		t.Fatalf("expected composite 0.35, got %s", event.CoherenceScore)
	}
}

func TestLedgerTriggerOnHumanContributorRejected(t *testing.T) {
	module := contributionledger.NewInMemoryModule(nil)

	req := recordRequest("user-5", "widget")
	req.TriggeredByContributorID = "user-1"
	if _, err := module.Handler.RecordContributionHandler(context.Background(), req); !errors.Is(err, ledgererrors.ErrTriggerRequiresSystem) {
		t.Fatalf("expected ErrTriggerRequiresSystem, got %v", err)
	}
}

func TestLedgerArchivedAssetRejectsNewEvents(t *testing.T) {
	module := contributionledger.NewInMemoryModule(nil)
	ctx := context.Background()

	event, err := module.Handler.RecordContributionHandler(ctx, recordRequest("user-6", "legacy"))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := module.Handler.ArchiveAssetHandler(ctx, event.AssetID); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	req := recordRequest("user-6", "legacy")
	req.AssetID = event.AssetID
	if _, err := module.Handler.RecordContributionHandler(ctx, req); !errors.Is(err, ledgererrors.ErrAssetArchived) {
		t.Fatalf("expected ErrAssetArchived, got %v", err)
	}
}

func TestLedgerCompositionEdgeDeclaredAndDeduplicated(t *testing.T) {
	module := contributionledger.NewInMemoryModule(nil)
	ctx := context.Background()

	parent, err := module.Handler.RecordContributionHandler(ctx, recordRequest("user-7", "app"))
	if err != nil {
		t.Fatalf("record parent failed: %v", err)
	}
	child, err := module.Handler.RecordContributionHandler(ctx, recordRequest("user-7", "lib"))
	if err != nil {
		t.Fatalf("record child failed: %v", err)
	}

	edge := ledgerhttp.AddCompositionEdgeRequest{DependsOnAssetID: child.AssetID}
	if err := module.Handler.AddCompositionEdgeHandler(ctx, parent.AssetID, edge); err != nil {
		t.Fatalf("add edge failed: %v", err)
	}
	if err := module.Handler.AddCompositionEdgeHandler(ctx, parent.AssetID, edge); err != nil {
		t.Fatalf("duplicate edge must be a no-op: %v", err)
	}

	asset, err := module.Handler.GetAssetHandler(ctx, parent.AssetID)
	if err != nil {
		t.Fatalf("get asset failed: %v", err)
	}
	if len(asset.ComposedAssetIDs) != 1 || asset.ComposedAssetIDs[0] != child.AssetID {
		t.Fatalf("expected single edge to %s, got %v", child.AssetID, asset.ComposedAssetIDs)
	}
}

func TestLedgerRecordContributionEmitsOutboxEvent(t *testing.T) {
	module := contributionledger.NewInMemoryModule(nil)
	ctx := context.Background()

	event, err := module.Handler.RecordContributionHandler(ctx, recordRequest("user-8", "tool"))
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	pending, err := module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one outbox message, got %d", len(pending))
	}
	if pending[0].EventType != "ledger.contribution.recorded" {
		t.Fatalf("unexpected event type %s", pending[0].EventType)
	}

	var envelope map[string]any
	if err := json.Unmarshal(pending[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if source, _ := envelope["source_service"].(string); source != "contribution-ledger" {
		t.Fatalf("unexpected source_service %s", source)
	}
	if partitionKey, _ := envelope["partition_key"].(string); partitionKey != event.AssetID {
		t.Fatalf("partition key should be asset id, got %s", partitionKey)
	}
}
