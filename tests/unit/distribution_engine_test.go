package unit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	contributionledger "tessera/contexts/value-attribution/contribution-ledger"
	ledgerentities "tessera/contexts/value-attribution/contribution-ledger/domain/entities"
	ledgerports "tessera/contexts/value-attribution/contribution-ledger/ports"
	ledgerhttp "tessera/contexts/value-attribution/contribution-ledger/transport/http"
	distributionengine "tessera/contexts/value-attribution/distribution-engine"
	enginerrors "tessera/contexts/value-attribution/distribution-engine/domain/errors"
	enginehttp "tessera/contexts/value-attribution/distribution-engine/transport/http"
)

func newValueAttributionStack() (contributionledger.Module, distributionengine.Module) {
	ledger := contributionledger.NewInMemoryModule(nil)
	engine := distributionengine.NewInMemoryModule(ledger.Store, 30*time.Second, nil)
	return ledger, engine
}

func mustRecord(t *testing.T, ledger contributionledger.Module, req ledgerhttp.RecordContributionRequest) ledgerhttp.ContributionEventDTO {
	t.Helper()
	event, err := ledger.Handler.RecordContributionHandler(context.Background(), req)
	if err != nil {
		t.Fatalf("record contribution failed: %v", err)
	}
	return event
}

func contributionOn(assetID string, contributorID string, cost string, score string) ledgerhttp.RecordContributionRequest {
	return ledgerhttp.RecordContributionRequest{
		ContributorID:   contributorID,
		ContributorKind: "HUMAN",
		ContributorName: "Contributor " + contributorID,
		AssetID:         assetID,
		EventType:       "MANUAL_LABOR",
		CostAmount:      cost,
		CoherenceScore:  score,
	}
}

func newAsset(t *testing.T, ledger contributionledger.Module, name string, contributorID string, cost string, score string) string {
	t.Helper()
	event := mustRecord(t, ledger, ledgerhttp.RecordContributionRequest{
		ContributorID:   contributorID,
		ContributorKind: "HUMAN",
		ContributorName: "Contributor " + contributorID,
		AssetName:       name,
		AssetVersion:    "1.0.0",
		AssetType:       "CODE",
		EventType:       "MANUAL_LABOR",
		CostAmount:      cost,
		CoherenceScore:  score,
	})
	return event.AssetID
}

func runDistribution(t *testing.T, engine distributionengine.Module, req enginehttp.RunDistributionRequest) enginehttp.DistributionDTO {
	t.Helper()
	resp, err := engine.Handler.RunDistributionHandler(context.Background(), req)
	if err != nil {
		t.Fatalf("run distribution failed: %v", err)
	}
	return resp
}

func TestDistributionCoherenceWeightedExactSum(t *testing.T) {
	ledger, engine := newValueAttributionStack()

	// alice: 500 at coherence 0.9 -> weighted 700
	// bob:   500 at coherence 0.5 -> weighted 500
	assetID := newAsset(t, ledger, "renderer", "user-alice", "500", "0.9")
	mustRecord(t, ledger, contributionOn(assetID, "user-bob", "500", "0.5"))

	resp := runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "1000",
	})

	if resp.Status != "normalized" {
		t.Fatalf("expected normalized status, got %s", resp.Status)
	}
	if resp.TotalDistributed != "1000.00" {
		t.Fatalf("expected exact-sum 1000.00, got %s", resp.TotalDistributed)
	}
	if len(resp.Payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(resp.Payouts))
	}
	if resp.Payouts[0].ContributorID != "user-alice" || resp.Payouts[0].Amount != "583.33" {
		t.Fatalf("unexpected alice payout: %+v", resp.Payouts[0])
	}
	if resp.Payouts[1].ContributorID != "user-bob" || resp.Payouts[1].Amount != "416.67" {
		t.Fatalf("unexpected bob payout: %+v", resp.Payouts[1])
	}
	if resp.Payouts[0].CoherenceMultiplier != "1.4000" {
		t.Fatalf("expected multiplier 1.4000, got %s", resp.Payouts[0].CoherenceMultiplier)
	}
}

func TestDistributionUpdatesAggregatesOnCommit(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	assetID := newAsset(t, ledger, "compiler", "user-carol", "300", "0.5")
	runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "250",
	})

	asset, err := ledger.Handler.GetAssetHandler(ctx, assetID)
	if err != nil {
		t.Fatalf("get asset failed: %v", err)
	}
	if asset.ValueGenerated != "250.00" || asset.ValueDistributed != "250.00" {
		t.Fatalf("aggregates not applied: generated=%s distributed=%s", asset.ValueGenerated, asset.ValueDistributed)
	}

	contributor, err := ledger.Handler.GetContributorHandler(ctx, "user-carol")
	if err != nil {
		t.Fatalf("get contributor failed: %v", err)
	}
	if contributor.TotalValueEarned != "250.00" {
		t.Fatalf("expected value earned 250.00, got %s", contributor.TotalValueEarned)
	}
}

func TestDistributionSystemWorkCreditsTriggeringHuman(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	if _, err := ledger.Handler.RegisterContributorHandler(ctx, ledgerhttp.RegisterContributorRequest{
		ContributorID: "user-dana",
		Kind:          "HUMAN",
		DisplayName:   "Dana",
	}); err != nil {
		t.Fatalf("register human failed: %v", err)
	}

	assetID := newAsset(t, ledger, "generated-docs", "user-dana", "100", "0.5")
	mustRecord(t, ledger, ledgerhttp.RecordContributionRequest{
		ContributorID:            "svc-generator",
		ContributorKind:          "SYSTEM",
		ContributorName:          "Doc Generator",
		AssetID:                  assetID,
		EventType:                "TOOL_EXECUTION",
		CostAmount:               "200",
		CoherenceScore:           "0.5",
		TriggeredByContributorID: "user-dana",
	})

	resp := runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "300",
	})

	if len(resp.Payouts) != 1 {
		t.Fatalf("expected single payout after re-attribution, got %d", len(resp.Payouts))
	}
	if resp.Payouts[0].ContributorID != "user-dana" || resp.Payouts[0].Amount != "300.00" {
		t.Fatalf("system work not credited to triggering human: %+v", resp.Payouts[0])
	}
}

func TestDistributionTraversesCompositionLineage(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	rootID := newAsset(t, ledger, "app", "user-root", "100", "0.5")
	depID := newAsset(t, ledger, "lib", "user-dep", "100", "0.5")
	if err := ledger.Handler.AddCompositionEdgeHandler(ctx, rootID, ledgerhttp.AddCompositionEdgeRequest{
		DependsOnAssetID: depID,
	}); err != nil {
		t.Fatalf("add edge failed: %v", err)
	}

	resp := runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     rootID,
		ValueAmount: "100",
	})

	if resp.AssetsVisited != 2 {
		t.Fatalf("expected 2 assets visited, got %d", resp.AssetsVisited)
	}
	if len(resp.Payouts) != 2 {
		t.Fatalf("expected payouts for both lineage contributors, got %d", len(resp.Payouts))
	}
	for _, payout := range resp.Payouts {
		if payout.Amount != "50.00" {
			t.Fatalf("expected even split at equal weights, got %s for %s", payout.Amount, payout.ContributorID)
		}
	}
}

func TestDistributionCycleTerminatesWithSingleVisit(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	assetA := newAsset(t, ledger, "asset-a", "user-a", "100", "0.5")
	assetB := newAsset(t, ledger, "asset-b", "user-b", "100", "0.5")
	if err := ledger.Handler.AddCompositionEdgeHandler(ctx, assetA, ledgerhttp.AddCompositionEdgeRequest{DependsOnAssetID: assetB}); err != nil {
		t.Fatalf("add edge a->b failed: %v", err)
	}
	if err := ledger.Handler.AddCompositionEdgeHandler(ctx, assetB, ledgerhttp.AddCompositionEdgeRequest{DependsOnAssetID: assetA}); err != nil {
		t.Fatalf("add edge b->a failed: %v", err)
	}

	resp := runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     assetA,
		ValueAmount: "100",
	})

	if resp.AssetsVisited != 2 {
		t.Fatalf("cycle must visit each asset once, visited %d", resp.AssetsVisited)
	}
	if resp.TotalDistributed != "100.00" {
		t.Fatalf("expected 100.00 distributed, got %s", resp.TotalDistributed)
	}
	for _, payout := range resp.Payouts {
		if payout.Amount != "50.00" {
			t.Fatalf("double counting detected: %s for %s", payout.Amount, payout.ContributorID)
		}
	}
}

func TestDistributionMaxDepthZeroRestrictsToRoot(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	rootID := newAsset(t, ledger, "shell", "user-shell", "100", "0.5")
	depID := newAsset(t, ledger, "kernel", "user-kernel", "900", "0.9")
	if err := ledger.Handler.AddCompositionEdgeHandler(ctx, rootID, ledgerhttp.AddCompositionEdgeRequest{DependsOnAssetID: depID}); err != nil {
		t.Fatalf("add edge failed: %v", err)
	}

	depth := 0
	resp := runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     rootID,
		ValueAmount: "100",
		MaxDepth:    &depth,
	})

	if resp.AssetsVisited != 1 {
		t.Fatalf("depth 0 must visit only the root, visited %d", resp.AssetsVisited)
	}
	if len(resp.Payouts) != 1 || resp.Payouts[0].ContributorID != "user-shell" {
		t.Fatalf("expected only root contributor to be paid: %+v", resp.Payouts)
	}
}

func TestDistributionUnknownDependencyIsALeaf(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	rootID := newAsset(t, ledger, "importer", "user-imp", "100", "0.5")
	if err := ledger.Handler.AddCompositionEdgeHandler(ctx, rootID, ledgerhttp.AddCompositionEdgeRequest{
		DependsOnAssetID: "asset-never-registered",
	}); err != nil {
		t.Fatalf("add dangling edge failed: %v", err)
	}

	resp := runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     rootID,
		ValueAmount: "100",
	})
	if len(resp.Payouts) != 1 || resp.Payouts[0].Amount != "100.00" {
		t.Fatalf("dangling edge must not affect payouts: %+v", resp.Payouts)
	}
}

func TestDistributionNoWeightedContributionsFails(t *testing.T) {
	ledger, engine := newValueAttributionStack()

	assetID := newAsset(t, ledger, "empty-work", "user-zero", "0", "0.8")
	_, err := engine.Handler.RunDistributionHandler(context.Background(), enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "100",
	})
	if !errors.Is(err, enginerrors.ErrNoContributionsFound) {
		t.Fatalf("expected ErrNoContributionsFound, got %v", err)
	}
}

func TestDistributionRejectsInvalidInput(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()
	assetID := newAsset(t, ledger, "target", "user-x", "100", "0.5")

	cases := []struct {
		name string
		req  enginehttp.RunDistributionRequest
		want error
	}{
		{"zero value", enginehttp.RunDistributionRequest{AssetID: assetID, ValueAmount: "0"}, enginerrors.ErrInvalidValueAmount},
		{"negative value", enginehttp.RunDistributionRequest{AssetID: assetID, ValueAmount: "-5"}, enginerrors.ErrInvalidValueAmount},
		{"sub-cent value", enginehttp.RunDistributionRequest{AssetID: assetID, ValueAmount: "10.001"}, enginerrors.ErrInvalidValueAmount},
		{"unparseable value", enginehttp.RunDistributionRequest{AssetID: assetID, ValueAmount: "ten"}, enginerrors.ErrInvalidValueAmount},
		{"unsupported method", enginehttp.RunDistributionRequest{AssetID: assetID, ValueAmount: "10", DistributionMethod: "EQUAL_SPLIT"}, enginerrors.ErrUnsupportedMethod},
		{"unknown asset", enginehttp.RunDistributionRequest{AssetID: "asset-missing", ValueAmount: "10"}, enginerrors.ErrAssetNotFound},
	}
	for _, tc := range cases {
		if _, err := engine.Handler.RunDistributionHandler(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	depth := -2
	if _, err := engine.Handler.RunDistributionHandler(ctx, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "10",
		MaxDepth:    &depth,
	}); !errors.Is(err, enginerrors.ErrInvalidMaxDepth) {
		t.Fatalf("expected ErrInvalidMaxDepth, got %v", err)
	}
}

func TestDistributionLockedAssetFailsFast(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	assetID := newAsset(t, ledger, "contended", "user-y", "100", "0.5")
	release, err := engine.Locks.Acquire(ctx, assetID)
	if err != nil {
		t.Fatalf("acquire lock failed: %v", err)
	}
	defer release()

	if _, err := engine.Handler.RunDistributionHandler(ctx, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "100",
	}); !errors.Is(err, enginerrors.ErrDistributionInProgress) {
		t.Fatalf("expected ErrDistributionInProgress, got %v", err)
	}

	release()
	if _, err := engine.Handler.RunDistributionHandler(ctx, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "100",
	}); err != nil {
		t.Fatalf("run after release failed: %v", err)
	}
}

func TestDistributionRepeatRunsAreDeterministic(t *testing.T) {
	ledger, engine := newValueAttributionStack()

	assetID := newAsset(t, ledger, "stable", "user-p", "137.41", "0.73")
	mustRecord(t, ledger, contributionOn(assetID, "user-q", "98.03", "0.41"))
	mustRecord(t, ledger, contributionOn(assetID, "user-r", "11.56", "0.99"))

	first := runDistribution(t, engine, enginehttp.RunDistributionRequest{AssetID: assetID, ValueAmount: "999.99"})
	second := runDistribution(t, engine, enginehttp.RunDistributionRequest{AssetID: assetID, ValueAmount: "999.99"})

	if len(first.Payouts) != len(second.Payouts) {
		t.Fatalf("payout count differs across runs")
	}
	for i := range first.Payouts {
		if first.Payouts[i].ContributorID != second.Payouts[i].ContributorID ||
			first.Payouts[i].Amount != second.Payouts[i].Amount {
			t.Fatalf("non-deterministic payout at %d: %+v vs %+v", i, first.Payouts[i], second.Payouts[i])
		}
	}
}

func TestDistributionRecordIsQueryableAfterCommit(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	assetID := newAsset(t, ledger, "queried", "user-z", "100", "0.5")
	created := runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "100",
		Notes:       "Q3 revenue share",
	})

	fetched, err := engine.Handler.GetDistributionHandler(ctx, created.ID)
	if err != nil {
		t.Fatalf("get distribution failed: %v", err)
	}
	if fetched.Notes != "Q3 revenue share" || fetched.Method != "COHERENCE_WEIGHTED" {
		t.Fatalf("unexpected record: %+v", fetched)
	}

	listed, err := engine.Handler.ListAssetDistributionsHandler(ctx, assetID)
	if err != nil {
		t.Fatalf("list distributions failed: %v", err)
	}
	if len(listed.Items) != 1 || listed.Items[0].ID != created.ID {
		t.Fatalf("expected the committed run in the asset listing: %+v", listed.Items)
	}
}

// flakyContributorLedger injects transient GetContributor failures, leaving
// every other repository call untouched.
type flakyContributorLedger struct {
	ledgerports.Repository
	mu       sync.Mutex
	failures map[string]int
}

func (f *flakyContributorLedger) GetContributor(ctx context.Context, contributorID string) (ledgerentities.Contributor, error) {
	f.mu.Lock()
	if f.failures[contributorID] > 0 {
		f.failures[contributorID]--
		f.mu.Unlock()
		return ledgerentities.Contributor{}, errors.New("read contributor: connection reset by peer")
	}
	f.mu.Unlock()
	return f.Repository.GetContributor(ctx, contributorID)
}

func TestDistributionAbortsWhenContributorLookupFails(t *testing.T) {
	ledger := contributionledger.NewInMemoryModule(nil)
	flaky := &flakyContributorLedger{Repository: ledger.Store, failures: map[string]int{}}
	engine := distributionengine.NewInMemoryModule(flaky, 30*time.Second, nil)
	ctx := context.Background()

	if _, err := ledger.Handler.RegisterContributorHandler(ctx, ledgerhttp.RegisterContributorRequest{
		ContributorID: "user-human",
		Kind:          "HUMAN",
		DisplayName:   "Human",
	}); err != nil {
		t.Fatalf("register human failed: %v", err)
	}
	assetID := newAsset(t, ledger, "flaky-target", "user-human", "100", "0.5")
	mustRecord(t, ledger, ledgerhttp.RecordContributionRequest{
		ContributorID:            "svc-bot",
		ContributorKind:          "SYSTEM",
		ContributorName:          "Bot",
		AssetID:                  assetID,
		EventType:                "TOOL_EXECUTION",
		CostAmount:               "900",
		CoherenceScore:           "0.5",
		TriggeredByContributorID: "user-human",
	})

	// One transient failure on the SYSTEM contributor's kind lookup must
	// abort the run, not fall back to crediting svc-bot directly.
	flaky.failures["svc-bot"] = 1
	if _, err := engine.Handler.RunDistributionHandler(ctx, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "1000",
	}); err == nil {
		t.Fatalf("expected run to abort on contributor lookup failure")
	}

	listed, err := engine.Handler.ListAssetDistributionsHandler(ctx, assetID)
	if err != nil {
		t.Fatalf("list distributions failed: %v", err)
	}
	if len(listed.Items) != 0 {
		t.Fatalf("aborted run must not be persisted: %+v", listed.Items)
	}
	human, err := ledger.Handler.GetContributorHandler(ctx, "user-human")
	if err != nil {
		t.Fatalf("get contributor failed: %v", err)
	}
	if human.TotalValueEarned != "0.00" {
		t.Fatalf("aborted run mutated aggregates: earned %s", human.TotalValueEarned)
	}

	// With the ledger healthy again the retry re-attributes everything to
	// the triggering human.
	resp := runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "1000",
	})
	if len(resp.Payouts) != 1 || resp.Payouts[0].ContributorID != "user-human" || resp.Payouts[0].Amount != "1000.00" {
		t.Fatalf("retry did not re-attribute system work: %+v", resp.Payouts)
	}
}

func TestDistributionTraversesEventDeclaredComposition(t *testing.T) {
	ledger, engine := newValueAttributionStack()

	rootID := newAsset(t, ledger, "bundle", "user-asm", "100", "0.5")
	depID := newAsset(t, ledger, "component", "user-part", "100", "0.5")
	mustRecord(t, ledger, ledgerhttp.RecordContributionRequest{
		ContributorID:   "user-asm",
		ContributorKind: "HUMAN",
		AssetID:         rootID,
		EventType:       "ASSET_COMPOSITION",
		CostAmount:      "0",
		CoherenceScore:  "0.5",
		ComposedAssetID: depID,
	})

	resp := runDistribution(t, engine, enginehttp.RunDistributionRequest{
		AssetID:     rootID,
		ValueAmount: "100",
	})

	if resp.AssetsVisited != 2 {
		t.Fatalf("event-declared edge not traversed, visited %d", resp.AssetsVisited)
	}
	if len(resp.Payouts) != 2 {
		t.Fatalf("expected payouts for both lineage contributors, got %+v", resp.Payouts)
	}
	for _, payout := range resp.Payouts {
		if payout.Amount != "50.00" {
			t.Fatalf("expected even split at equal weights, got %s for %s", payout.Amount, payout.ContributorID)
		}
	}
}

func TestDistributionCancelledContextCommitsNothing(t *testing.T) {
	ledger, engine := newValueAttributionStack()

	assetID := newAsset(t, ledger, "interrupted", "user-c", "100", "0.5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Handler.RunDistributionHandler(ctx, enginehttp.RunDistributionRequest{
		AssetID:     assetID,
		ValueAmount: "100",
	}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	listed, err := engine.Handler.ListAssetDistributionsHandler(context.Background(), assetID)
	if err != nil {
		t.Fatalf("list distributions failed: %v", err)
	}
	if len(listed.Items) != 0 {
		t.Fatalf("cancelled run must not be persisted: %+v", listed.Items)
	}
	contributor, err := ledger.Handler.GetContributorHandler(context.Background(), "user-c")
	if err != nil {
		t.Fatalf("get contributor failed: %v", err)
	}
	if contributor.TotalValueEarned != "0.00" {
		t.Fatalf("cancelled run mutated aggregates: earned %s", contributor.TotalValueEarned)
	}
}

func TestDistributionEmitsCompletedOutboxEvent(t *testing.T) {
	ledger, engine := newValueAttributionStack()
	ctx := context.Background()

	assetID := newAsset(t, ledger, "observable", "user-o", "100", "0.5")
	created := runDistribution(t, engine, enginehttp.RunDistributionRequest{AssetID: assetID, ValueAmount: "100"})

	pending, err := engine.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "distribution.completed" {
		t.Fatalf("expected one distribution.completed message, got %+v", pending)
	}

	var envelope map[string]any
	if err := json.Unmarshal(pending[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if source, _ := envelope["source_service"].(string); source != "distribution-engine" {
		t.Fatalf("unexpected source_service %s", source)
	}

	var payload map[string]any
	raw, _ := json.Marshal(envelope["payload"])
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["distribution_id"] != created.ID {
		t.Fatalf("payload distribution id mismatch: %v", payload["distribution_id"])
	}
}
