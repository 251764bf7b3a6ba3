package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	application "tessera/contexts/value-attribution/contribution-ledger/application"
	"tessera/contexts/value-attribution/contribution-ledger/domain/coherence"
	"tessera/contexts/value-attribution/contribution-ledger/domain/entities"
	domainerrors "tessera/contexts/value-attribution/contribution-ledger/domain/errors"
	"tessera/contexts/value-attribution/contribution-ledger/ports"
	"tessera/internal/shared/events"
)

type RegisterContributorCommand struct {
	ContributorID string
	Kind          entities.ContributorKind
	DisplayName   string
}

type RecordContributionCommand struct {
	EventID       string
	ContributorID string
	// ContributorKind and ContributorName allow first-touch creation: a
	// contributor record is created on first contribution, never deleted.
	ContributorKind entities.ContributorKind
	ContributorName string

	AssetID      string
	AssetName    string
	AssetVersion string
	AssetType    entities.AssetType
	Fingerprint  string

	EventType  entities.EventType
	CostAmount decimal.Decimal
	// Exactly one of CoherenceScore / CoherenceComponents must be supplied.
	CoherenceScore      *decimal.Decimal
	CoherenceComponents map[string]decimal.Decimal

	TriggeredByContributorID string
	ComposedAssetID          string
	Metadata                 map[string]any
}

type AddCompositionEdgeCommand struct {
	AssetID          string
	DependsOnAssetID string
}

type ArchiveAssetCommand struct {
	AssetID string
}

type UseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Outbox     ports.OutboxWriter
	Logger     *slog.Logger
}

func (uc UseCase) RegisterContributor(ctx context.Context, cmd RegisterContributorCommand) (entities.Contributor, error) {
	logger := application.ResolveLogger(uc.Logger)
	displayName := strings.TrimSpace(cmd.DisplayName)
	if displayName == "" || !entities.IsValidContributorKind(cmd.Kind) {
		logger.Warn("ledger register contributor invalid input",
			"event", "ledger_register_contributor_invalid_input",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"contributor_id", strings.TrimSpace(cmd.ContributorID),
			"kind", string(cmd.Kind),
		)
		return entities.Contributor{}, domainerrors.ErrInvalidContributionInput
	}
	contributorID := strings.TrimSpace(cmd.ContributorID)
	if contributorID == "" {
		var err error
		contributorID, err = uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Contributor{}, err
		}
	}
	now := uc.now()
	contributor := entities.Contributor{
		ID:                   contributorID,
		Kind:                 cmd.Kind,
		DisplayName:          displayName,
		TotalCostContributed: decimal.Zero,
		TotalValueEarned:     decimal.Zero,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := uc.Repository.CreateContributor(ctx, contributor); err != nil {
		if errors.Is(err, domainerrors.ErrContributorExists) {
			return uc.Repository.GetContributor(ctx, contributorID)
		}
		logger.Error("ledger register contributor create failed",
			"event", "ledger_register_contributor_create_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"contributor_id", contributorID,
			"error", err.Error(),
		)
		return entities.Contributor{}, err
	}
	logger.Info("ledger contributor registered",
		"event", "ledger_contributor_registered",
		"module", "value-attribution/contribution-ledger",
		"layer", "application",
		"contributor_id", contributorID,
		"kind", string(cmd.Kind),
	)
	return contributor, nil
}

// RecordContribution appends one immutable event to the ledger. The asset is
// created on its first event; contributor and asset running costs move here,
// value totals move only when a distribution commits.
func (uc UseCase) RecordContribution(ctx context.Context, cmd RecordContributionCommand) (entities.ContributionEvent, error) {
	logger := application.ResolveLogger(uc.Logger)

	if !entities.IsValidEventType(cmd.EventType) {
		logger.Warn("ledger record contribution invalid event type",
			"event", "ledger_record_contribution_invalid_event_type",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"event_type", string(cmd.EventType),
		)
		return entities.ContributionEvent{}, domainerrors.ErrInvalidEventType
	}
	if cmd.CostAmount.IsNegative() {
		logger.Warn("ledger record contribution negative cost",
			"event", "ledger_record_contribution_negative_cost",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"contributor_id", strings.TrimSpace(cmd.ContributorID),
			"cost_amount", cmd.CostAmount.String(),
		)
		return entities.ContributionEvent{}, domainerrors.ErrInvalidContributionInput
	}

	score, err := uc.resolveCoherence(cmd)
	if err != nil {
		logger.Warn("ledger record contribution coherence rejected",
			"event", "ledger_record_contribution_coherence_rejected",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"contributor_id", strings.TrimSpace(cmd.ContributorID),
			"error", err.Error(),
		)
		return entities.ContributionEvent{}, err
	}

	contributor, err := uc.resolveContributor(ctx, cmd)
	if err != nil {
		return entities.ContributionEvent{}, err
	}

	trigger := strings.TrimSpace(cmd.TriggeredByContributorID)
	if trigger != "" && contributor.Kind != entities.ContributorKindSystem {
		logger.Warn("ledger record contribution trigger on human contributor",
			"event", "ledger_record_contribution_trigger_rejected",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"contributor_id", contributor.ID,
			"triggered_by", trigger,
		)
		return entities.ContributionEvent{}, domainerrors.ErrTriggerRequiresSystem
	}

	composedAssetID := strings.TrimSpace(cmd.ComposedAssetID)
	if cmd.EventType == entities.EventTypeAssetComposition && composedAssetID == "" {
		return entities.ContributionEvent{}, domainerrors.ErrCompositionTargetMissing
	}
	if cmd.EventType != entities.EventTypeAssetComposition {
		composedAssetID = ""
	}

	asset, err := uc.resolveAsset(ctx, cmd)
	if err != nil {
		return entities.ContributionEvent{}, err
	}
	if asset.Status == entities.AssetStatusArchived {
		logger.Warn("ledger record contribution asset archived",
			"event", "ledger_record_contribution_asset_archived",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"asset_id", asset.ID,
		)
		return entities.ContributionEvent{}, domainerrors.ErrAssetArchived
	}

	eventID := strings.TrimSpace(cmd.EventID)
	if eventID == "" {
		eventID, err = uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.ContributionEvent{}, err
		}
	}
	sequence, err := uc.Repository.NextSequence(ctx, asset.ID)
	if err != nil {
		logger.Error("ledger record contribution sequence allocation failed",
			"event", "ledger_record_contribution_sequence_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"asset_id", asset.ID,
			"error", err.Error(),
		)
		return entities.ContributionEvent{}, err
	}

	now := uc.now()
	ledgerEvent := entities.ContributionEvent{
		ID:                       eventID,
		ContributorID:            contributor.ID,
		AssetID:                  asset.ID,
		EventType:                cmd.EventType,
		CostAmount:               cmd.CostAmount,
		CoherenceScore:           score,
		TriggeredByContributorID: trigger,
		ComposedAssetID:          composedAssetID,
		Sequence:                 sequence,
		Metadata:                 cmd.Metadata,
		RecordedAt:               now,
	}
	if err := uc.Repository.AppendEvent(ctx, ledgerEvent); err != nil {
		logger.Error("ledger record contribution append failed",
			"event", "ledger_record_contribution_append_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"asset_id", asset.ID,
			"contributor_id", contributor.ID,
			"error", err.Error(),
		)
		return entities.ContributionEvent{}, err
	}

	contributor.TotalCostContributed = contributor.TotalCostContributed.Add(cmd.CostAmount)
	contributor.UpdatedAt = now
	if err := uc.Repository.UpdateContributor(ctx, contributor); err != nil {
		return entities.ContributionEvent{}, err
	}
	asset.CreationCost = asset.CreationCost.Add(cmd.CostAmount)
	asset.UpdatedAt = now
	if err := uc.Repository.UpdateAsset(ctx, asset); err != nil {
		return entities.ContributionEvent{}, err
	}

	if err := uc.appendOutbox(ctx, "ledger.contribution.recorded", asset.ID, map[string]any{
		"event_id":       ledgerEvent.ID,
		"asset_id":       asset.ID,
		"contributor_id": contributor.ID,
		"event_type":     string(ledgerEvent.EventType),
		"cost_amount":    ledgerEvent.CostAmount.String(),
		"sequence":       ledgerEvent.Sequence,
	}); err != nil {
		return entities.ContributionEvent{}, err
	}

	logger.Info("ledger contribution recorded",
		"event", "ledger_contribution_recorded",
		"module", "value-attribution/contribution-ledger",
		"layer", "application",
		"event_id", ledgerEvent.ID,
		"asset_id", asset.ID,
		"contributor_id", contributor.ID,
		"event_type", string(ledgerEvent.EventType),
		"sequence", ledgerEvent.Sequence,
	)
	return ledgerEvent, nil
}

func (uc UseCase) AddCompositionEdge(ctx context.Context, cmd AddCompositionEdgeCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	assetID := strings.TrimSpace(cmd.AssetID)
	dependsOn := strings.TrimSpace(cmd.DependsOnAssetID)
	if assetID == "" || dependsOn == "" || assetID == dependsOn {
		return domainerrors.ErrInvalidContributionInput
	}
	asset, err := uc.Repository.GetAsset(ctx, assetID)
	if err != nil {
		logger.Warn("ledger add composition edge asset lookup failed",
			"event", "ledger_add_composition_edge_lookup_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"asset_id", assetID,
			"error", err.Error(),
		)
		return err
	}
	for _, existing := range asset.ComposedAssetIDs {
		if existing == dependsOn {
			return nil
		}
	}
	asset.ComposedAssetIDs = append(asset.ComposedAssetIDs, dependsOn)
	asset.UpdatedAt = uc.now()
	if err := uc.Repository.UpdateAsset(ctx, asset); err != nil {
		return err
	}
	logger.Info("ledger composition edge added",
		"event", "ledger_composition_edge_added",
		"module", "value-attribution/contribution-ledger",
		"layer", "application",
		"asset_id", assetID,
		"depends_on_asset_id", dependsOn,
	)
	return nil
}

func (uc UseCase) ArchiveAsset(ctx context.Context, cmd ArchiveAssetCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	asset, err := uc.Repository.GetAsset(ctx, strings.TrimSpace(cmd.AssetID))
	if err != nil {
		return err
	}
	if asset.Status == entities.AssetStatusArchived {
		return nil
	}
	asset.Status = entities.AssetStatusArchived
	asset.UpdatedAt = uc.now()
	if err := uc.Repository.UpdateAsset(ctx, asset); err != nil {
		return err
	}
	logger.Info("ledger asset archived",
		"event", "ledger_asset_archived",
		"module", "value-attribution/contribution-ledger",
		"layer", "application",
		"asset_id", asset.ID,
	)
	return nil
}

func (uc UseCase) resolveCoherence(cmd RecordContributionCommand) (decimal.Decimal, error) {
	if len(cmd.CoherenceComponents) > 0 {
		return coherence.Compute(cmd.CoherenceComponents)
	}
	if cmd.CoherenceScore == nil {
		return decimal.Zero, domainerrors.ErrInvalidContributionInput
	}
	if !coherence.InRange(*cmd.CoherenceScore) {
		return decimal.Zero, coherence.ErrScoreOutOfRange
	}
	return *cmd.CoherenceScore, nil
}

func (uc UseCase) resolveContributor(ctx context.Context, cmd RecordContributionCommand) (entities.Contributor, error) {
	logger := application.ResolveLogger(uc.Logger)
	contributorID := strings.TrimSpace(cmd.ContributorID)
	if contributorID != "" {
		contributor, err := uc.Repository.GetContributor(ctx, contributorID)
		if err == nil {
			return contributor, nil
		}
		if !errors.Is(err, domainerrors.ErrContributorNotFound) {
			return entities.Contributor{}, err
		}
	}
	// First contribution creates the contributor when identity details are
	// supplied with the event.
	if strings.TrimSpace(cmd.ContributorName) == "" || !entities.IsValidContributorKind(cmd.ContributorKind) {
		logger.Warn("ledger record contribution unknown contributor",
			"event", "ledger_record_contribution_unknown_contributor",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"contributor_id", contributorID,
		)
		return entities.Contributor{}, domainerrors.ErrContributorNotFound
	}
	return uc.RegisterContributor(ctx, RegisterContributorCommand{
		ContributorID: contributorID,
		Kind:          cmd.ContributorKind,
		DisplayName:   cmd.ContributorName,
	})
}

func (uc UseCase) resolveAsset(ctx context.Context, cmd RecordContributionCommand) (entities.Asset, error) {
	logger := application.ResolveLogger(uc.Logger)
	assetID := strings.TrimSpace(cmd.AssetID)
	if assetID != "" {
		asset, err := uc.Repository.GetAsset(ctx, assetID)
		if err == nil {
			return asset, nil
		}
		if !errors.Is(err, domainerrors.ErrAssetNotFound) {
			return entities.Asset{}, err
		}
	}
	name := strings.TrimSpace(cmd.AssetName)
	version := strings.TrimSpace(cmd.AssetVersion)
	if name != "" && version != "" {
		asset, err := uc.Repository.FindAssetByNameVersion(ctx, name, version)
		if err == nil {
			return asset, nil
		}
		if !errors.Is(err, domainerrors.ErrAssetNotFound) {
			return entities.Asset{}, err
		}
	}
	if name == "" || version == "" || !entities.IsValidAssetType(cmd.AssetType) {
		logger.Warn("ledger record contribution unknown asset",
			"event", "ledger_record_contribution_unknown_asset",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"asset_id", assetID,
			"asset_name", name,
			"asset_version", version,
		)
		return entities.Asset{}, domainerrors.ErrAssetNotFound
	}
	if assetID == "" {
		var err error
		assetID, err = uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Asset{}, err
		}
	}
	now := uc.now()
	asset := entities.Asset{
		ID:               assetID,
		Type:             cmd.AssetType,
		Name:             name,
		Version:          version,
		Fingerprint:      strings.TrimSpace(cmd.Fingerprint),
		Status:           entities.AssetStatusActive,
		CreationCost:     decimal.Zero,
		ValueGenerated:   decimal.Zero,
		ValueDistributed: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.Repository.CreateAsset(ctx, asset); err != nil {
		if errors.Is(err, domainerrors.ErrAssetExists) {
			return uc.Repository.FindAssetByNameVersion(ctx, name, version)
		}
		return entities.Asset{}, err
	}
	logger.Info("ledger asset created",
		"event", "ledger_asset_created",
		"module", "value-attribution/contribution-ledger",
		"layer", "application",
		"asset_id", asset.ID,
		"asset_name", name,
		"asset_version", version,
		"asset_type", string(cmd.AssetType),
	)
	return asset, nil
}

func (uc UseCase) appendOutbox(ctx context.Context, eventType string, partitionKey string, data map[string]any) error {
	logger := application.ResolveLogger(uc.Logger)
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := uc.Outbox.AppendOutbox(ctx, events.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		SourceService: "contribution-ledger",
		OccurredAtUTC: uc.now(),
		CorrelationID: eventID,
		PartitionKey:  partitionKey,
		SchemaVersion: 1,
		Payload:       payload,
	}); err != nil {
		logger.Error("ledger outbox append failed",
			"event", "ledger_outbox_append_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"event_type", eventType,
			"partition_key", partitionKey,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
