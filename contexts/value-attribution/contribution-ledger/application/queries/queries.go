package queries

import (
	"context"
	"log/slog"
	"strings"

	application "tessera/contexts/value-attribution/contribution-ledger/application"
	"tessera/contexts/value-attribution/contribution-ledger/domain/entities"
	"tessera/contexts/value-attribution/contribution-ledger/ports"
)

type UseCase struct {
	Repository ports.Repository
	Logger     *slog.Logger
}

func (uc UseCase) GetContributor(ctx context.Context, contributorID string) (entities.Contributor, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalizedID := strings.TrimSpace(contributorID)
	contributor, err := uc.Repository.GetContributor(ctx, normalizedID)
	if err != nil {
		logger.Warn("ledger query get contributor failed",
			"event", "ledger_query_get_contributor_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"contributor_id", normalizedID,
			"error", err.Error(),
		)
		return entities.Contributor{}, err
	}
	return contributor, nil
}

func (uc UseCase) GetAsset(ctx context.Context, assetID string) (entities.Asset, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalizedID := strings.TrimSpace(assetID)
	asset, err := uc.Repository.GetAsset(ctx, normalizedID)
	if err != nil {
		logger.Warn("ledger query get asset failed",
			"event", "ledger_query_get_asset_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"asset_id", normalizedID,
			"error", err.Error(),
		)
		return entities.Asset{}, err
	}
	return asset, nil
}

// ListAssetEvents returns the asset's ledger entries in sequence order.
func (uc UseCase) ListAssetEvents(ctx context.Context, assetID string) ([]entities.ContributionEvent, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalizedID := strings.TrimSpace(assetID)
	if _, err := uc.Repository.GetAsset(ctx, normalizedID); err != nil {
		return nil, err
	}
	items, err := uc.Repository.ListEventsByAsset(ctx, normalizedID)
	if err != nil {
		logger.Warn("ledger query list asset events failed",
			"event", "ledger_query_list_asset_events_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"asset_id", normalizedID,
			"error", err.Error(),
		)
		return nil, err
	}
	return items, nil
}

func (uc UseCase) ListContributorEvents(ctx context.Context, contributorID string, limit int) ([]entities.ContributionEvent, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalizedID := strings.TrimSpace(contributorID)
	if limit <= 0 {
		limit = 50
	}
	items, err := uc.Repository.ListEventsByContributor(ctx, normalizedID, limit)
	if err != nil {
		logger.Warn("ledger query list contributor events failed",
			"event", "ledger_query_list_contributor_events_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "application",
			"contributor_id", normalizedID,
			"error", err.Error(),
		)
		return nil, err
	}
	return items, nil
}
