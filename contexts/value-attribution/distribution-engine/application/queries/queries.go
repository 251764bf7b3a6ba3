package queries

import (
	"context"
	"log/slog"
	"strings"

	application "tessera/contexts/value-attribution/distribution-engine/application"
	"tessera/contexts/value-attribution/distribution-engine/domain/entities"
	domainerrors "tessera/contexts/value-attribution/distribution-engine/domain/errors"
	"tessera/contexts/value-attribution/distribution-engine/ports"
)

type UseCase struct {
	Repository ports.Repository
	Logger     *slog.Logger
}

func (uc UseCase) GetDistribution(ctx context.Context, distributionID string) (entities.Distribution, error) {
	logger := application.ResolveLogger(uc.Logger)
	distributionID = strings.TrimSpace(distributionID)
	if distributionID == "" {
		return entities.Distribution{}, domainerrors.ErrInvalidDistributionInput
	}
	distribution, err := uc.Repository.GetDistribution(ctx, distributionID)
	if err != nil {
		logger.Warn("distribution lookup failed",
			"event", "distribution_lookup_failed",
			"module", "value-attribution/distribution-engine",
			"layer", "application",
			"distribution_id", distributionID,
			"error", err.Error(),
		)
		return entities.Distribution{}, err
	}
	return distribution, nil
}

func (uc UseCase) ListAssetDistributions(ctx context.Context, assetID string) ([]entities.Distribution, error) {
	assetID = strings.TrimSpace(assetID)
	if assetID == "" {
		return nil, domainerrors.ErrInvalidDistributionInput
	}
	return uc.Repository.ListDistributionsByAsset(ctx, assetID)
}
