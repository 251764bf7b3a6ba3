package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	application "tessera/contexts/value-attribution/distribution-engine/application"
	"tessera/contexts/value-attribution/distribution-engine/application/commands"
	"tessera/contexts/value-attribution/distribution-engine/application/queries"
	"tessera/contexts/value-attribution/distribution-engine/domain/entities"
	domainerrors "tessera/contexts/value-attribution/distribution-engine/domain/errors"
	httptransport "tessera/contexts/value-attribution/distribution-engine/transport/http"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

// RunDistributionHandler godoc
// @Summary Run a coherence-weighted distribution
// @Description Traverses the asset lineage, weights contributions by cost and coherence, and commits an exact-sum payout set.
// @Tags distribution-engine
// @Accept json
// @Produce json
// @Param request body httptransport.RunDistributionRequest true "Distribution run"
// @Success 200 {object} httptransport.DistributionDTO
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /v1/distributions [post]
func (h Handler) RunDistributionHandler(ctx context.Context, req httptransport.RunDistributionRequest) (httptransport.DistributionDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	cmd, err := runCommandFromRequest(req)
	if err != nil {
		logger.Warn("distribution http run parse failed",
			"event", "distribution_http_run_parse_failed",
			"module", "value-attribution/distribution-engine",
			"layer", "adapter",
			"asset_id", strings.TrimSpace(req.AssetID),
			"error", err.Error(),
		)
		return httptransport.DistributionDTO{}, err
	}
	distribution, err := h.Commands.RunDistribution(ctx, cmd)
	if err != nil {
		logger.Warn("distribution http run failed",
			"event", "distribution_http_run_failed",
			"module", "value-attribution/distribution-engine",
			"layer", "adapter",
			"asset_id", strings.TrimSpace(req.AssetID),
			"error", err.Error(),
		)
		return httptransport.DistributionDTO{}, err
	}
	return mapDistribution(distribution), nil
}

// GetDistributionHandler godoc
// @Summary Get distribution
// @Tags distribution-engine
// @Produce json
// @Param distribution_id path string true "Distribution id"
// @Success 200 {object} httptransport.DistributionDTO
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/distributions/{distribution_id} [get]
func (h Handler) GetDistributionHandler(ctx context.Context, distributionID string) (httptransport.DistributionDTO, error) {
	distribution, err := h.Queries.GetDistribution(ctx, distributionID)
	if err != nil {
		return httptransport.DistributionDTO{}, err
	}
	return mapDistribution(distribution), nil
}

// ListAssetDistributionsHandler godoc
// @Summary List distributions for an asset
// @Description Returns the asset's committed distribution runs in creation order.
// @Tags distribution-engine
// @Produce json
// @Param asset_id path string true "Asset id"
// @Success 200 {object} httptransport.ListDistributionsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/assets/{asset_id}/distributions [get]
func (h Handler) ListAssetDistributionsHandler(ctx context.Context, assetID string) (httptransport.ListDistributionsResponse, error) {
	items, err := h.Queries.ListAssetDistributions(ctx, assetID)
	if err != nil {
		return httptransport.ListDistributionsResponse{}, err
	}
	resp := httptransport.ListDistributionsResponse{Items: make([]httptransport.DistributionDTO, 0, len(items))}
	for _, distribution := range items {
		resp.Items = append(resp.Items, mapDistribution(distribution))
	}
	return resp, nil
}

func runCommandFromRequest(req httptransport.RunDistributionRequest) (commands.RunDistributionCommand, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(req.ValueAmount))
	if err != nil {
		return commands.RunDistributionCommand{}, domainerrors.ErrInvalidValueAmount
	}
	maxDepth := entities.UnlimitedDepth
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}
	return commands.RunDistributionCommand{
		DistributionID: req.DistributionID,
		AssetID:        req.AssetID,
		ValueAmount:    value,
		Method:         entities.DistributionMethod(strings.ToUpper(strings.TrimSpace(req.DistributionMethod))),
		MaxDepth:       maxDepth,
		Notes:          req.Notes,
	}, nil
}

func mapDistribution(distribution entities.Distribution) httptransport.DistributionDTO {
	payouts := make([]httptransport.PayoutDTO, 0, len(distribution.Payouts))
	for _, payout := range distribution.Payouts {
		payouts = append(payouts, httptransport.PayoutDTO{
			ContributorID:       payout.ContributorID,
			ContributorName:     payout.ContributorName,
			Amount:              payout.Amount.StringFixed(2),
			Share:               payout.Share.StringFixed(6),
			DirectCost:          payout.DirectCost.StringFixed(2),
			CoherenceMultiplier: payout.CoherenceMultiplier.StringFixed(4),
		})
	}
	return httptransport.DistributionDTO{
		ID:               distribution.ID,
		AssetID:          distribution.AssetID,
		ValueAmount:      distribution.ValueAmount.StringFixed(2),
		Method:           string(distribution.Method),
		MaxDepth:         distribution.MaxDepth,
		Status:           string(distribution.Status),
		Notes:            distribution.Notes,
		Payouts:          payouts,
		TotalDistributed: distribution.TotalDistributed.StringFixed(2),
		AssetsVisited:    distribution.AssetsVisited,
		CreatedAt:        distribution.CreatedAt.UTC().Format(time.RFC3339),
	}
}
