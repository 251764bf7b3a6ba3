package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	application "tessera/contexts/value-attribution/contribution-ledger/application"
	"tessera/contexts/value-attribution/contribution-ledger/application/commands"
	"tessera/contexts/value-attribution/contribution-ledger/application/queries"
	"tessera/contexts/value-attribution/contribution-ledger/domain/entities"
	domainerrors "tessera/contexts/value-attribution/contribution-ledger/domain/errors"
	httptransport "tessera/contexts/value-attribution/contribution-ledger/transport/http"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

// RegisterContributorHandler godoc
// @Summary Register a contributor
// @Description Creates a HUMAN or SYSTEM contributor; idempotent on contributor id.
// @Tags contribution-ledger
// @Accept json
// @Produce json
// @Param request body httptransport.RegisterContributorRequest true "Contributor"
// @Success 200 {object} httptransport.ContributorDTO
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/contributors [post]
func (h Handler) RegisterContributorHandler(ctx context.Context, req httptransport.RegisterContributorRequest) (httptransport.ContributorDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	contributor, err := h.Commands.RegisterContributor(ctx, commands.RegisterContributorCommand{
		ContributorID: req.ContributorID,
		Kind:          entities.ContributorKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		DisplayName:   req.DisplayName,
	})
	if err != nil {
		logger.Warn("ledger http register contributor failed",
			"event", "ledger_http_register_contributor_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "adapter",
			"contributor_id", strings.TrimSpace(req.ContributorID),
			"error", err.Error(),
		)
		return httptransport.ContributorDTO{}, err
	}
	return mapContributor(contributor), nil
}

// GetContributorHandler godoc
// @Summary Get contributor
// @Tags contribution-ledger
// @Produce json
// @Param contributor_id path string true "Contributor id"
// @Success 200 {object} httptransport.ContributorDTO
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/contributors/{contributor_id} [get]
func (h Handler) GetContributorHandler(ctx context.Context, contributorID string) (httptransport.ContributorDTO, error) {
	contributor, err := h.Queries.GetContributor(ctx, contributorID)
	if err != nil {
		return httptransport.ContributorDTO{}, err
	}
	return mapContributor(contributor), nil
}

// ListContributorEventsHandler godoc
// @Summary List a contributor's recent events
// @Description Returns the contributor's ledger entries, newest first.
// @Tags contribution-ledger
// @Produce json
// @Param contributor_id path string true "Contributor id"
// @Param limit query int false "Maximum entries to return"
// @Success 200 {object} httptransport.ListEventsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/contributors/{contributor_id}/contributions [get]
func (h Handler) ListContributorEventsHandler(ctx context.Context, contributorID string, limit int) (httptransport.ListEventsResponse, error) {
	items, err := h.Queries.ListContributorEvents(ctx, contributorID, limit)
	if err != nil {
		return httptransport.ListEventsResponse{}, err
	}
	resp := httptransport.ListEventsResponse{Items: make([]httptransport.ContributionEventDTO, 0, len(items))}
	for _, event := range items {
		resp.Items = append(resp.Items, mapEvent(event))
	}
	return resp, nil
}

// RecordContributionHandler godoc
// @Summary Record a contribution event
// @Description Appends an immutable ledger entry; creates asset and contributor on first touch.
// @Tags contribution-ledger
// @Accept json
// @Produce json
// @Param request body httptransport.RecordContributionRequest true "Contribution event"
// @Success 200 {object} httptransport.ContributionEventDTO
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/contributions [post]
func (h Handler) RecordContributionHandler(ctx context.Context, req httptransport.RecordContributionRequest) (httptransport.ContributionEventDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	cmd, err := recordCommandFromRequest(req)
	if err != nil {
		logger.Warn("ledger http record contribution parse failed",
			"event", "ledger_http_record_contribution_parse_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "adapter",
			"contributor_id", strings.TrimSpace(req.ContributorID),
			"error", err.Error(),
		)
		return httptransport.ContributionEventDTO{}, err
	}
	event, err := h.Commands.RecordContribution(ctx, cmd)
	if err != nil {
		logger.Warn("ledger http record contribution failed",
			"event", "ledger_http_record_contribution_failed",
			"module", "value-attribution/contribution-ledger",
			"layer", "adapter",
			"contributor_id", strings.TrimSpace(req.ContributorID),
			"asset_id", strings.TrimSpace(req.AssetID),
			"error", err.Error(),
		)
		return httptransport.ContributionEventDTO{}, err
	}
	return mapEvent(event), nil
}

// GetAssetHandler godoc
// @Summary Get asset
// @Tags contribution-ledger
// @Produce json
// @Param asset_id path string true "Asset id"
// @Success 200 {object} httptransport.AssetDTO
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/assets/{asset_id} [get]
func (h Handler) GetAssetHandler(ctx context.Context, assetID string) (httptransport.AssetDTO, error) {
	asset, err := h.Queries.GetAsset(ctx, assetID)
	if err != nil {
		return httptransport.AssetDTO{}, err
	}
	return mapAsset(asset), nil
}

// ListAssetEventsHandler godoc
// @Summary List asset contribution events
// @Description Returns the asset's ledger entries in sequence order.
// @Tags contribution-ledger
// @Produce json
// @Param asset_id path string true "Asset id"
// @Success 200 {object} httptransport.ListEventsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/assets/{asset_id}/contributions [get]
func (h Handler) ListAssetEventsHandler(ctx context.Context, assetID string) (httptransport.ListEventsResponse, error) {
	items, err := h.Queries.ListAssetEvents(ctx, assetID)
	if err != nil {
		return httptransport.ListEventsResponse{}, err
	}
	resp := httptransport.ListEventsResponse{Items: make([]httptransport.ContributionEventDTO, 0, len(items))}
	for _, event := range items {
		resp.Items = append(resp.Items, mapEvent(event))
	}
	return resp, nil
}

// AddCompositionEdgeHandler godoc
// @Summary Declare a composition edge
// @Description Declares that an asset depends on another asset.
// @Tags contribution-ledger
// @Accept json
// @Produce json
// @Param asset_id path string true "Asset id"
// @Param request body httptransport.AddCompositionEdgeRequest true "Edge"
// @Success 204
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/assets/{asset_id}/composition [post]
func (h Handler) AddCompositionEdgeHandler(ctx context.Context, assetID string, req httptransport.AddCompositionEdgeRequest) error {
	return h.Commands.AddCompositionEdge(ctx, commands.AddCompositionEdgeCommand{
		AssetID:          assetID,
		DependsOnAssetID: req.DependsOnAssetID,
	})
}

// ArchiveAssetHandler godoc
// @Summary Archive an asset
// @Tags contribution-ledger
// @Produce json
// @Param asset_id path string true "Asset id"
// @Success 204
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/assets/{asset_id}/archive [post]
func (h Handler) ArchiveAssetHandler(ctx context.Context, assetID string) error {
	return h.Commands.ArchiveAsset(ctx, commands.ArchiveAssetCommand{AssetID: assetID})
}

func recordCommandFromRequest(req httptransport.RecordContributionRequest) (commands.RecordContributionCommand, error) {
	cost, err := decimal.NewFromString(strings.TrimSpace(req.CostAmount))
	if err != nil {
		return commands.RecordContributionCommand{}, domainerrors.ErrInvalidContributionInput
	}
	cmd := commands.RecordContributionCommand{
		EventID:                  req.EventID,
		ContributorID:            req.ContributorID,
		ContributorKind:          entities.ContributorKind(strings.ToUpper(strings.TrimSpace(req.ContributorKind))),
		ContributorName:          req.ContributorName,
		AssetID:                  req.AssetID,
		AssetName:                req.AssetName,
		AssetVersion:             req.AssetVersion,
		AssetType:                entities.AssetType(strings.ToUpper(strings.TrimSpace(req.AssetType))),
		Fingerprint:              req.Fingerprint,
		EventType:                entities.EventType(strings.ToUpper(strings.TrimSpace(req.EventType))),
		CostAmount:               cost,
		TriggeredByContributorID: req.TriggeredByContributorID,
		ComposedAssetID:          req.ComposedAssetID,
		Metadata:                 req.Metadata,
	}
	if len(req.CoherenceComponents) > 0 {
		components := make(map[string]decimal.Decimal, len(req.CoherenceComponents))
		for name, raw := range req.CoherenceComponents {
			score, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return commands.RecordContributionCommand{}, domainerrors.ErrInvalidContributionInput
			}
			components[strings.TrimSpace(name)] = score
		}
		cmd.CoherenceComponents = components
		return cmd, nil
	}
	if strings.TrimSpace(req.CoherenceScore) != "" {
		score, err := decimal.NewFromString(strings.TrimSpace(req.CoherenceScore))
		if err != nil {
			return commands.RecordContributionCommand{}, domainerrors.ErrInvalidContributionInput
		}
		cmd.CoherenceScore = &score
	}
	return cmd, nil
}

func mapContributor(contributor entities.Contributor) httptransport.ContributorDTO {
	return httptransport.ContributorDTO{
		ID:                   contributor.ID,
		Kind:                 string(contributor.Kind),
		DisplayName:          contributor.DisplayName,
		TotalCostContributed: contributor.TotalCostContributed.StringFixed(2),
		TotalValueEarned:     contributor.TotalValueEarned.StringFixed(2),
		CreatedAt:            contributor.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func mapAsset(asset entities.Asset) httptransport.AssetDTO {
	edges := asset.ComposedAssetIDs
	if edges == nil {
		edges = []string{}
	}
	return httptransport.AssetDTO{
		ID:               asset.ID,
		Type:             string(asset.Type),
		Name:             asset.Name,
		Version:          asset.Version,
		Fingerprint:      asset.Fingerprint,
		Status:           string(asset.Status),
		CreationCost:     asset.CreationCost.StringFixed(2),
		ValueGenerated:   asset.ValueGenerated.StringFixed(2),
		ValueDistributed: asset.ValueDistributed.StringFixed(2),
		ComposedAssetIDs: edges,
		CreatedAt:        asset.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func mapEvent(event entities.ContributionEvent) httptransport.ContributionEventDTO {
	return httptransport.ContributionEventDTO{
		ID:                       event.ID,
		ContributorID:            event.ContributorID,
		AssetID:                  event.AssetID,
		EventType:                string(event.EventType),
		CostAmount:               event.CostAmount.StringFixed(2),
		CoherenceScore:           event.CoherenceScore.String(),
		TriggeredByContributorID: event.TriggeredByContributorID,
		ComposedAssetID:          event.ComposedAssetID,
		Sequence:                 event.Sequence,
		Metadata:                 event.Metadata,
		RecordedAt:               event.RecordedAt.UTC().Format(time.RFC3339),
	}
}
