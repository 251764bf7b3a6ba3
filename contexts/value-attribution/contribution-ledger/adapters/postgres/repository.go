package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tessera/contexts/value-attribution/contribution-ledger/domain/entities"
	domainerrors "tessera/contexts/value-attribution/contribution-ledger/domain/errors"
	"tessera/contexts/value-attribution/contribution-ledger/ports"
	"tessera/internal/shared/events"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateContributor(ctx context.Context, contributor entities.Contributor) error {
	row := contributorModelFromEntity(contributor)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrContributorExists
		}
		return r.logError("ledger_repo_create_contributor_failed", err,
			"contributor_id", contributor.ID,
		)
	}
	return nil
}

func (r *Repository) UpdateContributor(ctx context.Context, contributor entities.Contributor) error {
	result := r.db.WithContext(ctx).
		Model(&contributorModel{}).
		Where("id = ?", strings.TrimSpace(contributor.ID)).
		Updates(map[string]any{
			"display_name":           strings.TrimSpace(contributor.DisplayName),
			"total_cost_contributed": contributor.TotalCostContributed,
			"total_value_earned":     contributor.TotalValueEarned,
			"updated_at":             contributor.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_update_contributor_failed", result.Error,
			"contributor_id", strings.TrimSpace(contributor.ID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("ledger_repo_update_contributor_not_found",
			"contributor_id", strings.TrimSpace(contributor.ID),
		)
		return domainerrors.ErrContributorNotFound
	}
	return nil
}

func (r *Repository) GetContributor(ctx context.Context, contributorID string) (entities.Contributor, error) {
	var row contributorModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(contributorID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Contributor{}, domainerrors.ErrContributorNotFound
		}
		return entities.Contributor{}, r.logError("ledger_repo_get_contributor_failed", err,
			"contributor_id", strings.TrimSpace(contributorID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) CreateAsset(ctx context.Context, asset entities.Asset) error {
	row, err := assetModelFromEntity(asset)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAssetExists
		}
		return r.logError("ledger_repo_create_asset_failed", err,
			"asset_id", asset.ID,
		)
	}
	return nil
}

func (r *Repository) UpdateAsset(ctx context.Context, asset entities.Asset) error {
	edges, err := json.Marshal(asset.ComposedAssetIDs)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&assetModel{}).
		Where("id = ?", strings.TrimSpace(asset.ID)).
		Updates(map[string]any{
			"fingerprint":        strings.TrimSpace(asset.Fingerprint),
			"status":             string(asset.Status),
			"creation_cost":      asset.CreationCost,
			"value_generated":    asset.ValueGenerated,
			"value_distributed":  asset.ValueDistributed,
			"composed_asset_ids": edges,
			"updated_at":         asset.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_update_asset_failed", result.Error,
			"asset_id", strings.TrimSpace(asset.ID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("ledger_repo_update_asset_not_found",
			"asset_id", strings.TrimSpace(asset.ID),
		)
		return domainerrors.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, assetID string) (entities.Asset, error) {
	var row assetModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(assetID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Asset{}, domainerrors.ErrAssetNotFound
		}
		return entities.Asset{}, r.logError("ledger_repo_get_asset_failed", err,
			"asset_id", strings.TrimSpace(assetID),
		)
	}
	return row.toEntity()
}

func (r *Repository) FindAssetByNameVersion(ctx context.Context, name string, version string) (entities.Asset, error) {
	var row assetModel
	err := r.db.WithContext(ctx).
		Where("name = ?", strings.TrimSpace(name)).
		Where("version = ?", strings.TrimSpace(version)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Asset{}, domainerrors.ErrAssetNotFound
		}
		return entities.Asset{}, r.logError("ledger_repo_find_asset_failed", err,
			"asset_name", strings.TrimSpace(name),
			"asset_version", strings.TrimSpace(version),
		)
	}
	return row.toEntity()
}

func (r *Repository) AppendEvent(ctx context.Context, event entities.ContributionEvent) error {
	row, err := contributionEventModelFromEntity(event)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("ledger_repo_append_event_duplicate",
				"event_id", event.ID,
				"asset_id", event.AssetID,
			)
			return domainerrors.ErrInvalidContributionInput
		}
		return r.logError("ledger_repo_append_event_failed", err,
			"event_id", event.ID,
			"asset_id", event.AssetID,
		)
	}
	return nil
}

func (r *Repository) ListEventsByAsset(ctx context.Context, assetID string) ([]entities.ContributionEvent, error) {
	var rows []contributionEventModel
	if err := r.db.WithContext(ctx).
		Where("asset_id = ?", strings.TrimSpace(assetID)).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_asset_events_failed", err,
			"asset_id", strings.TrimSpace(assetID),
		)
	}
	return eventRowsToEntities(rows)
}

func (r *Repository) ListEventsByContributor(ctx context.Context, contributorID string, limit int) ([]entities.ContributionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []contributionEventModel
	if err := r.db.WithContext(ctx).
		Where("contributor_id = ?", strings.TrimSpace(contributorID)).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_contributor_events_failed", err,
			"contributor_id", strings.TrimSpace(contributorID),
		)
	}
	return eventRowsToEntities(rows)
}

func (r *Repository) NextSequence(ctx context.Context, assetID string) (int64, error) {
	var highest int64
	err := r.db.WithContext(ctx).
		Model(&contributionEventModel{}).
		Where("asset_id = ?", strings.TrimSpace(assetID)).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&highest).
		Error
	if err != nil {
		return 0, r.logError("ledger_repo_next_sequence_failed", err,
			"asset_id", strings.TrimSpace(assetID),
		)
	}
	return highest + 1, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := ledgerOutboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAtUTC.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return r.logError("ledger_repo_append_outbox_failed", err,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ledgerOutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_pending_outbox_failed", err,
			"limit", limit,
		)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ledgerOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ledger_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("ledger_repo_mark_outbox_published_not_found",
			"outbox_id", strings.TrimSpace(outboxID),
		)
		return domainerrors.ErrInvalidContributionInput
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "value-attribution/contribution-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("ledger repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "value-attribution/contribution-ledger",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("ledger repository warning", fields...)
}

type contributorModel struct {
	ID                   string          `gorm:"column:id;primaryKey"`
	Kind                 string          `gorm:"column:kind"`
	DisplayName          string          `gorm:"column:display_name"`
	TotalCostContributed decimal.Decimal `gorm:"column:total_cost_contributed;type:numeric(20,6)"`
	TotalValueEarned     decimal.Decimal `gorm:"column:total_value_earned;type:numeric(20,6)"`
	CreatedAt            time.Time       `gorm:"column:created_at"`
	UpdatedAt            time.Time       `gorm:"column:updated_at"`
}

func (contributorModel) TableName() string {
	return "contributors"
}

func contributorModelFromEntity(contributor entities.Contributor) contributorModel {
	return contributorModel{
		ID:                   strings.TrimSpace(contributor.ID),
		Kind:                 string(contributor.Kind),
		DisplayName:          strings.TrimSpace(contributor.DisplayName),
		TotalCostContributed: contributor.TotalCostContributed,
		TotalValueEarned:     contributor.TotalValueEarned,
		CreatedAt:            contributor.CreatedAt.UTC(),
		UpdatedAt:            contributor.UpdatedAt.UTC(),
	}
}

func (m contributorModel) toEntity() entities.Contributor {
	return entities.Contributor{
		ID:                   m.ID,
		Kind:                 entities.ContributorKind(m.Kind),
		DisplayName:          m.DisplayName,
		TotalCostContributed: m.TotalCostContributed,
		TotalValueEarned:     m.TotalValueEarned,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
	}
}

type assetModel struct {
	ID               string          `gorm:"column:id;primaryKey"`
	Type             string          `gorm:"column:type"`
	Name             string          `gorm:"column:name;uniqueIndex:idx_assets_name_version"`
	Version          string          `gorm:"column:version;uniqueIndex:idx_assets_name_version"`
	Fingerprint      string          `gorm:"column:fingerprint"`
	Status           string          `gorm:"column:status"`
	CreationCost     decimal.Decimal `gorm:"column:creation_cost;type:numeric(20,6)"`
	ValueGenerated   decimal.Decimal `gorm:"column:value_generated;type:numeric(20,6)"`
	ValueDistributed decimal.Decimal `gorm:"column:value_distributed;type:numeric(20,6)"`
	ComposedAssetIDs []byte          `gorm:"column:composed_asset_ids;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (assetModel) TableName() string {
	return "assets"
}

func assetModelFromEntity(asset entities.Asset) (assetModel, error) {
	edges, err := json.Marshal(asset.ComposedAssetIDs)
	if err != nil {
		return assetModel{}, err
	}
	return assetModel{
		ID:               strings.TrimSpace(asset.ID),
		Type:             string(asset.Type),
		Name:             strings.TrimSpace(asset.Name),
		Version:          strings.TrimSpace(asset.Version),
		Fingerprint:      strings.TrimSpace(asset.Fingerprint),
		Status:           string(asset.Status),
		CreationCost:     asset.CreationCost,
		ValueGenerated:   asset.ValueGenerated,
		ValueDistributed: asset.ValueDistributed,
		ComposedAssetIDs: edges,
		CreatedAt:        asset.CreatedAt.UTC(),
		UpdatedAt:        asset.UpdatedAt.UTC(),
	}, nil
}

func (m assetModel) toEntity() (entities.Asset, error) {
	var edges []string
	if len(m.ComposedAssetIDs) > 0 {
		if err := json.Unmarshal(m.ComposedAssetIDs, &edges); err != nil {
			return entities.Asset{}, err
		}
	}
	return entities.Asset{
		ID:               m.ID,
		Type:             entities.AssetType(m.Type),
		Name:             m.Name,
		Version:          m.Version,
		Fingerprint:      m.Fingerprint,
		Status:           entities.AssetStatus(m.Status),
		CreationCost:     m.CreationCost,
		ValueGenerated:   m.ValueGenerated,
		ValueDistributed: m.ValueDistributed,
		ComposedAssetIDs: edges,
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}, nil
}

type contributionEventModel struct {
	ID              string          `gorm:"column:id;primaryKey"`
	ContributorID   string          `gorm:"column:contributor_id"`
	AssetID         string          `gorm:"column:asset_id;uniqueIndex:idx_events_asset_sequence"`
	EventType       string          `gorm:"column:event_type"`
	CostAmount      decimal.Decimal `gorm:"column:cost_amount;type:numeric(20,6)"`
	CoherenceScore  decimal.Decimal `gorm:"column:coherence_score;type:numeric(7,6)"`
	TriggeredBy     string          `gorm:"column:triggered_by_contributor_id"`
	ComposedAssetID string          `gorm:"column:composed_asset_id"`
	Sequence        int64           `gorm:"column:sequence;uniqueIndex:idx_events_asset_sequence"`
	Metadata        []byte          `gorm:"column:metadata;type:jsonb"`
	RecordedAt      time.Time       `gorm:"column:recorded_at"`
}

func (contributionEventModel) TableName() string {
	return "contribution_events"
}

func contributionEventModelFromEntity(event entities.ContributionEvent) (contributionEventModel, error) {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return contributionEventModel{}, err
		}
	}
	return contributionEventModel{
		ID:              strings.TrimSpace(event.ID),
		ContributorID:   strings.TrimSpace(event.ContributorID),
		AssetID:         strings.TrimSpace(event.AssetID),
		EventType:       string(event.EventType),
		CostAmount:      event.CostAmount,
		CoherenceScore:  event.CoherenceScore,
		TriggeredBy:     strings.TrimSpace(event.TriggeredByContributorID),
		ComposedAssetID: strings.TrimSpace(event.ComposedAssetID),
		Sequence:        event.Sequence,
		Metadata:        metadata,
		RecordedAt:      event.RecordedAt.UTC(),
	}, nil
}

func (m contributionEventModel) toEntity() (entities.ContributionEvent, error) {
	var metadata map[string]any
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return entities.ContributionEvent{}, err
		}
	}
	return entities.ContributionEvent{
		ID:                       m.ID,
		ContributorID:            m.ContributorID,
		AssetID:                  m.AssetID,
		EventType:                entities.EventType(m.EventType),
		CostAmount:               m.CostAmount,
		CoherenceScore:           m.CoherenceScore,
		TriggeredByContributorID: m.TriggeredBy,
		ComposedAssetID:          m.ComposedAssetID,
		Sequence:                 m.Sequence,
		Metadata:                 metadata,
		RecordedAt:               m.RecordedAt.UTC(),
	}, nil
}

func eventRowsToEntities(rows []contributionEventModel) ([]entities.ContributionEvent, error) {
	items := make([]entities.ContributionEvent, 0, len(rows))
	for _, row := range rows {
		event, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, event)
	}
	return items, nil
}

type ledgerOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (ledgerOutboxModel) TableName() string {
	return "ledger_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
