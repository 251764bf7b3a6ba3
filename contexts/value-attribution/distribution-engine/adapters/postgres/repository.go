package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tessera/contexts/value-attribution/distribution-engine/domain/entities"
	domainerrors "tessera/contexts/value-attribution/distribution-engine/domain/errors"
	"tessera/contexts/value-attribution/distribution-engine/ports"
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

// CommitDistribution writes the distribution record, its payout rows, and
// the aggregate deltas in a single transaction. Either everything from a
// run lands or nothing does.
func (r *Repository) CommitDistribution(ctx context.Context, distribution entities.Distribution, deltas ports.CommitDeltas) error {
	row := distributionModelFromEntity(distribution)
	payoutRows := payoutModelsFromEntity(distribution)

	contributorIDs := make([]string, 0, len(deltas.ContributorEarned))
	for contributorID := range deltas.ContributorEarned {
		contributorIDs = append(contributorIDs, contributorID)
	}
	sort.Strings(contributorIDs)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(payoutRows) > 0 {
			if err := tx.Create(&payoutRows).Error; err != nil {
				return err
			}
		}

		result := tx.Table("assets").
			Where("id = ?", deltas.AssetID).
			Updates(map[string]any{
				"value_generated":   gorm.Expr("value_generated + ?", deltas.ValueGenerated),
				"value_distributed": gorm.Expr("value_distributed + ?", deltas.ValueDistributed),
				"updated_at":        distribution.CreatedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrAssetNotFound
		}

		for _, contributorID := range contributorIDs {
			result := tx.Table("contributors").
				Where("id = ?", contributorID).
				Updates(map[string]any{
					"total_value_earned": gorm.Expr("total_value_earned + ?", deltas.ContributorEarned[contributorID]),
					"updated_at":         distribution.CreatedAt.UTC(),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domainerrors.ErrPayoutReconciliation
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidDistributionInput
		}
		if errors.Is(err, domainerrors.ErrAssetNotFound) || errors.Is(err, domainerrors.ErrPayoutReconciliation) {
			return err
		}
		return r.logError("distribution_repo_commit_failed", err,
			"distribution_id", distribution.ID,
			"asset_id", distribution.AssetID,
		)
	}
	return nil
}

func (r *Repository) GetDistribution(ctx context.Context, distributionID string) (entities.Distribution, error) {
	var row distributionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(distributionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Distribution{}, domainerrors.ErrDistributionNotFound
		}
		return entities.Distribution{}, r.logError("distribution_repo_get_failed", err,
			"distribution_id", strings.TrimSpace(distributionID),
		)
	}
	payouts, err := r.loadPayouts(ctx, row.ID)
	if err != nil {
		return entities.Distribution{}, err
	}
	return row.toEntity(payouts), nil
}

func (r *Repository) ListDistributionsByAsset(ctx context.Context, assetID string) ([]entities.Distribution, error) {
	var rows []distributionModel
	if err := r.db.WithContext(ctx).
		Where("asset_id = ?", strings.TrimSpace(assetID)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_list_failed", err,
			"asset_id", strings.TrimSpace(assetID),
		)
	}
	items := make([]entities.Distribution, 0, len(rows))
	for _, row := range rows {
		payouts, err := r.loadPayouts(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, row.toEntity(payouts))
	}
	return items, nil
}

func (r *Repository) loadPayouts(ctx context.Context, distributionID string) ([]entities.Payout, error) {
	var rows []payoutModel
	if err := r.db.WithContext(ctx).
		Where("distribution_id = ?", distributionID).
		Order("contributor_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_load_payouts_failed", err,
			"distribution_id", distributionID,
		)
	}
	payouts := make([]entities.Payout, 0, len(rows))
	for _, row := range rows {
		payouts = append(payouts, row.toEntity())
	}
	return payouts, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := distributionOutboxModel{
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
		return r.logError("distribution_repo_append_outbox_failed", err,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []distributionOutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_list_pending_outbox_failed", err,
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
		Model(&distributionOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("distribution_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("distribution_repo_mark_outbox_published_not_found",
			"outbox_id", strings.TrimSpace(outboxID),
		)
		return domainerrors.ErrInvalidDistributionInput
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", "value-attribution/distribution-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("distribution repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", "value-attribution/distribution-engine",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("distribution repository warning", fields...)
}

type distributionModel struct {
	ID               string          `gorm:"column:id;primaryKey"`
	AssetID          string          `gorm:"column:asset_id;index:idx_distributions_asset"`
	ValueAmount      decimal.Decimal `gorm:"column:value_amount;type:numeric(20,6)"`
	Method           string          `gorm:"column:method"`
	MaxDepth         int             `gorm:"column:max_depth"`
	Status           string          `gorm:"column:status"`
	Notes            string          `gorm:"column:notes"`
	TotalDistributed decimal.Decimal `gorm:"column:total_distributed;type:numeric(20,6)"`
	AssetsVisited    int             `gorm:"column:assets_visited"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
}

func (distributionModel) TableName() string {
	return "distributions"
}

func distributionModelFromEntity(distribution entities.Distribution) distributionModel {
	return distributionModel{
		ID:               strings.TrimSpace(distribution.ID),
		AssetID:          strings.TrimSpace(distribution.AssetID),
		ValueAmount:      distribution.ValueAmount,
		Method:           string(distribution.Method),
		MaxDepth:         distribution.MaxDepth,
		Status:           string(distribution.Status),
		Notes:            strings.TrimSpace(distribution.Notes),
		TotalDistributed: distribution.TotalDistributed,
		AssetsVisited:    distribution.AssetsVisited,
		CreatedAt:        distribution.CreatedAt.UTC(),
	}
}

func (m distributionModel) toEntity(payouts []entities.Payout) entities.Distribution {
	return entities.Distribution{
		ID:               m.ID,
		AssetID:          m.AssetID,
		ValueAmount:      m.ValueAmount,
		Method:           entities.DistributionMethod(m.Method),
		MaxDepth:         m.MaxDepth,
		Status:           entities.DistributionStatus(m.Status),
		Notes:            m.Notes,
		Payouts:          payouts,
		TotalDistributed: m.TotalDistributed,
		AssetsVisited:    m.AssetsVisited,
		CreatedAt:        m.CreatedAt.UTC(),
	}
}

type payoutModel struct {
	DistributionID      string          `gorm:"column:distribution_id;primaryKey"`
	ContributorID       string          `gorm:"column:contributor_id;primaryKey"`
	ContributorName     string          `gorm:"column:contributor_name"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(20,2)"`
	Share               decimal.Decimal `gorm:"column:share;type:numeric(9,8)"`
	DirectCost          decimal.Decimal `gorm:"column:direct_cost;type:numeric(20,6)"`
	CoherenceMultiplier decimal.Decimal `gorm:"column:coherence_multiplier;type:numeric(7,6)"`
}

func (payoutModel) TableName() string {
	return "distribution_payouts"
}

func payoutModelsFromEntity(distribution entities.Distribution) []payoutModel {
	rows := make([]payoutModel, 0, len(distribution.Payouts))
	for _, payout := range distribution.Payouts {
		rows = append(rows, payoutModel{
			DistributionID:      strings.TrimSpace(distribution.ID),
			ContributorID:       strings.TrimSpace(payout.ContributorID),
			ContributorName:     strings.TrimSpace(payout.ContributorName),
			Amount:              payout.Amount,
			Share:               payout.Share,
			DirectCost:          payout.DirectCost,
			CoherenceMultiplier: payout.CoherenceMultiplier,
		})
	}
	return rows
}

func (m payoutModel) toEntity() entities.Payout {
	return entities.Payout{
		ContributorID:       m.ContributorID,
		ContributorName:     m.ContributorName,
		Amount:              m.Amount,
		Share:               m.Share,
		DirectCost:          m.DirectCost,
		CoherenceMultiplier: m.CoherenceMultiplier,
	}
}

type distributionOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (distributionOutboxModel) TableName() string {
	return "distribution_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
