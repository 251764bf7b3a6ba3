package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	ledgerports "tessera/contexts/value-attribution/contribution-ledger/ports"
	"tessera/contexts/value-attribution/distribution-engine/domain/entities"
	domainerrors "tessera/contexts/value-attribution/distribution-engine/domain/errors"
	"tessera/contexts/value-attribution/distribution-engine/ports"
	"tessera/internal/shared/events"
)

type outboxRecord struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

// Store keeps distribution records in process memory. It holds the ledger
// repository so a commit applies aggregate deltas against the same store the
// traversal read from.
type Store struct {
	mu sync.RWMutex

	ledger        ledgerports.Repository
	distributions map[string]entities.Distribution
	byAsset       map[string][]string
	outbox        map[string]outboxRecord
}

func NewStore(ledger ledgerports.Repository) *Store {
	return &Store{
		ledger:        ledger,
		distributions: make(map[string]entities.Distribution),
		byAsset:       make(map[string][]string),
		outbox:        make(map[string]outboxRecord),
	}
}

// CommitDistribution stores the record and applies the aggregate deltas.
// The in-memory rendition is not transactional across the two stores; the
// per-asset lock held by the caller is what keeps a run's writes coherent.
func (s *Store) CommitDistribution(ctx context.Context, distribution entities.Distribution, deltas ports.CommitDeltas) error {
	if err := s.applyDeltas(ctx, deltas); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.distributions[distribution.ID]; exists {
		return domainerrors.ErrInvalidDistributionInput
	}
	s.distributions[distribution.ID] = cloneDistribution(distribution)
	s.byAsset[distribution.AssetID] = append(s.byAsset[distribution.AssetID], distribution.ID)
	return nil
}

func (s *Store) applyDeltas(ctx context.Context, deltas ports.CommitDeltas) error {
	asset, err := s.ledger.GetAsset(ctx, deltas.AssetID)
	if err != nil {
		return err
	}
	asset.ValueGenerated = asset.ValueGenerated.Add(deltas.ValueGenerated)
	asset.ValueDistributed = asset.ValueDistributed.Add(deltas.ValueDistributed)
	asset.UpdatedAt = time.Now().UTC()
	if err := s.ledger.UpdateAsset(ctx, asset); err != nil {
		return err
	}

	contributorIDs := make([]string, 0, len(deltas.ContributorEarned))
	for contributorID := range deltas.ContributorEarned {
		contributorIDs = append(contributorIDs, contributorID)
	}
	sort.Strings(contributorIDs)
	for _, contributorID := range contributorIDs {
		contributor, err := s.ledger.GetContributor(ctx, contributorID)
		if err != nil {
			return err
		}
		contributor.TotalValueEarned = contributor.TotalValueEarned.Add(deltas.ContributorEarned[contributorID])
		contributor.UpdatedAt = time.Now().UTC()
		if err := s.ledger.UpdateContributor(ctx, contributor); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetDistribution(_ context.Context, distributionID string) (entities.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	distribution, exists := s.distributions[strings.TrimSpace(distributionID)]
	if !exists {
		return entities.Distribution{}, domainerrors.ErrDistributionNotFound
	}
	return cloneDistribution(distribution), nil
}

func (s *Store) ListDistributionsByAsset(_ context.Context, assetID string) ([]entities.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byAsset[strings.TrimSpace(assetID)]
	items := make([]entities.Distribution, 0, len(ids))
	for _, id := range ids {
		items = append(items, cloneDistribution(s.distributions[id]))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := s.outbox[outboxID]; exists {
		return nil
	}
	s.outbox[outboxID] = outboxRecord{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		CreatedAt:    envelope.OccurredAtUTC.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
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

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrInvalidDistributionInput
	}
	timestamp := publishedAt.UTC()
	row.PublishedAt = &timestamp
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneDistribution(distribution entities.Distribution) entities.Distribution {
	clone := distribution
	clone.Payouts = append([]entities.Payout(nil), distribution.Payouts...)
	return clone
}

var _ ports.Repository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
