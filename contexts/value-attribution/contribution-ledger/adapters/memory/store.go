package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tessera/contexts/value-attribution/contribution-ledger/domain/entities"
	domainerrors "tessera/contexts/value-attribution/contribution-ledger/domain/errors"
	"tessera/contexts/value-attribution/contribution-ledger/ports"
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

type Store struct {
	mu sync.RWMutex

	contributors  map[string]entities.Contributor
	assets        map[string]entities.Asset
	nameVersion   map[string]string
	eventsByAsset map[string][]entities.ContributionEvent
	outbox        map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		contributors:  make(map[string]entities.Contributor),
		assets:        make(map[string]entities.Asset),
		nameVersion:   make(map[string]string),
		eventsByAsset: make(map[string][]entities.ContributionEvent),
		outbox:        make(map[string]outboxRecord),
	}
}

func nameVersionKey(name string, version string) string {
	return strings.TrimSpace(name) + "|" + strings.TrimSpace(version)
}

func (s *Store) CreateContributor(_ context.Context, contributor entities.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contributors[contributor.ID]; exists {
		return domainerrors.ErrContributorExists
	}
	s.contributors[contributor.ID] = contributor
	return nil
}

func (s *Store) UpdateContributor(_ context.Context, contributor entities.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contributors[contributor.ID]; !exists {
		return domainerrors.ErrContributorNotFound
	}
	s.contributors[contributor.ID] = contributor
	return nil
}

func (s *Store) GetContributor(_ context.Context, contributorID string) (entities.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contributor, exists := s.contributors[strings.TrimSpace(contributorID)]
	if !exists {
		return entities.Contributor{}, domainerrors.ErrContributorNotFound
	}
	return contributor, nil
}

func (s *Store) CreateAsset(_ context.Context, asset entities.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[asset.ID]; exists {
		return domainerrors.ErrAssetExists
	}
	key := nameVersionKey(asset.Name, asset.Version)
	if _, exists := s.nameVersion[key]; exists {
		return domainerrors.ErrAssetExists
	}
	s.assets[asset.ID] = asset
	s.nameVersion[key] = asset.ID
	return nil
}

func (s *Store) UpdateAsset(_ context.Context, asset entities.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[asset.ID]; !exists {
		return domainerrors.ErrAssetNotFound
	}
	s.assets[asset.ID] = asset
	return nil
}

func (s *Store) GetAsset(_ context.Context, assetID string) (entities.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, exists := s.assets[strings.TrimSpace(assetID)]
	if !exists {
		return entities.Asset{}, domainerrors.ErrAssetNotFound
	}
	return asset, nil
}

func (s *Store) FindAssetByNameVersion(_ context.Context, name string, version string) (entities.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assetID, exists := s.nameVersion[nameVersionKey(name, version)]
	if !exists {
		return entities.Asset{}, domainerrors.ErrAssetNotFound
	}
	return s.assets[assetID], nil
}

func (s *Store) AppendEvent(_ context.Context, event entities.ContributionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[event.AssetID]; !exists {
		return domainerrors.ErrAssetNotFound
	}
	s.eventsByAsset[event.AssetID] = append(s.eventsByAsset[event.AssetID], event)
	return nil
}

func (s *Store) ListEventsByAsset(_ context.Context, assetID string) ([]entities.ContributionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := append([]entities.ContributionEvent(nil), s.eventsByAsset[strings.TrimSpace(assetID)]...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].Sequence < items[j].Sequence
	})
	return items, nil
}

func (s *Store) ListEventsByContributor(_ context.Context, contributorID string, limit int) ([]entities.ContributionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	normalizedID := strings.TrimSpace(contributorID)
	items := make([]entities.ContributionEvent, 0)
	for _, assetEvents := range s.eventsByAsset {
		for _, event := range assetEvents {
			if event.ContributorID == normalizedID {
				items = append(items, event)
			}
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].RecordedAt.Equal(items[j].RecordedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].RecordedAt.After(items[j].RecordedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) NextSequence(_ context.Context, assetID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var highest int64
	for _, event := range s.eventsByAsset[strings.TrimSpace(assetID)] {
		if event.Sequence > highest {
			highest = event.Sequence
		}
	}
	return highest + 1, nil
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
		return domainerrors.ErrInvalidContributionInput
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

var _ ports.Repository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
var _ ports.OutboxWriter = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
