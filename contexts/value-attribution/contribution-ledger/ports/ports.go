package ports

import (
	"context"
	"time"

	"tessera/contexts/value-attribution/contribution-ledger/domain/entities"
	"tessera/internal/shared/events"
)

type Repository interface {
	CreateContributor(ctx context.Context, contributor entities.Contributor) error
	UpdateContributor(ctx context.Context, contributor entities.Contributor) error
	GetContributor(ctx context.Context, contributorID string) (entities.Contributor, error)
	CreateAsset(ctx context.Context, asset entities.Asset) error
	UpdateAsset(ctx context.Context, asset entities.Asset) error
	GetAsset(ctx context.Context, assetID string) (entities.Asset, error)
	FindAssetByNameVersion(ctx context.Context, name string, version string) (entities.Asset, error)
	AppendEvent(ctx context.Context, event entities.ContributionEvent) error
	ListEventsByAsset(ctx context.Context, assetID string) ([]entities.ContributionEvent, error)
	ListEventsByContributor(ctx context.Context, contributorID string, limit int) ([]entities.ContributionEvent, error)
	NextSequence(ctx context.Context, assetID string) (int64, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope events.Envelope) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, envelope events.Envelope) error
}
