package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tessera/contexts/value-attribution/distribution-engine/domain/entities"
	"tessera/internal/shared/events"
)

// LineageResolver is the read-only adapter over the contribution ledger and
// asset graph. It must not mutate either store. DependenciesOf returns the
// deduplicated union of ASSET_COMPOSITION event targets and edges declared
// on the asset itself, so the engine is agnostic to where an edge came from.
type LineageResolver interface {
	AssetExists(ctx context.Context, assetID string) (bool, error)
	EventsForAsset(ctx context.Context, assetID string) ([]entities.LineageEvent, error)
	DependenciesOf(ctx context.Context, assetID string) ([]string, error)
	ContributorNames(ctx context.Context, contributorIDs []string) (map[string]string, error)
}

// CommitDeltas are the aggregate movements applied atomically with the
// distribution record: the single place value totals change.
type CommitDeltas struct {
	AssetID          string
	ValueGenerated   decimal.Decimal
	ValueDistributed decimal.Decimal
	// ContributorEarned maps contributor id to the value-earned increment.
	ContributorEarned map[string]decimal.Decimal
}

type Repository interface {
	CommitDistribution(ctx context.Context, distribution entities.Distribution, deltas CommitDeltas) error
	GetDistribution(ctx context.Context, distributionID string) (entities.Distribution, error)
	ListDistributionsByAsset(ctx context.Context, assetID string) ([]entities.Distribution, error)
}

// AssetLocks serializes distribution runs per root asset. Acquire fails
// fast with ErrDistributionInProgress when the asset is already locked;
// callers may retry.
type AssetLocks interface {
	Acquire(ctx context.Context, assetID string) (release func(), err error)
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
