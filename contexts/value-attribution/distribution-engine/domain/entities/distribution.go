package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type DistributionMethod string

const (
	MethodCoherenceWeighted DistributionMethod = "COHERENCE_WEIGHTED"
)

type DistributionStatus string

// One meaningful lifecycle: pending → traversing → aggregated → normalized,
// or failed. Only normalized runs are ever persisted.
const (
	DistributionStatusPending    DistributionStatus = "pending"
	DistributionStatusTraversing DistributionStatus = "traversing"
	DistributionStatusAggregated DistributionStatus = "aggregated"
	DistributionStatusNormalized DistributionStatus = "normalized"
	DistributionStatusFailed     DistributionStatus = "failed"
)

// UnlimitedDepth disables the traversal depth guard.
const UnlimitedDepth = -1

// Distribution is one revenue-attribution run over an asset's contribution
// lineage. TotalDistributed always equals ValueAmount exactly for a
// normalized run.
type Distribution struct {
	ID               string
	AssetID          string
	ValueAmount      decimal.Decimal
	Method           DistributionMethod
	MaxDepth         int
	Status           DistributionStatus
	Notes            string
	Payouts          []Payout
	TotalDistributed decimal.Decimal
	AssetsVisited    int
	CreatedAt        time.Time
}

// Payout is one line of a distribution result, ordered by ascending
// contributor id. Share and CoherenceMultiplier are derived display values.
type Payout struct {
	ContributorID       string
	ContributorName     string
	Amount              decimal.Decimal
	Share               decimal.Decimal
	DirectCost          decimal.Decimal
	CoherenceMultiplier decimal.Decimal
}

// LineageEvent is the read-model slice of a ledger entry the engine needs:
// the five fixed fields plus the contributor kind used for re-attribution.
type LineageEvent struct {
	EventID                  string
	ContributorID            string
	ContributorKind          string
	TriggeredByContributorID string
	CostAmount               decimal.Decimal
	CoherenceScore           decimal.Decimal
	Sequence                 int64
}

const ContributorKindSystem = "SYSTEM"

// CreditTarget resolves who a lineage event pays: SYSTEM contributions with
// a recorded trigger credit the triggering human, everything else credits
// the event's own contributor.
func (e LineageEvent) CreditTarget() string {
	if e.ContributorKind == ContributorKindSystem && e.TriggeredByContributorID != "" {
		return e.TriggeredByContributorID
	}
	return e.ContributorID
}
