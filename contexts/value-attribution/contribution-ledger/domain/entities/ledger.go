package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type ContributorKind string

const (
	ContributorKindHuman  ContributorKind = "HUMAN"
	ContributorKindSystem ContributorKind = "SYSTEM"
)

type AssetType string

const (
	AssetTypeCode    AssetType = "CODE"
	AssetTypeModel   AssetType = "MODEL"
	AssetTypeContent AssetType = "CONTENT"
	AssetTypeData    AssetType = "DATA"
)

type AssetStatus string

const (
	AssetStatusDraft    AssetStatus = "DRAFT"
	AssetStatusActive   AssetStatus = "ACTIVE"
	AssetStatusArchived AssetStatus = "ARCHIVED"
)

type EventType string

const (
	EventTypeManualLabor      EventType = "MANUAL_LABOR"
	EventTypeToolExecution    EventType = "TOOL_EXECUTION"
	EventTypeProjectInception EventType = "PROJECT_INCEPTION"
	EventTypeAssetComposition EventType = "ASSET_COMPOSITION"
)

// Contributor is a HUMAN or SYSTEM actor that records cost against assets.
// Running totals are derived: TotalCostContributed moves on ledger ingestion,
// TotalValueEarned moves only on a committed distribution.
type Contributor struct {
	ID                   string
	Kind                 ContributorKind
	DisplayName          string
	TotalCostContributed decimal.Decimal
	TotalValueEarned     decimal.Decimal
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Asset is a versioned created entity. ComposedAssetIDs are the edges
// declared on the asset itself; composition may also arrive as
// ASSET_COMPOSITION ledger events.
type Asset struct {
	ID               string
	Type             AssetType
	Name             string
	Version          string
	Fingerprint      string
	Status           AssetStatus
	CreationCost     decimal.Decimal
	ValueGenerated   decimal.Decimal
	ValueDistributed decimal.Decimal
	ComposedAssetIDs []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ContributionEvent is an immutable ledger entry. Corrections are recorded
// as new compensating events, never edits.
type ContributionEvent struct {
	ID            string
	ContributorID string
	AssetID       string
	EventType     EventType
	CostAmount    decimal.Decimal
	// CoherenceScore is the precomputed composite quality score in [0,1].
	CoherenceScore decimal.Decimal
	// TriggeredByContributorID is set only for SYSTEM contributors: the
	// human who invoked the tool. Distribution credits that human.
	TriggeredByContributorID string
	// ComposedAssetID is set only for ASSET_COMPOSITION events.
	ComposedAssetID string
	// Sequence is monotonic per asset for deterministic ordering.
	Sequence   int64
	Metadata   map[string]any
	RecordedAt time.Time
}

func IsValidEventType(value EventType) bool {
	switch value {
	case EventTypeManualLabor, EventTypeToolExecution, EventTypeProjectInception, EventTypeAssetComposition:
		return true
	default:
		return false
	}
}

func IsValidAssetType(value AssetType) bool {
	switch value {
	case AssetTypeCode, AssetTypeModel, AssetTypeContent, AssetTypeData:
		return true
	default:
		return false
	}
}

func IsValidContributorKind(value ContributorKind) bool {
	switch value {
	case ContributorKindHuman, ContributorKindSystem:
		return true
	default:
		return false
	}
}
