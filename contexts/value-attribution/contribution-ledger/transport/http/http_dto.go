package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterContributorRequest struct {
	ContributorID string `json:"contributor_id,omitempty"`
	Kind          string `json:"kind"`
	DisplayName   string `json:"display_name"`
}

type ContributorDTO struct {
	ID                   string `json:"id"`
	Kind                 string `json:"kind"`
	DisplayName          string `json:"display_name"`
	TotalCostContributed string `json:"total_cost_contributed"`
	TotalValueEarned     string `json:"total_value_earned"`
	CreatedAt            string `json:"created_at"`
}

// RecordContributionRequest carries decimal amounts as strings to preserve
// exact values across the wire.
type RecordContributionRequest struct {
	EventID         string `json:"event_id,omitempty"`
	ContributorID   string `json:"contributor_id,omitempty"`
	ContributorKind string `json:"contributor_kind,omitempty"`
	ContributorName string `json:"contributor_name,omitempty"`

	AssetID      string `json:"asset_id,omitempty"`
	AssetName    string `json:"asset_name,omitempty"`
	AssetVersion string `json:"asset_version,omitempty"`
	AssetType    string `json:"asset_type,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`

	EventType           string            `json:"event_type"`
	CostAmount          string            `json:"cost_amount"`
	CoherenceScore      string            `json:"coherence_score,omitempty"`
	CoherenceComponents map[string]string `json:"coherence_components,omitempty"`

	TriggeredByContributorID string         `json:"triggered_by_contributor_id,omitempty"`
	ComposedAssetID          string         `json:"composed_asset_id,omitempty"`
	Metadata                 map[string]any `json:"metadata,omitempty"`
}

type ContributionEventDTO struct {
	ID                       string         `json:"id"`
	ContributorID            string         `json:"contributor_id"`
	AssetID                  string         `json:"asset_id"`
	EventType                string         `json:"event_type"`
	CostAmount               string         `json:"cost_amount"`
	CoherenceScore           string         `json:"coherence_score"`
	TriggeredByContributorID string         `json:"triggered_by_contributor_id,omitempty"`
	ComposedAssetID          string         `json:"composed_asset_id,omitempty"`
	Sequence                 int64          `json:"sequence"`
	Metadata                 map[string]any `json:"metadata,omitempty"`
	RecordedAt               string         `json:"recorded_at"`
}

type AssetDTO struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	Fingerprint      string   `json:"fingerprint,omitempty"`
	Status           string   `json:"status"`
	CreationCost     string   `json:"creation_cost"`
	ValueGenerated   string   `json:"value_generated"`
	ValueDistributed string   `json:"value_distributed"`
	ComposedAssetIDs []string `json:"composed_asset_ids"`
	CreatedAt        string   `json:"created_at"`
}

type AddCompositionEdgeRequest struct {
	DependsOnAssetID string `json:"depends_on_asset_id"`
}

type ListEventsResponse struct {
	Items []ContributionEventDTO `json:"items"`
}
