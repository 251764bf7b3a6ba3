package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunDistributionRequest starts a coherence-weighted payout run. ValueAmount
// is a decimal string with at most two fractional digits. MaxDepth -1 means
// unlimited traversal depth; 0 restricts the run to the root asset.
type RunDistributionRequest struct {
	DistributionID     string `json:"distribution_id,omitempty"`
	AssetID            string `json:"asset_id"`
	ValueAmount        string `json:"value_amount"`
	DistributionMethod string `json:"distribution_method,omitempty"`
	MaxDepth           *int   `json:"max_depth,omitempty"`
	Notes              string `json:"notes,omitempty"`
}

type PayoutDTO struct {
	ContributorID       string `json:"contributor_id"`
	ContributorName     string `json:"contributor_name,omitempty"`
	Amount              string `json:"amount"`
	Share               string `json:"share"`
	DirectCost          string `json:"direct_cost"`
	CoherenceMultiplier string `json:"coherence_multiplier"`
}

type DistributionDTO struct {
	ID               string      `json:"id"`
	AssetID          string      `json:"asset_id"`
	ValueAmount      string      `json:"value_amount"`
	Method           string      `json:"method"`
	MaxDepth         int         `json:"max_depth"`
	Status           string      `json:"status"`
	Notes            string      `json:"notes,omitempty"`
	Payouts          []PayoutDTO `json:"payouts"`
	TotalDistributed string      `json:"total_distributed"`
	AssetsVisited    int         `json:"assets_visited"`
	CreatedAt        string      `json:"created_at"`
}

type ListDistributionsResponse struct {
	Items []DistributionDTO `json:"items"`
}
