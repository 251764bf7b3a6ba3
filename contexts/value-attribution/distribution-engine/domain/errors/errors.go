package errors

import "errors"

var (
	ErrDistributionNotFound     = errors.New("distribution not found")
	ErrAssetNotFound            = errors.New("distribution root asset not found")
	ErrInvalidValueAmount       = errors.New("distribution value amount must be positive")
	ErrInvalidMaxDepth          = errors.New("max depth must be -1 or a non-negative integer")
	ErrUnsupportedMethod        = errors.New("unsupported distribution method")
	ErrNoContributionsFound     = errors.New("no weighted contributions found for asset lineage")
	ErrDistributionInProgress   = errors.New("a distribution is already running for this asset")
	ErrPayoutReconciliation     = errors.New("payout sum does not reconcile with distribution value")
	ErrInvalidDistributionInput = errors.New("invalid distribution input")
)
