// Package coherence computes the composite quality score attached to a
// contribution event. The composite is a fixed weighted sum over seven
// component scores; weights sum to 1.0 so valid inputs stay inside [0,1].
package coherence

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrScoreOutOfRange  = errors.New("coherence component score must be between 0 and 1")
	ErrMissingComponent = errors.New("coherence component score is required")
)

const (
	ComponentQuality       = "quality"
	ComponentArchitecture  = "architecture"
	ComponentValueAdd      = "value_add"
	ComponentTestCoverage  = "test_coverage"
	ComponentDocumentation = "documentation"
	ComponentNetwork       = "network"
	ComponentNovelty       = "novelty"
)

type weightedComponent struct {
	name   string
	weight decimal.Decimal
}

// Component order is fixed so the composite is computed deterministically.
var componentWeights = []weightedComponent{
	{ComponentQuality, decimal.NewFromFloat(0.20)},
	{ComponentArchitecture, decimal.NewFromFloat(0.20)},
	{ComponentValueAdd, decimal.NewFromFloat(0.15)},
	{ComponentTestCoverage, decimal.NewFromFloat(0.15)},
	{ComponentDocumentation, decimal.NewFromFloat(0.10)},
	{ComponentNetwork, decimal.NewFromFloat(0.10)},
	{ComponentNovelty, decimal.NewFromFloat(0.10)},
}

var one = decimal.NewFromInt(1)

// Compute turns the full component set into one coherence score in [0,1].
// Every component must be present: callers pass explicit neutral values for
// dimensions that do not apply, there is no implicit defaulting.
func Compute(components map[string]decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, entry := range componentWeights {
		score, ok := components[entry.name]
		if !ok {
			return decimal.Zero, ErrMissingComponent
		}
		if !InRange(score) {
			return decimal.Zero, ErrScoreOutOfRange
		}
		total = total.Add(entry.weight.Mul(score))
	}
	// Weights sum to 1.0, so this cap only guards against malformed weights.
	if total.GreaterThan(one) {
		total = one
	}
	return total, nil
}

// Multiplier scales a raw cost into weighted cost: 0.5 + score, in [0.5, 1.5].
func Multiplier(score decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(0.5).Add(score)
}

// InRange reports whether score is a valid coherence value. Out-of-range
// scores are rejected at ingestion, never clamped.
func InRange(score decimal.Decimal) bool {
	return !score.IsNegative() && !score.GreaterThan(one)
}

// ComponentNames lists the required component set in weight order.
func ComponentNames() []string {
	names := make([]string, 0, len(componentWeights))
	for _, entry := range componentWeights {
		names = append(names, entry.name)
	}
	return names
}
