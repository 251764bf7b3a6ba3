package commands

import (
	"sort"

	"github.com/shopspring/decimal"

	domainerrors "tessera/contexts/value-attribution/distribution-engine/domain/errors"
)

// centUnit is the minimum currency increment payouts are settled in.
var centUnit = decimal.New(1, -2)

type weightedShare struct {
	ContributorID string
	WeightedCost  decimal.Decimal
	RawCost       decimal.Decimal
}

// normalizePayouts converts weighted-cost shares into exact-sum currency
// amounts: each raw payout is computed at full precision, truncated to two
// decimal places, and the leftover is handed out one cent at a time to the
// largest fractional remainders first (ties broken by ascending contributor
// id). The returned amounts sum to valueAmount exactly; anything else is an
// internal invariant violation.
func normalizePayouts(valueAmount decimal.Decimal, totalWeighted decimal.Decimal, shares []weightedShare) ([]decimal.Decimal, error) {
	amounts := make([]decimal.Decimal, len(shares))
	remainders := make([]decimal.Decimal, len(shares))
	floorSum := decimal.Zero
	for i, share := range shares {
		raw := valueAmount.Mul(share.WeightedCost).Div(totalWeighted)
		floor := raw.RoundDown(2)
		amounts[i] = floor
		remainders[i] = raw.Sub(floor)
		floorSum = floorSum.Add(floor)
	}

	leftover := valueAmount.Sub(floorSum)
	if leftover.IsNegative() {
		return nil, domainerrors.ErrPayoutReconciliation
	}
	cents := leftover.Div(centUnit).IntPart()

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		left, right := order[a], order[b]
		if !remainders[left].Equal(remainders[right]) {
			return remainders[left].GreaterThan(remainders[right])
		}
		return shares[left].ContributorID < shares[right].ContributorID
	})
	for k := int64(0); k < cents; k++ {
		idx := order[int(k)%len(order)]
		amounts[idx] = amounts[idx].Add(centUnit)
	}

	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	if !total.Equal(valueAmount) {
		return nil, domainerrors.ErrPayoutReconciliation
	}
	return amounts, nil
}
