package commands

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func shareOf(id string, weighted string) weightedShare {
	return weightedShare{ContributorID: id, WeightedCost: dec(weighted), RawCost: dec(weighted)}
}

func sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}

func TestNormalizePayoutsExactSplit(t *testing.T) {
	shares := []weightedShare{shareOf("c-a", "700"), shareOf("c-b", "500")}
	amounts, err := normalizePayouts(dec("1000"), dec("1200"), shares)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	// Raw payouts are 583.33... and 416.66...; the leftover cent goes to the
	// larger fractional remainder.
	if !amounts[0].Equal(dec("583.33")) || !amounts[1].Equal(dec("416.67")) {
		t.Fatalf("unexpected amounts: %s, %s", amounts[0], amounts[1])
	}
	if !sum(amounts).Equal(dec("1000")) {
		t.Fatalf("amounts do not sum to value: %s", sum(amounts))
	}
}

func TestNormalizePayoutsSumInvariantOnAwkwardSplit(t *testing.T) {
	// Three equal shares over 100.00 cannot divide evenly at cents.
	shares := []weightedShare{shareOf("c-a", "1"), shareOf("c-b", "1"), shareOf("c-c", "1")}
	amounts, err := normalizePayouts(dec("100"), dec("3"), shares)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !sum(amounts).Equal(dec("100")) {
		t.Fatalf("amounts do not sum to value: %s", sum(amounts))
	}
	// 33.33 each leaves one cent; the remainder tie breaks by contributor id.
	if !amounts[0].Equal(dec("33.34")) {
		t.Fatalf("expected first contributor to receive the leftover cent, got %s", amounts[0])
	}
	if !amounts[1].Equal(dec("33.33")) || !amounts[2].Equal(dec("33.33")) {
		t.Fatalf("unexpected amounts: %s, %s", amounts[1], amounts[2])
	}
}

func TestNormalizePayoutsLargestRemainderFirst(t *testing.T) {
	// Raw payouts: 66.666... and 33.333...; the higher remainder wins the cent.
	shares := []weightedShare{shareOf("c-a", "2"), shareOf("c-b", "1")}
	amounts, err := normalizePayouts(dec("100"), dec("3"), shares)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !amounts[0].Equal(dec("66.67")) || !amounts[1].Equal(dec("33.33")) {
		t.Fatalf("unexpected amounts: %s, %s", amounts[0], amounts[1])
	}
}

func TestNormalizePayoutsSingleContributorTakesAll(t *testing.T) {
	shares := []weightedShare{shareOf("c-solo", "42.5")}
	amounts, err := normalizePayouts(dec("250.01"), dec("42.5"), shares)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !amounts[0].Equal(dec("250.01")) {
		t.Fatalf("expected full amount, got %s", amounts[0])
	}
}

func TestNormalizePayoutsDeterministic(t *testing.T) {
	shares := []weightedShare{
		shareOf("c-a", "137.41"),
		shareOf("c-b", "98.03"),
		shareOf("c-c", "11.56"),
	}
	total := dec("247")
	first, err := normalizePayouts(dec("999.99"), total, shares)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	second, err := normalizePayouts(dec("999.99"), total, shares)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("non-deterministic amount at %d: %s vs %s", i, first[i], second[i])
		}
	}
	if !sum(first).Equal(dec("999.99")) {
		t.Fatalf("amounts do not sum to value: %s", sum(first))
	}
}
