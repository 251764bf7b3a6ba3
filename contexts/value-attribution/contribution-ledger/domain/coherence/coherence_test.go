package coherence

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func fullComponents(value string) map[string]decimal.Decimal {
	score := decimal.RequireFromString(value)
	components := make(map[string]decimal.Decimal)
	for _, name := range ComponentNames() {
		components[name] = score
	}
	return components
}

func TestComputeUniformComponentsEqualsComponentValue(t *testing.T) {
	score, err := Compute(fullComponents("0.8"))
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if !score.Equal(decimal.RequireFromString("0.8")) {
		t.Fatalf("expected 0.8, got %s", score)
	}
}

func TestComputeWeightedMix(t *testing.T) {
	components := fullComponents("0")
	components[ComponentQuality] = decimal.RequireFromString("1")      // weight 0.20
	components[ComponentTestCoverage] = decimal.RequireFromString("1") // weight 0.15

	score, err := Compute(components)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if !score.Equal(decimal.RequireFromString("0.35")) {
		t.Fatalf("expected 0.35, got %s", score)
	}
}

func TestComputeMissingComponentRejected(t *testing.T) {
	components := fullComponents("0.5")
	delete(components, ComponentNovelty)

	if _, err := Compute(components); !errors.Is(err, ErrMissingComponent) {
		t.Fatalf("expected ErrMissingComponent, got %v", err)
	}
}

func TestComputeOutOfRangeComponentRejected(t *testing.T) {
	components := fullComponents("0.5")
	components[ComponentNetwork] = decimal.RequireFromString("1.01")

	if _, err := Compute(components); !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("expected ErrScoreOutOfRange, got %v", err)
	}

	components[ComponentNetwork] = decimal.RequireFromString("-0.01")
	if _, err := Compute(components); !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("expected ErrScoreOutOfRange for negative score, got %v", err)
	}
}

func TestMultiplierRange(t *testing.T) {
	cases := []struct {
		score string
		want  string
	}{
		{"0", "0.5"},
		{"0.5", "1"},
		{"1", "1.5"},
	}
	for _, tc := range cases {
		got := Multiplier(decimal.RequireFromString(tc.score))
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("multiplier(%s) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestInRangeBoundaries(t *testing.T) {
	if !InRange(decimal.Zero) || !InRange(decimal.NewFromInt(1)) {
		t.Fatalf("expected 0 and 1 to be in range")
	}
	if InRange(decimal.RequireFromString("1.000001")) {
		t.Fatalf("expected score above 1 to be out of range")
	}
}
