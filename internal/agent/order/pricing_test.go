package order

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPriceOfBasePlusModifiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		line string
		want float64
	}{
		{"base only", "Espresso", 3.00},
		{"base with one modifier", "Latte with oat milk", 5.25},
		{"base with two modifiers", "Latte with oat milk and extra shot", 5.75},
		{"modifier order irrelevant", "extra shot oat milk Latte", 5.75},
		{"case insensitive", "LATTE WITH OAT MILK", 5.25},
		{"food item", "Croissant", 3.50},
		{"vanilla syrup matches both vanilla entries", "Mocha with vanilla syrup", 6.00},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := PriceOf(tc.line); !almostEqual(got, tc.want) {
				t.Fatalf("PriceOf(%q) = %.2f, want %.2f", tc.line, got, tc.want)
			}
		})
	}
}

func TestPriceOfUnmatchedLineIsZero(t *testing.T) {
	t.Parallel()

	for _, line := range []string{"", "green tea", "something completely different"} {
		if got := PriceOf(line); got != 0 {
			t.Fatalf("PriceOf(%q) = %.2f, want 0.00", line, got)
		}
	}
}

func TestPriceOfFirstBaseMatchWins(t *testing.T) {
	t.Parallel()

	// "espresso" precedes "latte" in the base table, so only espresso's base
	// price contributes even though both names appear in the line.
	if got := PriceOf("espresso and latte combo"); !almostEqual(got, 3.00) {
		t.Fatalf("PriceOf = %.2f, want 3.00", got)
	}
}

func TestTotalOf(t *testing.T) {
	t.Parallel()

	if got := TotalOf(nil); got != 0 {
		t.Fatalf("TotalOf(nil) = %.2f, want 0.00", got)
	}

	lines := []string{"Espresso", "Croissant"}
	if got := TotalOf(lines); !almostEqual(got, 6.50) {
		t.Fatalf("TotalOf = %.2f, want 6.50", got)
	}

	reversed := []string{"Croissant", "Espresso"}
	if !almostEqual(TotalOf(lines), TotalOf(reversed)) {
		t.Fatal("TotalOf should not depend on line ordering")
	}
}
