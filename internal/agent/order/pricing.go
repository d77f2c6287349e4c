package order

import "strings"

// Menu is the fixed catalog returned by the get_menu tool.
const Menu = `
DRINKS:
- Espresso: $3.00
- Americano: $3.50
- Latte: $4.50
- Cappuccino: $4.50
- Mocha: $5.00
- Cold Brew: $4.00

FOOD:
- Croissant: $3.50
- Muffin: $3.00
- Bagel: $3.50
- Cookie: $2.50

MODIFIERS (add to any drink):
- Oat milk: +$0.75
- Almond milk: +$0.75
- Extra shot: +$0.50
- Vanilla syrup: +$0.50
`

// PricingEntry maps a lowercase match key to a unit price.
type PricingEntry struct {
	Match string
	Price float64
}

// BaseItems is scanned in order; the first key contained in the line wins.
// Slices rather than maps so the iteration order is deterministic.
var BaseItems = []PricingEntry{
	{"espresso", 3.00},
	{"americano", 3.50},
	{"latte", 4.50},
	{"cappuccino", 4.50},
	{"mocha", 5.00},
	{"cold brew", 4.00},
	{"croissant", 3.50},
	{"muffin", 3.00},
	{"bagel", 3.50},
	{"cookie", 2.50},
}

// Modifiers are cumulative: every key contained in the line adds its price.
// Note "vanilla syrup" and "vanilla" both match a line saying "vanilla syrup";
// substring matching is a known limitation of the free-text order lines.
var Modifiers = []PricingEntry{
	{"oat milk", 0.75},
	{"almond milk", 0.75},
	{"extra shot", 0.50},
	{"vanilla syrup", 0.50},
	{"vanilla", 0.50},
}

// PriceOf computes the price of one free-text order line. Lines matching no
// table entry are priced at 0 rather than rejected, so unrecognized items
// flow through the conversation instead of failing it.
func PriceOf(line string) float64 {
	lower := strings.ToLower(line)
	price := 0.0

	for _, entry := range BaseItems {
		if strings.Contains(lower, entry.Match) {
			price = entry.Price
			break
		}
	}

	for _, entry := range Modifiers {
		if strings.Contains(lower, entry.Match) {
			price += entry.Price
		}
	}

	return price
}

// TotalOf sums PriceOf over all lines. An empty order totals 0.
func TotalOf(lines []string) float64 {
	total := 0.0
	for _, line := range lines {
		total += PriceOf(line)
	}
	return total
}
