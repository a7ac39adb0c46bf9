package payment

import (
	"math"
	"sort"
)

// StarsToUSDRate is the published Telegram Stars exchange rate: 1 star = $0.01.
const StarsToUSDRate = 0.01

// TopupOption is one preset offered in the top-up menu.
type TopupOption struct {
	Stars   int64
	USD     int64
	Credits int64
}

// TopupOptions are the presets rendered as menu buttons.
var TopupOptions = []TopupOption{
	{Stars: 200, USD: 3, Credits: 150},
	{Stars: 400, USD: 6, Credits: 300},
	{Stars: 650, USD: 10, Credits: 500},
	{Stars: 1300, USD: 20, Credits: 1000},
	{Stars: 2600, USD: 40, Credits: 2000},
	{Stars: 3850, USD: 60, Credits: 3000},
	{Stars: 5150, USD: 80, Credits: 4000},
}

// starsMap holds the pricing anchor points for interpolation. The anchors
// differ slightly from the menu presets; both sets are kept as-is because
// existing invoices were priced against them.
var starsMap = map[int64]int64{
	150:  400,
	250:  650,
	500:  1300,
	1000: 2600,
	1500: 3850,
	2000: 5150,
}

// StarsForCredits converts a credit amount to the Telegram Stars price.
// Preset menu amounts use their exact price; anything else is linearly
// interpolated between the nearest anchors, extrapolated at the edges.
func StarsForCredits(credits int64) int64 {
	for _, opt := range TopupOptions {
		if opt.Credits == credits {
			return opt.Stars
		}
	}
	if stars, ok := starsMap[credits]; ok {
		return stars
	}

	anchors := make([]int64, 0, len(starsMap))
	for c := range starsMap {
		anchors = append(anchors, c)
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i] < anchors[j] })

	lowest, highest := anchors[0], anchors[len(anchors)-1]
	if credits < lowest {
		return credits * starsMap[lowest] / lowest
	}
	if credits > highest {
		return credits * starsMap[highest] / highest
	}

	var lower, upper int64
	for _, a := range anchors {
		if a <= credits {
			lower = a
		}
		if a >= credits {
			upper = a
			break
		}
	}

	ratio := float64(credits-lower) / float64(upper-lower)
	stars := float64(starsMap[lower]) + (float64(starsMap[upper])-float64(starsMap[lower]))*ratio
	return int64(math.Ceil(stars))
}

// USDBreakdown returns the gross/net/fee USD amounts for a stars payment.
// Telegram takes no fee on Stars, so net equals gross.
func USDBreakdown(starsAmount int64) (net, gross, fee float64) {
	gross = float64(starsAmount) * StarsToUSDRate
	return gross, gross, 0
}
