package risk

import "math"

// PlannedRisk is the absolute amount lost if the stop is hit, for a
// points-quoted instrument (index points map 1:1 to currency per unit).
func PlannedRisk(entry, stop float64, qty int) float64 {
	return math.Abs(entry-stop) * float64(qty)
}

// QtyForRisk sizes a position so a stop-out loses at most riskPct of
// equity, rounded down to whole lots. Returns 0 when the inputs cannot
// support a single lot.
func QtyForRisk(equity, riskPct, entry, stop float64, lotSize int) int {
	if lotSize <= 0 {
		lotSize = 1
	}
	dist := math.Abs(entry - stop)
	if equity <= 0 || riskPct <= 0 || dist <= 0 {
		return 0
	}

	maxQty := equity * riskPct / dist
	lots := int(maxQty) / lotSize
	return lots * lotSize
}

// RR returns the reward-to-risk ratio for an entry/stop/target triple.
func RR(entry, stop, target float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(target-entry) / risk
}
