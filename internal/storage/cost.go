package storage

const (
	// BaseCost is charged for every shipment regardless of weight.
	BaseCost = 50.0
	// WeightRate applies per kilogram above the first.
	WeightRate = 20.0
	// FragileSurcharge is a flat addition for fragile packages.
	FragileSurcharge = 30.0
)

// ComputeCost is the single authoritative delivery cost formula. The public
// pricing estimate endpoint and order creation both go through it; the value
// stored at creation is binding and never recomputed.
//
// The caller is responsible for rejecting non-positive weight beforehand.
func ComputeCost(weight float64, packageType PackageType) float64 {
	cost := BaseCost
	if weight > 1 {
		cost += (weight - 1) * WeightRate
	}
	if packageType == PackageFragile {
		cost += FragileSurcharge
	}
	return cost
}
