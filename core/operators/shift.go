package operators

import "math"

// RoundOrder rounds a physical dephasing increment to the nearest
// integer multiple of binWidth, per spec.md §4.4 step 1 ("Given an
// integer order increment δ = round(γ·G·τ / bin_width)"). Shared by the
// Discrete 1-D, 3-D and multi-pool gradient operators. The Regular
// container calls it with unit_gradient_area to get its step count and
// panics when the area is not already a whole multiple of that unit, so
// it never quantizes.
func RoundOrder(deltaPhysical, binWidth float64) int64 {
	return int64(math.Round(deltaPhysical / binWidth))
}
