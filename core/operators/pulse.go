// Package operators builds the per-event operator matrices described in
// spec.md §4 (pulse, relaxation, diffusion, off-resonance, and the
// scalar half of the gradient/shift operator) as small value objects.
// They take plain float64/complex128 SI magnitudes rather than
// quantity.Quantity: the EPG containers convert at their public
// boundary (spec.md §9 "Open question") and these inner loops — run
// once per state per event, over potentially millions of states — never
// pay for dimension bookkeeping.
//
// This package is grounded on the teacher's core/operators.Operator
// family: a value type wrapping a fixed 3x3 complex matrix with an
// Apply method, generalized from "multiply a prime-indexed basis
// vector" to "mix the three EPG components of one configuration state".
package operators

import (
	"math"
	"math/cmplx"
)

// Pulse is the 3x3 rotation T(α,φ) of spec.md §4.1, mixing (F+, F-*, Z).
type Pulse struct {
	m [3][3]complex128
}

// NewPulse builds T(α,φ). α and φ are in radians.
func NewPulse(alpha, phi float64) Pulse {
	half := alpha / 2
	cos2 := math.Cos(half) * math.Cos(half)
	sin2 := math.Sin(half) * math.Sin(half)
	sinAlpha := complex(math.Sin(alpha), 0)
	eiphi := cmplx.Rect(1, phi)
	e2iphi := cmplx.Rect(1, 2*phi)
	negI := complex(0, -1)
	posI := complex(0, 1)

	return Pulse{m: [3][3]complex128{
		{complex(cos2, 0), e2iphi * complex(sin2, 0), negI * eiphi * sinAlpha},
		{cmplx.Conj(e2iphi) * complex(sin2, 0), complex(cos2, 0), posI * cmplx.Conj(eiphi) * sinAlpha},
		{negI / 2 * cmplx.Conj(eiphi) * sinAlpha, posI / 2 * eiphi * sinAlpha, complex(math.Cos(alpha), 0)},
	}}
}

// Apply replaces (fPlus, fMinus, z) with T·(fPlus, fMinus, z). No state
// is created or destroyed; the caller applies this to every occupied
// order.
func (p Pulse) Apply(fPlus, fMinus, z complex128) (complex128, complex128, complex128) {
	return p.m[0][0]*fPlus + p.m[0][1]*fMinus + p.m[0][2]*z,
		p.m[1][0]*fPlus + p.m[1][1]*fMinus + p.m[1][2]*z,
		p.m[2][0]*fPlus + p.m[2][1]*fMinus + p.m[2][2]*z
}

// At returns T[i][j], used by tests checking unitarity directly.
func (p Pulse) At(i, j int) complex128 { return p.m[i][j] }
