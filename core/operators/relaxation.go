package operators

import "math"

// Relaxation is the diagonal E = diag(E2, E2, E1) of spec.md §4.2.
type Relaxation struct {
	E1, E2 float64
}

// NewRelaxation builds the relaxation operator for an interval of
// duration tau (seconds) given rates r1, r2 (1/s, may be zero).
func NewRelaxation(tau, r1, r2 float64) Relaxation {
	return Relaxation{E1: math.Exp(-tau * r1), E2: math.Exp(-tau * r2)}
}

// ShouldApplyRelaxation reports whether relaxation has any effect;
// spec.md §4.2 allows a short-circuit when both rates are zero.
func ShouldApplyRelaxation(r1, r2 float64) bool { return r1 != 0 || r2 != 0 }

// Apply multiplies every state's three components by E.
func (r Relaxation) Apply(fPlus, fMinus, z complex128) (complex128, complex128, complex128) {
	return complex(r.E2, 0) * fPlus, complex(r.E2, 0) * fMinus, complex(r.E1, 0) * z
}

// Recovery returns the longitudinal recovery term (1-E1)*M0, added only
// to the Z component of the k=0 state (spec.md §4.2).
func (r Relaxation) Recovery(m0 float64) complex128 {
	return complex((1-r.E1)*m0, 0)
}
