package operators

import "math/cmplx"

// OffResonance is the k-independent phase of spec.md §4.6: F+ gains a
// phase of exp(+i·Δω·τ), F-* the conjugate, Z is untouched. spec.md §9
// resolves the source's ambiguous treatment of Z under off-resonance as
// Z-invariant, which is why Apply below never touches its third input.
type OffResonance struct {
	plus, minus complex128
}

// NewOffResonance builds the operator for an interval of duration tau
// and total angular frequency offset deltaOmega (species + field).
func NewOffResonance(tau, deltaOmega float64) OffResonance {
	theta := deltaOmega * tau
	return OffResonance{plus: cmplx.Rect(1, theta), minus: cmplx.Rect(1, -theta)}
}

// ShouldApplyOffResonance reports whether the phase step has any effect.
func ShouldApplyOffResonance(deltaOmega float64) bool { return deltaOmega != 0 }

// Apply rotates F+ and F-*; z is returned unchanged.
func (o OffResonance) Apply(fPlus, fMinus, z complex128) (complex128, complex128, complex128) {
	return o.plus * fPlus, o.minus * fMinus, z
}
