package operators

import (
	"math"
	"testing"
)

// TestRelaxationFixedPoint checks spec.md §8's "Relaxation fixed point":
// repeatedly applying only relaxation drives Z(k=0) -> M0 and all other
// components -> 0 geometrically.
func TestRelaxationFixedPoint(t *testing.T) {
	tau := 0.01 // 10 ms
	r1 := 1.0   // 1/s
	r2 := 10.0  // 1/s
	m0 := 1.0
	r := NewRelaxation(tau, r1, r2)

	fPlus, fMinus, z := complex(0.5, 0.2), complex(0.3, -0.1), complex(0.9, 0)
	prevFPlus, prevZDistance := fPlus, math.Abs(real(z)-m0)

	for i := 0; i < 500; i++ {
		fPlus, fMinus, z = r.Apply(fPlus, fMinus, z)
		z += r.Recovery(m0)

		zDistance := math.Abs(real(z) - m0)
		if i > 0 {
			ratio := math.Abs(real(fPlus)) / math.Abs(real(prevFPlus))
			if math.Abs(ratio-math.Exp(-tau*r2)) > 1e-9 {
				t.Fatalf("step %d: F+ decay ratio %v, want %v", i, ratio, math.Exp(-tau*r2))
			}
			ratioZ := zDistance / prevZDistance
			if math.Abs(ratioZ-math.Exp(-tau*r1)) > 1e-9 {
				t.Fatalf("step %d: Z convergence ratio %v, want %v", i, ratioZ, math.Exp(-tau*r1))
			}
		}
		prevZDistance = zDistance
		prevFPlus = fPlus
		_ = fMinus
	}

	if math.Abs(real(z)-m0) > 1e-3 {
		t.Errorf("Z did not converge to M0: got %v, want %v", real(z), m0)
	}
}

func TestRelaxationShortCircuit(t *testing.T) {
	if ShouldApplyRelaxation(0, 0) {
		t.Error("expected short-circuit when R1=R2=0")
	}
	if !ShouldApplyRelaxation(1, 0) {
		t.Error("expected relaxation to apply when R1!=0")
	}
}
