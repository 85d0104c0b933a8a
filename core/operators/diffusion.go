package operators

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Diffusion is the per-state diagonal attenuation of spec.md §4.3:
// exp(-b·D) applied separately to F+, F-* and Z. FPlus/FMinus/Z are the
// (real, non-negative) attenuation factors, pre-multiplied by D so the
// EPG containers only need a complex multiply per component.
type Diffusion struct {
	FPlus, FMinus, Z float64
}

// NewDiffusion1D builds the diffusion operator for a 1-D (Regular or
// Discrete) model: k and deltaK are the scalar dephasing order and its
// increment over the interval, d is the (isotropic) diffusion
// coefficient in m^2/s. The asymmetry between the F+ and F-* exponents
// is load-bearing: F-*(k) stores F(-k*), so its b-value uses -k
// (spec.md §4.3).
func NewDiffusion1D(tau, k, deltaK, d float64) Diffusion {
	bPlus := tau * (sq(k+deltaK/2) + sq(deltaK)/12)
	bMinus := tau * (sq(-k+deltaK/2) + sq(deltaK)/12)
	bL := tau * sq(k)
	return Diffusion{
		FPlus:  math.Exp(-bPlus * d),
		FMinus: math.Exp(-bMinus * d),
		Z:      math.Exp(-bL * d),
	}
}

// NewDiffusion3D generalizes the above to a 3-D order vector and a full
// diffusion tensor, per spec.md §4.3's "tensor contraction in 3-D":
// each b-value becomes a symmetric 3x3 b-matrix (the outer product of
// the relevant direction vector, as in standard diffusion-MRI b-matrix
// formalism) contracted against D via trace(b·D). This reduces to the
// 1-D formula exactly when D is isotropic and k/deltaK are collinear
// with a single axis, which is how the two are cross-checked in tests.
func NewDiffusion3D(tau float64, k, deltaK [3]float64, d *mat.SymDense) Diffusion {
	var vPlus, vMinus [3]float64
	for i := 0; i < 3; i++ {
		vPlus[i] = k[i] + deltaK[i]/2
		vMinus[i] = -k[i] + deltaK[i]/2
	}

	contractOuter := func(v [3]float64, extra float64) float64 {
		sum := 0.0
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				b := tau * (v[i]*v[j] + extra*deltaK[i]*deltaK[j])
				sum += b * d.At(i, j)
			}
		}
		return sum
	}
	contractK := func() float64 {
		sum := 0.0
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				sum += tau * k[i] * k[j] * d.At(i, j)
			}
		}
		return sum
	}

	return Diffusion{
		FPlus:  math.Exp(-contractOuter(vPlus, 1.0/12)),
		FMinus: math.Exp(-contractOuter(vMinus, 1.0/12)),
		Z:      math.Exp(-contractK()),
	}
}

func sq(x float64) float64 { return x * x }

// Apply multiplies a state's three components by the attenuation
// factors.
func (d Diffusion) Apply(fPlus, fMinus, z complex128) (complex128, complex128, complex128) {
	return complex(d.FPlus, 0) * fPlus, complex(d.FMinus, 0) * fMinus, complex(d.Z, 0) * z
}
