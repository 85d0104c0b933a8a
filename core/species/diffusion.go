package species

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/lamyj/sycomore/core/quantity"
	"github.com/lamyj/sycomore/core/quantity/units"
	"github.com/lamyj/sycomore/shared/types"
)

// DiffusionTensor is the 3x3 symmetric, positive semi-definite diffusion
// tensor of spec.md §3. Internally it is stored as plain float64 in SI
// base units (m^2/s); Quantity is only used at the construction
// boundary, so the hot operator loop (core/operators) never pays for
// dimension bookkeeping.
type DiffusionTensor struct {
	m    *mat.SymDense
	zero bool
}

// ZeroDiffusion returns the tensor used by default: D = 0, which lets
// the diffusion operator short-circuit per spec.md §4.3.
func ZeroDiffusion() DiffusionTensor {
	return DiffusionTensor{m: mat.NewSymDense(3, nil), zero: true}
}

// IsZero reports whether the tensor is identically zero.
func (d DiffusionTensor) IsZero() bool { return d.zero }

// At returns D[i][j] in m^2/s.
func (d DiffusionTensor) At(i, j int) float64 { return d.m.At(i, j) }

// Dense exposes the underlying matrix for use by the diffusion operator.
func (d DiffusionTensor) Dense() *mat.SymDense { return d.m }

// FromScalar broadcasts a scalar diffusion coefficient to diag(d,d,d), as
// spec.md §3 requires ("Scalar assignment broadcasts to diag(d,d,d)").
func FromScalar(d quantity.Quantity) (DiffusionTensor, error) {
	if err := checkDiffusivityDimension(d); err != nil {
		return DiffusionTensor{}, err
	}
	sym := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		sym.SetSym(i, i, d.Magnitude)
	}
	return DiffusionTensor{m: sym, zero: d.Magnitude == 0}, nil
}

// FromTensor builds a general 3x3 symmetric diffusion tensor. The input
// must hold all nine entries with each off-diagonal pair equal (a tensor
// with only one triangle filled in is rejected as asymmetric);
// it is validated for symmetry and positive semi-definiteness via an
// eigendecomposition (gonum.org/v1/gonum/mat), since an indefinite
// diffusion tensor has no physical meaning and would silently corrupt
// every interval applied afterwards.
func FromTensor(t [3][3]quantity.Quantity) (DiffusionTensor, error) {
	raw := make([]float64, 9)
	anyNonZero := false
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if err := checkDiffusivityDimension(t[i][j]); err != nil {
				return DiffusionTensor{}, err
			}
			raw[i*3+j] = t[i][j].Magnitude
			if t[i][j].Magnitude != 0 {
				anyNonZero = true
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if raw[i*3+j] != raw[j*3+i] {
				return DiffusionTensor{}, types.New(
					types.InvalidArgument, "diffusion tensor is not symmetric",
					fmt.Sprintf("D[%d][%d]=%g vs D[%d][%d]=%g", i, j, raw[i*3+j], j, i, raw[j*3+i]),
				)
			}
		}
	}
	sym := mat.NewSymDense(3, raw)
	if anyNonZero {
		var eigen mat.EigenSym
		if ok := eigen.Factorize(sym, false); !ok {
			return DiffusionTensor{}, types.New(types.InvalidArgument, "diffusion tensor eigendecomposition failed")
		}
		for _, v := range eigen.Values(nil) {
			if v < -1e-18 {
				return DiffusionTensor{}, types.New(
					types.InvalidArgument, "diffusion tensor is not positive semi-definite",
					fmt.Sprintf("eigenvalue %g < 0", v),
				)
			}
		}
	}
	return DiffusionTensor{m: sym, zero: !anyNonZero}, nil
}

func checkDiffusivityDimension(d quantity.Quantity) error {
	probe := units.SquareMetersPerSecond(1)
	if !d.Dimension.Equal(probe.Dimension) {
		return types.New(
			types.InvalidArgument, "diffusion coefficient must have area/time dimension",
			fmt.Sprintf("got %s", d.Dimension),
		)
	}
	return nil
}
