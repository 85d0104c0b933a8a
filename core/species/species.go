// Package species bundles the tissue parameters spec.md §3 attaches to
// an EPG model: relaxation rates, diffusion tensor and chemical-shift
// offset. It is grounded on the teacher's core/hilbert.QuantumState —
// the same "small immutable value object, validated once at
// construction" shape — generalized from a quantum-state amplitude
// vector to a relaxation/diffusion/offset record.
package species

import (
	"fmt"

	"github.com/lamyj/sycomore/core/quantity"
	"github.com/lamyj/sycomore/core/quantity/units"
	"github.com/lamyj/sycomore/shared/types"
)

// Species is a value object: once constructed it is never mutated, so a
// Model built from it may be safely run on its own goroutine alongside
// any other Model built from the same or a different Species
// (spec.md §5: "no shared mutable state").
type Species struct {
	R1, R2     quantity.Quantity // inverse-time rates, may be zero to disable
	D          DiffusionTensor
	DeltaOmega quantity.Quantity // angular frequency offset (chemical shift)
	M0         float64           // equilibrium longitudinal magnetization
}

// Option configures optional Species fields at construction time.
type Option func(*Species) error

// WithDiffusivity sets an isotropic diffusion coefficient, broadcasting
// to diag(d,d,d).
func WithDiffusivity(d quantity.Quantity) Option {
	return func(s *Species) error {
		t, err := FromScalar(d)
		if err != nil {
			return err
		}
		s.D = t
		return nil
	}
}

// WithDiffusionTensor sets a general symmetric diffusion tensor.
func WithDiffusionTensor(d [3][3]quantity.Quantity) Option {
	return func(s *Species) error {
		t, err := FromTensor(d)
		if err != nil {
			return err
		}
		s.D = t
		return nil
	}
}

// WithChemicalShift sets the species' angular frequency offset.
func WithChemicalShift(deltaOmega quantity.Quantity) Option {
	return func(s *Species) error {
		probe := units.RadiansPerSecond(1)
		if !deltaOmega.Dimension.Equal(probe.Dimension) {
			return types.New(types.InvalidArgument, "delta_omega must be an angular frequency",
				fmt.Sprintf("got %s", deltaOmega.Dimension))
		}
		s.DeltaOmega = deltaOmega
		return nil
	}
}

// WithM0 sets the equilibrium longitudinal magnetization (default 1).
func WithM0(m0 float64) Option {
	return func(s *Species) error {
		if m0 <= 0 {
			return types.New(types.InvalidArgument, "M0 must be positive", fmt.Sprintf("got %g", m0))
		}
		s.M0 = m0
		return nil
	}
}

// New builds a Species from either relaxation times or relaxation
// rates (or one of each), exactly as the original Python API allows:
// New(1000*ms, 100*ms), New(1*Hz, 10*Hz) and New(1000*ms, 10*Hz) are all
// valid. The dimension of each argument (time vs frequency) selects the
// interpretation.
func New(r1OrT1, r2OrT2 quantity.Quantity, opts ...Option) (Species, error) {
	r1, err := toRate(r1OrT1, "R1/T1")
	if err != nil {
		return Species{}, err
	}
	r2, err := toRate(r2OrT2, "R2/T2")
	if err != nil {
		return Species{}, err
	}

	s := Species{R1: r1, R2: r2, D: ZeroDiffusion(), M0: 1}
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return Species{}, err
		}
	}
	return s, nil
}

func toRate(q quantity.Quantity, label string) (quantity.Quantity, error) {
	timeDim := units.Seconds(1).Dimension
	freqDim := units.Hertz(1).Dimension

	switch {
	case q.Dimension.Equal(freqDim):
		if q.Magnitude < 0 {
			return quantity.Quantity{}, types.New(types.InvalidArgument, label+" rate must be non-negative",
				fmt.Sprintf("got %g", q.Magnitude))
		}
		return q, nil
	case q.Dimension.Equal(timeDim):
		if q.Magnitude <= 0 {
			return quantity.Quantity{}, types.New(types.InvalidArgument, label+" time constant must be strictly positive",
				fmt.Sprintf("got %g", q.Magnitude))
		}
		return units.Hertz(1 / q.Magnitude), nil
	default:
		return quantity.Quantity{}, types.New(types.InvalidArgument, label+" must be a time or a frequency",
			fmt.Sprintf("got dimension %s", q.Dimension))
	}
}

// Copy returns a value copy; since DiffusionTensor embeds a pointer to
// a gonum matrix, a direct struct copy would alias the tensor storage.
// Copy is used by callers (e.g. the console) that fan one starting
// species out across several independently-mutated models.
func (s Species) Copy() Species {
	out := s
	if s.D.m != nil {
		cp, _ := FromTensor([3][3]quantity.Quantity{
			{units.SquareMetersPerSecond(s.D.At(0, 0)), units.SquareMetersPerSecond(s.D.At(0, 1)), units.SquareMetersPerSecond(s.D.At(0, 2))},
			{units.SquareMetersPerSecond(s.D.At(1, 0)), units.SquareMetersPerSecond(s.D.At(1, 1)), units.SquareMetersPerSecond(s.D.At(1, 2))},
			{units.SquareMetersPerSecond(s.D.At(2, 0)), units.SquareMetersPerSecond(s.D.At(2, 1)), units.SquareMetersPerSecond(s.D.At(2, 2))},
		})
		out.D = cp
	}
	return out
}
