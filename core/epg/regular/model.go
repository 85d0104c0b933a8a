// Package regular implements the dense, 1-D Regular EPG model of
// spec.md §3/§4.5: gradient shifts move the whole coherence ladder by
// a whole number of units of `unit_gradient_area`, so configuration states
// live in a flat, growable buffer indexed 0..size-1 instead of a
// key-sorted map.
//
// Grounded on the teacher's core/hilbert.HilbertSpace (owns a fixed
// buffer, mutated only through operator application) and on
// docs/epg/regular.py's column-buffer layout from the original source,
// adapted here to grow by doubling (spec.md §9) rather than by a fixed
// increment.
package regular

import (
	"math/cmplx"

	"github.com/google/uuid"

	"github.com/lamyj/sycomore/core/operators"
	"github.com/lamyj/sycomore/core/quantity"
	"github.com/lamyj/sycomore/core/quantity/units"
	"github.com/lamyj/sycomore/core/species"
	"github.com/lamyj/sycomore/shared/types"
)

const initialCapacity = 16

// Model is a Regular (dense 1-D) EPG state. The zero value is not
// usable; construct with New.
type Model struct {
	id               string // diagnostic instance ID, log correlation only
	species          species.Species
	fPlus, fMinus, z []complex128
	size             int
	unitGradientArea float64 // rad/m
	deltaOmega       float64 // rad/s, model-level (field) off-resonance
	elapsed          float64 // seconds
}

// Option configures optional Model construction parameters.
type Option func(*Model) error

// WithUnitGradientArea sets the gradient area (rad/m) corresponding to
// exactly one column shift (default 1 rad/m).
func WithUnitGradientArea(area quantity.Quantity) Option {
	return func(m *Model) error {
		probe := units.RadiansPerMeter(1)
		if !area.Dimension.Equal(probe.Dimension) {
			return types.New(types.InvalidArgument, "unit_gradient_area must be an inverse length",
				"got "+area.Dimension.String())
		}
		if area.Magnitude <= 0 {
			return types.New(types.InvalidArgument, "unit_gradient_area must be strictly positive")
		}
		m.unitGradientArea = area.Magnitude
		return nil
	}
}

// WithInitialSize pre-allocates capacity for the given number of
// columns (default 16).
func WithInitialSize(n int) Option {
	return func(m *Model) error {
		if n < 1 {
			return types.New(types.InvalidArgument, "initial size must be at least 1")
		}
		m.fPlus = make([]complex128, n)
		m.fMinus = make([]complex128, n)
		m.z = make([]complex128, n)
		return nil
	}
}

// New builds a Regular EPG model at equilibrium: a single k=0 column
// with Z = species.M0.
func New(sp species.Species, opts ...Option) (*Model, error) {
	m := &Model{
		id:               uuid.New().String(),
		species:          sp,
		unitGradientArea: 1.0,
		size:             1,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.fPlus == nil {
		m.fPlus = make([]complex128, initialCapacity)
		m.fMinus = make([]complex128, initialCapacity)
		m.z = make([]complex128, initialCapacity)
	}
	m.z[0] = complex(sp.M0, 0)
	return m, nil
}

// ApplyPulse applies the RF pulse operator (spec.md §4.1) to every
// occupied column.
func (m *Model) ApplyPulse(angle, phase quantity.Quantity) {
	p := operators.NewPulse(angle.Magnitude, phase.Magnitude)
	for i := 0; i < m.size; i++ {
		m.fPlus[i], m.fMinus[i], m.z[i] = p.Apply(m.fPlus[i], m.fMinus[i], m.z[i])
	}
}

// Relaxation applies only the relaxation operator (spec.md §4.2) for an
// interval of duration tau, for callers assembling custom sequences.
func (m *Model) Relaxation(tau quantity.Quantity) {
	r1, r2 := m.species.R1.Magnitude, m.species.R2.Magnitude
	if !operators.ShouldApplyRelaxation(r1, r2) {
		return
	}
	rel := operators.NewRelaxation(tau.Magnitude, r1, r2)
	for i := 0; i < m.size; i++ {
		m.fPlus[i], m.fMinus[i], m.z[i] = rel.Apply(m.fPlus[i], m.fMinus[i], m.z[i])
	}
	m.z[0] += rel.Recovery(m.species.M0)
}

// Diffusion applies only the diffusion operator (spec.md §4.3) for an
// interval of duration tau and gradient amplitude. Column i is taken to
// sit at physical order k = i * unit_gradient_area, consistent with the
// Regular model's "gradient shifts are unit-sized" design (spec.md
// glossary); this keeps the order scale stable across intervals even
// when they use different instantaneous gradients.
func (m *Model) Diffusion(tau, gradient quantity.Quantity) {
	if m.species.D.IsZero() {
		return
	}
	deltaK := units.Gamma * gradient.Magnitude * tau.Magnitude
	d := m.species.D.At(0, 0)
	for i := 0; i < m.size; i++ {
		k := float64(i) * m.unitGradientArea
		diff := operators.NewDiffusion1D(tau.Magnitude, k, deltaK, d)
		m.fPlus[i], m.fMinus[i], m.z[i] = diff.Apply(m.fPlus[i], m.fMinus[i], m.z[i])
	}
}

// OffResonance applies only the off-resonance phase (spec.md §4.6).
func (m *Model) OffResonance(tau quantity.Quantity) {
	total := m.species.DeltaOmega.Magnitude + m.deltaOmega
	if !operators.ShouldApplyOffResonance(total) {
		return
	}
	off := operators.NewOffResonance(tau.Magnitude, total)
	for i := 0; i < m.size; i++ {
		m.fPlus[i], m.fMinus[i], m.z[i] = off.Apply(m.fPlus[i], m.fMinus[i], m.z[i])
	}
}

// Shift applies the gradient/shift operator (spec.md §4.5): the
// resulting gradient area must be an integer multiple of
// unit_gradient_area, fatal otherwise.
func (m *Model) Shift(tau, gradient quantity.Quantity) {
	area := units.Gamma * gradient.Magnitude * tau.Magnitude
	ratio := area / m.unitGradientArea
	steps := operators.RoundOrder(area, m.unitGradientArea)
	if cmplx.Abs(complex(ratio-float64(steps), 0)) > 1e-6 {
		types.Fatal(types.InvalidGradientArea, "gradient area is not an integer multiple of unit_gradient_area",
			"area", "unit_gradient_area")
	}
	m.shiftSteps(steps)
}

func (m *Model) shiftSteps(n int64) {
	for ; n > 0; n-- {
		m.shiftPositive()
	}
	for ; n < 0; n++ {
		m.shiftNegative()
	}
}

func (m *Model) grow() {
	if m.size < len(m.fPlus) {
		return
	}
	newCap := len(m.fPlus) * 2
	grow := func(s []complex128) []complex128 {
		next := make([]complex128, newCap)
		copy(next, s)
		return next
	}
	m.fPlus = grow(m.fPlus)
	m.fMinus = grow(m.fMinus)
	m.z = grow(m.z)
}

// shiftPositive moves every F+ column right by one and every F- column
// left by one, per spec.md §4.5.
func (m *Model) shiftPositive() {
	m.grow()
	for i := m.size; i >= 1; i-- {
		m.fPlus[i] = m.fPlus[i-1]
	}
	m.fPlus[0] = 0
	for i := 0; i < m.size; i++ {
		m.fMinus[i] = m.fMinus[i+1]
	}
	m.fMinus[m.size] = 0
	m.fPlus[0] = cmplx.Conj(m.fMinus[0])
	m.size++
}

// shiftNegative is the mirror image of shiftPositive: F- moves right,
// F+ moves left.
func (m *Model) shiftNegative() {
	m.grow()
	for i := m.size; i >= 1; i-- {
		m.fMinus[i] = m.fMinus[i-1]
	}
	m.fMinus[0] = 0
	for i := 0; i < m.size; i++ {
		m.fPlus[i] = m.fPlus[i+1]
	}
	m.fPlus[m.size] = 0
	m.fMinus[0] = cmplx.Conj(m.fPlus[0])
	m.size++
}

// ApplyTimeInterval applies, in the fixed order spec.md §4.7 mandates:
// relaxation, diffusion, off-resonance, gradient shift; finally
// advances elapsed by tau. gradient defaults to zero when omitted.
func (m *Model) ApplyTimeInterval(tau quantity.Quantity, gradient ...quantity.Quantity) error {
	if tau.Magnitude < 0 {
		return types.New(types.InvalidArgument, "duration must be non-negative")
	}
	g := units.TeslaPerMeter(0)
	if len(gradient) > 0 {
		g = gradient[0]
	}

	m.Relaxation(tau)
	m.Diffusion(tau, g)
	m.OffResonance(tau)
	m.Shift(tau, g)
	m.elapsed += tau.Magnitude
	return nil
}

// Threshold-less read-only inspection (spec.md §6).

// Echo returns F+(k=0).
func (m *Model) Echo() complex128 { return m.fPlus[0] }

// State is one populated column, exported for read-only inspection.
type State struct {
	K                int
	FPlus, FMinus, Z complex128
}

// States returns a snapshot of every populated column, ordered by k.
func (m *Model) States() []State {
	out := make([]State, m.size)
	for i := 0; i < m.size; i++ {
		out[i] = State{K: i, FPlus: m.fPlus[i], FMinus: m.fMinus[i], Z: m.z[i]}
	}
	return out
}

// Orders returns the populated dephasing orders 0..len()-1.
func (m *Model) Orders() []int {
	out := make([]int, m.size)
	for i := range out {
		out[i] = i
	}
	return out
}

// State returns the triple at order k. An order outside [0, len()) is
// out of range.
func (m *Model) State(k int) (fPlus, fMinus, z complex128, err error) {
	if k < 0 || k >= m.size {
		return 0, 0, 0, types.New(types.OutOfRange, "order does not exist in this model")
	}
	return m.fPlus[k], m.fMinus[k], m.z[k], nil
}

// Len returns the number of populated columns.
func (m *Model) Len() int { return m.size }

// Elapsed returns the accumulated duration.
func (m *Model) Elapsed() quantity.Quantity { return units.Seconds(m.elapsed) }

// DeltaOmega returns the model-level (field) off-resonance offset.
func (m *Model) DeltaOmega() quantity.Quantity { return units.RadiansPerSecond(m.deltaOmega) }

// SetDeltaOmega updates the model-level off-resonance offset.
func (m *Model) SetDeltaOmega(deltaOmega quantity.Quantity) { m.deltaOmega = deltaOmega.Magnitude }

// UnitGradientArea returns the gradient area of one unit shift.
func (m *Model) UnitGradientArea() quantity.Quantity { return units.RadiansPerMeter(m.unitGradientArea) }

// ID returns the model's diagnostic instance identifier, for log
// correlation only; it plays no role in the model's behavior.
func (m *Model) ID() string { return m.id }
