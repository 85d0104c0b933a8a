// Package discrete implements the sparse, 1-D Discrete EPG model of
// spec.md §3/§4: a key-sorted vector of (k, F+, F-*, Z) triples,
// arbitrary gradient durations/amplitudes binned on a fixed quantum,
// with optional amplitude-threshold pruning.
//
// Grounded on the teacher's core/hilbert.HilbertSpace (a struct owning
// a map of named states plus the operators that act on it), restructured
// per spec.md §9's design note: a key-sorted slice outperforms a hash
// map in the shift/merge inner loop, so the map becomes a sorted slice
// and lookups become binary search instead of hashing.
package discrete

import (
	"math/cmplx"

	"github.com/google/uuid"

	"github.com/lamyj/sycomore/core/operators"
	"github.com/lamyj/sycomore/core/quantity"
	"github.com/lamyj/sycomore/core/quantity/units"
	"github.com/lamyj/sycomore/core/species"
	"github.com/lamyj/sycomore/shared/types"
)

// State is one configuration state, exported for read-only inspection.
type State struct {
	K                int64
	FPlus, FMinus, Z complex128
}

// Order returns the physical dephasing order k = K * bin_width.
func (s State) Order(binWidth float64) quantity.Quantity {
	return units.RadiansPerMeter(float64(s.K) * binWidth)
}

// Model is a Discrete (1-D) EPG state. The zero value is not usable;
// construct with New.
type Model struct {
	id        string // diagnostic instance ID, log correlation only
	species   species.Species
	states    []State // sorted ascending by K, keys unique
	binWidth  float64 // rad/m
	threshold float64
	deltaOmega float64 // rad/s, model-level (field) off-resonance
	elapsed   float64 // seconds
}

// Option configures optional Model construction parameters.
type Option func(*Model) error

// WithBinWidth sets the dephasing-order quantum (default 1 rad/m).
func WithBinWidth(binWidth quantity.Quantity) Option {
	return func(m *Model) error {
		probe := units.RadiansPerMeter(1)
		if !binWidth.Dimension.Equal(probe.Dimension) {
			return types.New(types.InvalidArgument, "bin_width must be an inverse length",
				"got "+binWidth.Dimension.String())
		}
		if binWidth.Magnitude <= 0 {
			return types.New(types.InvalidArgument, "bin_width must be strictly positive")
		}
		m.binWidth = binWidth.Magnitude
		return nil
	}
}

// WithThreshold sets the pruning cutoff (default 0: no pruning).
func WithThreshold(threshold float64) Option {
	return func(m *Model) error {
		if threshold < 0 {
			return types.New(types.InvalidArgument, "threshold must be non-negative")
		}
		m.threshold = threshold
		return nil
	}
}

// New builds a Discrete EPG model at equilibrium: a single k=0 state
// with Z = species.M0.
func New(sp species.Species, opts ...Option) (*Model, error) {
	m := &Model{
		id:       uuid.New().String(),
		species:  sp,
		binWidth: 1.0,
		states:   []State{{K: 0, Z: complex(sp.M0, 0)}},
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ApplyPulse applies the RF pulse operator (spec.md §4.1) to every
// occupied order.
func (m *Model) ApplyPulse(angle, phase quantity.Quantity) {
	p := operators.NewPulse(angle.Magnitude, phase.Magnitude)
	for i := range m.states {
		s := &m.states[i]
		s.FPlus, s.FMinus, s.Z = p.Apply(s.FPlus, s.FMinus, s.Z)
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
	for i := range m.states {
		s := &m.states[i]
		s.FPlus, s.FMinus, s.Z = rel.Apply(s.FPlus, s.FMinus, s.Z)
	}
	recovery := rel.Recovery(m.species.M0)
	if idx, ok := m.find(0); ok {
		m.states[idx].Z += recovery
	}
}

// Diffusion applies only the diffusion operator (spec.md §4.3) for an
// interval of duration tau and gradient amplitude, for callers
// assembling custom sequences. It uses the starting k of each state, as
// spec.md §4.7 requires.
func (m *Model) Diffusion(tau, gradient quantity.Quantity) {
	if m.species.D.IsZero() {
		return
	}
	deltaK := units.Gamma * gradient.Magnitude * tau.Magnitude
	d := m.species.D.At(0, 0)
	for i := range m.states {
		s := &m.states[i]
		k := float64(s.K) * m.binWidth
		diff := operators.NewDiffusion1D(tau.Magnitude, k, deltaK, d)
		s.FPlus, s.FMinus, s.Z = diff.Apply(s.FPlus, s.FMinus, s.Z)
	}
}

// OffResonance applies only the off-resonance phase (spec.md §4.6).
func (m *Model) OffResonance(tau quantity.Quantity) {
	total := m.species.DeltaOmega.Magnitude + m.deltaOmega
	if !operators.ShouldApplyOffResonance(total) {
		return
	}
	off := operators.NewOffResonance(tau.Magnitude, total)
	for i := range m.states {
		s := &m.states[i]
		s.FPlus, s.FMinus, s.Z = off.Apply(s.FPlus, s.FMinus, s.Z)
	}
}

// Shift applies only the gradient/shift operator (spec.md §4.4), for
// callers assembling custom sequences. apply_time_interval calls this
// after relaxation, diffusion and off-resonance, never before.
func (m *Model) Shift(tau, gradient quantity.Quantity) {
	deltaKPhysical := units.Gamma * gradient.Magnitude * tau.Magnitude
	delta := operators.RoundOrder(deltaKPhysical, m.binWidth)
	if delta == 0 {
		return
	}
	m.states = shift(m.states, delta)
}

// ApplyTimeInterval applies, in the fixed order spec.md §4.7 mandates:
// relaxation, diffusion, off-resonance, gradient shift, then (if
// threshold > 0) pruning; finally advances elapsed by tau. gradient
// defaults to zero when omitted.
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
	if m.threshold > 0 {
		m.prune()
	}
	m.elapsed += tau.Magnitude
	return nil
}

func (m *Model) prune() {
	kept := m.states[:0]
	for _, s := range m.states {
		low := cmplx.Abs(s.FPlus) < m.threshold && cmplx.Abs(s.FMinus) < m.threshold && cmplx.Abs(s.Z) < m.threshold
		if s.K == 0 || !low {
			kept = append(kept, s)
		}
	}
	m.states = kept
}

// Threshold returns the current pruning cutoff.
func (m *Model) Threshold() float64 { return m.threshold }

// SetThreshold updates the pruning cutoff.
func (m *Model) SetThreshold(threshold float64) { m.threshold = threshold }

// DeltaOmega returns the model-level (field) off-resonance offset.
func (m *Model) DeltaOmega() quantity.Quantity { return units.RadiansPerSecond(m.deltaOmega) }

// SetDeltaOmega updates the model-level off-resonance offset.
func (m *Model) SetDeltaOmega(deltaOmega quantity.Quantity) { m.deltaOmega = deltaOmega.Magnitude }

// Echo returns F+(k=0), the convenience accessor spec.md §6 names.
func (m *Model) Echo() complex128 {
	if idx, ok := m.find(0); ok {
		return m.states[idx].FPlus
	}
	return 0
}

// States returns a snapshot of every populated state, ordered by k.
func (m *Model) States() []State {
	out := make([]State, len(m.states))
	copy(out, m.states)
	return out
}

// Orders returns the populated dephasing orders, ordered ascending.
func (m *Model) Orders() []int64 {
	out := make([]int64, len(m.states))
	for i, s := range m.states {
		out[i] = s.K
	}
	return out
}

// State returns the triple at order k. Per spec.md §4.9, an order that
// does not exist returns the zero triple, not an error.
func (m *Model) State(k int64) (fPlus, fMinus, z complex128) {
	if idx, ok := m.find(k); ok {
		s := m.states[idx]
		return s.FPlus, s.FMinus, s.Z
	}
	return 0, 0, 0
}

// Len returns the number of populated states.
func (m *Model) Len() int { return len(m.states) }

// Elapsed returns the accumulated duration.
func (m *Model) Elapsed() quantity.Quantity { return units.Seconds(m.elapsed) }

// BinWidth returns the dephasing-order quantum.
func (m *Model) BinWidth() quantity.Quantity { return units.RadiansPerMeter(m.binWidth) }

// ID returns the model's diagnostic instance identifier, for log
// correlation only; it plays no role in the model's behavior.
func (m *Model) ID() string { return m.id }

func (m *Model) find(k int64) (int, bool) {
	return binarySearch(m.states, k)
}
