// Package discrete3d implements the sparse, 3-D Discrete EPG model of
// spec.md §3/§4.4: dephasing orders are ℤ³ keys ordered lexicographically,
// only the canonical half-space is stored (the zero key and keys whose
// first non-zero component is positive), gradients are 3-vectors, and
// diffusion uses the full 3×3 tensor contraction instead of a scalar.
//
// Grounded on the same key-sorted-vector structure as
// core/epg/discrete, generalized from int64 keys to [3]int64 keys.
package discrete3d

import (
	"math/cmplx"
	"sort"

	"github.com/google/uuid"

	"github.com/lamyj/sycomore/core/operators"
	"github.com/lamyj/sycomore/core/quantity"
	"github.com/lamyj/sycomore/core/quantity/units"
	"github.com/lamyj/sycomore/core/species"
	"github.com/lamyj/sycomore/shared/types"
)

// Key is a three-axis integer dephasing order.
type Key [3]int64

// Less implements the lexicographic order used for sorting and merge.
// It has no sign rule; a key's canonical direction is decided by
// isCanonical (shift.go).
func (k Key) Less(o Key) bool {
	for i := 0; i < 3; i++ {
		if k[i] != o[i] {
			return k[i] < o[i]
		}
	}
	return false
}

func (k Key) add(o Key) Key {
	return Key{k[0] + o[0], k[1] + o[1], k[2] + o[2]}
}

func (k Key) sub(o Key) Key {
	return Key{k[0] - o[0], k[1] - o[1], k[2] - o[2]}
}

// State is one configuration state, exported for read-only inspection.
type State struct {
	K                Key
	FPlus, FMinus, Z complex128
}

// Model is a Discrete3D EPG state.
type Model struct {
	id         string // diagnostic instance ID, log correlation only
	species    species.Species
	states     []State // sorted ascending by Key.Less, keys unique
	binWidth   float64 // rad/m, isotropic across axes
	threshold  float64
	deltaOmega float64
	elapsed    float64
}

// Option configures optional Model construction parameters.
type Option func(*Model) error

// WithBinWidth sets the dephasing-order quantum, applied identically to
// all three axes (default 1 rad/m).
func WithBinWidth(binWidth quantity.Quantity) Option {
	return func(m *Model) error {
		probe := units.RadiansPerMeter(1)
		if !binWidth.Dimension.Equal(probe.Dimension) {
			return types.New(types.InvalidArgument, "bin_width must be an inverse length")
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

// New builds a Discrete3D EPG model at equilibrium: a single k=(0,0,0)
// state with Z = species.M0.
func New(sp species.Species, opts ...Option) (*Model, error) {
	m := &Model{
		id:       uuid.New().String(),
		species:  sp,
		binWidth: 1.0,
		states:   []State{{K: Key{0, 0, 0}, Z: complex(sp.M0, 0)}},
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ApplyPulse applies the RF pulse operator to every occupied order.
func (m *Model) ApplyPulse(angle, phase quantity.Quantity) {
	p := operators.NewPulse(angle.Magnitude, phase.Magnitude)
	for i := range m.states {
		s := &m.states[i]
		s.FPlus, s.FMinus, s.Z = p.Apply(s.FPlus, s.FMinus, s.Z)
	}
}

// Relaxation applies only the relaxation operator.
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
	if idx, ok := m.find(Key{0, 0, 0}); ok {
		m.states[idx].Z += recovery
	}
}

// Diffusion applies only the diffusion operator, using the full 3×3
// tensor contraction, with gradient a 3-vector (T/m per axis).
func (m *Model) Diffusion(tau quantity.Quantity, gradient [3]quantity.Quantity) {
	if m.species.D.IsZero() {
		return
	}
	var deltaK [3]float64
	for i := 0; i < 3; i++ {
		deltaK[i] = units.Gamma * gradient[i].Magnitude * tau.Magnitude
	}
	d := m.species.D.Dense()
	for i := range m.states {
		s := &m.states[i]
		k := [3]float64{
			float64(s.K[0]) * m.binWidth,
			float64(s.K[1]) * m.binWidth,
			float64(s.K[2]) * m.binWidth,
		}
		diff := operators.NewDiffusion3D(tau.Magnitude, k, deltaK, d)
		s.FPlus, s.FMinus, s.Z = diff.Apply(s.FPlus, s.FMinus, s.Z)
	}
}

// OffResonance applies only the off-resonance phase.
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

// Shift applies the gradient/shift merge (spec.md §4.4) for a 3-vector
// gradient.
func (m *Model) Shift(tau quantity.Quantity, gradient [3]quantity.Quantity) {
	var delta Key
	nonZero := false
	for i := 0; i < 3; i++ {
		physical := units.Gamma * gradient[i].Magnitude * tau.Magnitude
		delta[i] = operators.RoundOrder(physical, m.binWidth)
		if delta[i] != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		return
	}
	m.states = shift(m.states, delta)
}

// ApplyTimeInterval applies, in the fixed order spec.md §4.7 mandates,
// with an optional 3-vector gradient (zero vector if omitted).
func (m *Model) ApplyTimeInterval(tau quantity.Quantity, gradient ...[3]quantity.Quantity) error {
	if tau.Magnitude < 0 {
		return types.New(types.InvalidArgument, "duration must be non-negative")
	}
	g := [3]quantity.Quantity{units.TeslaPerMeter(0), units.TeslaPerMeter(0), units.TeslaPerMeter(0)}
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
		if s.K == (Key{0, 0, 0}) || !low {
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

// Echo returns F+(k=(0,0,0)).
func (m *Model) Echo() complex128 {
	if idx, ok := m.find(Key{0, 0, 0}); ok {
		return m.states[idx].FPlus
	}
	return 0
}

// States returns a snapshot of every populated state, ordered by key.
func (m *Model) States() []State {
	out := make([]State, len(m.states))
	copy(out, m.states)
	return out
}

// Orders returns the populated dephasing orders, ordered ascending.
func (m *Model) Orders() []Key {
	out := make([]Key, len(m.states))
	for i, s := range m.states {
		out[i] = s.K
	}
	return out
}

// State returns the triple at order k. An order that does not exist
// returns the zero triple, not an error (spec.md §4.9).
func (m *Model) State(k Key) (fPlus, fMinus, z complex128) {
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

// ID returns the model's diagnostic instance identifier, for log
// correlation only; it plays no role in the model's behavior.
func (m *Model) ID() string { return m.id }

func (m *Model) find(k Key) (int, bool) {
	return binarySearch(m.states, k)
}

func binarySearch(states []State, k Key) (int, bool) {
	i := sort.Search(len(states), func(i int) bool { return !states[i].K.Less(k) })
	if i < len(states) && states[i].K == k {
		return i, true
	}
	return 0, false
}
