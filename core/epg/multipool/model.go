// Package multipool implements the two-pool extension of spec.md §4.8:
// every configuration state carries a pair of (F+, F-*, Z) triples
// instead of one, relaxation couples the two pools' Z components
// through an exchange matrix, and magnetization-transfer models
// replace the bound pool's pulse by a scalar Z saturation.
//
// Grounded on core/epg/discrete's key-sorted sparse container
// (generalized to two Coherence vectors per key) and on the pulse,
// relaxation and diffusion operators of core/operators, applied
// per-pool.
package multipool

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/google/uuid"

	"github.com/lamyj/sycomore/core/operators"
	"github.com/lamyj/sycomore/core/quantity"
	"github.com/lamyj/sycomore/core/quantity/units"
	"github.com/lamyj/sycomore/core/species"
	"github.com/lamyj/sycomore/shared/types"
)

// Pool is one pool's species-like parameters.
type Pool struct {
	R1, R2     quantity.Quantity
	M0         float64
	D          species.DiffusionTensor
	DeltaOmega quantity.Quantity
}

// NewPool builds a Pool, defaulting D to zero and DeltaOmega to zero.
func NewPool(r1, r2 quantity.Quantity, m0 float64) Pool {
	return Pool{R1: r1, R2: r2, M0: m0, D: species.ZeroDiffusion()}
}

// Exchange describes the inter-pool rate constant from pool A to pool
// B; the reverse rate is derived from detailed balance (spec.md §4.8:
// k_ab * M0_a = k_ba * M0_b).
type Exchange struct {
	KAB float64 // 1/s, pool A -> pool B
}

func (e Exchange) kba(a, b Pool) float64 {
	if b.M0 == 0 {
		return 0
	}
	return e.KAB * a.M0 / b.M0
}

// Coherence is one pool's (F+, F-*, Z) triple at a given order.
type Coherence struct {
	FPlus, FMinus, Z complex128
}

// State is one configuration state, carrying both pools' coherences.
type State struct {
	K    int64
	A, B Coherence
}

// Model is a two-pool EPG state, optionally an MT model (pool B is a
// semi-solid pool with no transverse magnetization).
type Model struct {
	id           string // diagnostic instance ID, log correlation only
	poolA, poolB Pool
	exchange     Exchange
	mt           bool
	states       []State
	binWidth     float64
	threshold    float64
	elapsed      float64
}

// Option configures optional Model construction parameters.
type Option func(*Model) error

// WithBinWidth sets the dephasing-order quantum (default 1 rad/m).
func WithBinWidth(binWidth quantity.Quantity) Option {
	return func(m *Model) error {
		probe := units.RadiansPerMeter(1)
		if !binWidth.Dimension.Equal(probe.Dimension) {
			return types.New(types.InvalidArgument, "bin_width must be an inverse length")
		}
		m.binWidth = binWidth.Magnitude
		return nil
	}
}

// WithThreshold sets the pruning cutoff (default 0: no pruning).
func WithThreshold(threshold float64) Option {
	return func(m *Model) error {
		m.threshold = threshold
		return nil
	}
}

// WithMagnetizationTransfer marks pool B as the bound/semi-solid pool:
// it carries no transverse magnetization and its pulse response is a
// scalar Z saturation rather than a rotation.
func WithMagnetizationTransfer() Option {
	return func(m *Model) error {
		m.mt = true
		return nil
	}
}

// New builds a two-pool model at equilibrium.
func New(poolA, poolB Pool, exchange Exchange, opts ...Option) (*Model, error) {
	m := &Model{
		id:       uuid.New().String(),
		poolA:    poolA,
		poolB:    poolB,
		exchange: exchange,
		binWidth: 1.0,
		states: []State{{
			K: 0,
			A: Coherence{Z: complex(poolA.M0, 0)},
			B: Coherence{Z: complex(poolB.M0, 0)},
		}},
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ApplyPulse applies the block-diagonal pulse of spec.md §4.8. When the
// model is an MT model, saturationWTau (W·τ, dimensionless) scales pool
// B's Z row by exp(-W·τ) instead of rotating it.
func (m *Model) ApplyPulse(angle, phase quantity.Quantity, saturationWTau ...float64) {
	p := operators.NewPulse(angle.Magnitude, phase.Magnitude)
	for i := range m.states {
		s := &m.states[i]
		s.A.FPlus, s.A.FMinus, s.A.Z = p.Apply(s.A.FPlus, s.A.FMinus, s.A.Z)
		if m.mt {
			w := 0.0
			if len(saturationWTau) > 0 {
				w = saturationWTau[0]
			}
			s.B.Z *= complex(math.Exp(-w), 0)
		} else {
			s.B.FPlus, s.B.FMinus, s.B.Z = p.Apply(s.B.FPlus, s.B.FMinus, s.B.Z)
		}
	}
}

// Relaxation applies per-pool transverse decay and the exchange-coupled
// longitudinal (Z) system in closed form (spec.md §4.8).
func (m *Model) Relaxation(tau quantity.Quantity) {
	t := tau.Magnitude
	r2a, r2b := m.poolA.R2.Magnitude, m.poolB.R2.Magnitude
	e2a, e2b := math.Exp(-t*r2a), math.Exp(-t*r2b)

	r1a, r1b := m.poolA.R1.Magnitude, m.poolB.R1.Magnitude
	kab, kba := m.exchange.KAB, m.exchange.kba(m.poolA, m.poolB)
	prop := exchangePropagator(t, r1a, r1b, kab, kba)

	for i := range m.states {
		s := &m.states[i]
		s.A.FPlus *= complex(e2a, 0)
		s.A.FMinus *= complex(e2a, 0)
		s.B.FPlus *= complex(e2b, 0)
		s.B.FMinus *= complex(e2b, 0)
	}

	idx, ok := m.find(0)
	if !ok {
		return
	}
	s := &m.states[idx]
	za0, zb0 := real(s.A.Z)-m.poolA.M0, real(s.B.Z)-m.poolB.M0
	za1 := prop[0][0]*za0 + prop[0][1]*zb0
	zb1 := prop[1][0]*za0 + prop[1][1]*zb0
	s.A.Z = complex(za1+m.poolA.M0, imag(s.A.Z))
	s.B.Z = complex(zb1+m.poolB.M0, imag(s.B.Z))

	// Non-k=0 states have no equilibrium term; they decay under the
	// same coupled system toward zero.
	for i := range m.states {
		if m.states[i].K == 0 {
			continue
		}
		s := &m.states[i]
		za0, zb0 := real(s.A.Z), real(s.B.Z)
		za1 := prop[0][0]*za0 + prop[0][1]*zb0
		zb1 := prop[1][0]*za0 + prop[1][1]*zb0
		s.A.Z = complex(za1, imag(s.A.Z))
		s.B.Z = complex(zb1, imag(s.B.Z))
	}
}

// exchangePropagator returns the closed-form 2x2 matrix exponential of
// A = [[-r1a-kab, kba], [kab, -r1b-kba]] over duration tau (Sylvester's
// formula), per spec.md §9's recommendation to avoid a numerically
// unstable general 6x6 exponential.
func exchangePropagator(tau, r1a, r1b, kab, kba float64) [2][2]float64 {
	a00, a01 := -r1a-kab, kba
	a10, a11 := kab, -r1b-kba

	trace := a00 + a11
	det := a00*a11 - a01*a10
	disc := trace*trace - 4*det
	var l1, l2 float64
	if disc < 0 {
		disc = 0
	}
	sq := math.Sqrt(disc)
	l1 = (trace + sq) / 2
	l2 = (trace - sq) / 2

	var f0, f1 float64
	if math.Abs(l1-l2) < 1e-12 {
		l := l1
		f0 = tau * math.Exp(l*tau)
		f1 = math.Exp(l*tau) * (1 - l*tau)
	} else {
		e1, e2 := math.Exp(l1*tau), math.Exp(l2*tau)
		f0 = (e1 - e2) / (l1 - l2)
		f1 = (l1*e2 - l2*e1) / (l1 - l2)
	}

	return [2][2]float64{
		{f1 + f0*a00, f0 * a01},
		{f0 * a10, f1 + f0*a11},
	}
}

// Diffusion applies each pool's own diffusion operator independently
// (spec.md §4.8 does not couple diffusion across pools).
func (m *Model) Diffusion(tau, gradient quantity.Quantity) {
	deltaK := units.Gamma * gradient.Magnitude * tau.Magnitude
	for i := range m.states {
		s := &m.states[i]
		k := float64(s.K) * m.binWidth
		if !m.poolA.D.IsZero() {
			diff := operators.NewDiffusion1D(tau.Magnitude, k, deltaK, m.poolA.D.At(0, 0))
			s.A.FPlus, s.A.FMinus, s.A.Z = diff.Apply(s.A.FPlus, s.A.FMinus, s.A.Z)
		}
		if !m.poolB.D.IsZero() {
			diff := operators.NewDiffusion1D(tau.Magnitude, k, deltaK, m.poolB.D.At(0, 0))
			s.B.FPlus, s.B.FMinus, s.B.Z = diff.Apply(s.B.FPlus, s.B.FMinus, s.B.Z)
		}
	}
}

// OffResonance applies each pool's own off-resonance phase.
func (m *Model) OffResonance(tau quantity.Quantity) {
	t := tau.Magnitude
	if operators.ShouldApplyOffResonance(m.poolA.DeltaOmega.Magnitude) {
		off := operators.NewOffResonance(t, m.poolA.DeltaOmega.Magnitude)
		for i := range m.states {
			s := &m.states[i]
			s.A.FPlus, s.A.FMinus, s.A.Z = off.Apply(s.A.FPlus, s.A.FMinus, s.A.Z)
		}
	}
	if !m.mt && operators.ShouldApplyOffResonance(m.poolB.DeltaOmega.Magnitude) {
		off := operators.NewOffResonance(t, m.poolB.DeltaOmega.Magnitude)
		for i := range m.states {
			s := &m.states[i]
			s.B.FPlus, s.B.FMinus, s.B.Z = off.Apply(s.B.FPlus, s.B.FMinus, s.B.Z)
		}
	}
}

// Shift applies the gradient/shift merge to both pools simultaneously
// (they share the same order axis).
func (m *Model) Shift(tau, gradient quantity.Quantity) {
	deltaKPhysical := units.Gamma * gradient.Magnitude * tau.Magnitude
	delta := operators.RoundOrder(deltaKPhysical, m.binWidth)
	if delta == 0 {
		return
	}
	m.states = shift(m.states, delta)
}

// ApplyTimeInterval applies the fixed spec.md §4.7 order to both pools.
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
		lowA := cmplx.Abs(s.A.FPlus) < m.threshold && cmplx.Abs(s.A.FMinus) < m.threshold && cmplx.Abs(s.A.Z) < m.threshold
		lowB := cmplx.Abs(s.B.FPlus) < m.threshold && cmplx.Abs(s.B.FMinus) < m.threshold && cmplx.Abs(s.B.Z) < m.threshold
		if s.K == 0 || !(lowA && lowB) {
			kept = append(kept, s)
		}
	}
	m.states = kept
}

// Echo returns the observable transverse signal at k=0: the sum of
// both pools' F+(0) (the bound MT pool contributes zero, since it
// never carries transverse magnetization).
func (m *Model) Echo() complex128 {
	if idx, ok := m.find(0); ok {
		return m.states[idx].A.FPlus + m.states[idx].B.FPlus
	}
	return 0
}

// States returns a snapshot of every populated state, ordered by k.
func (m *Model) States() []State {
	out := make([]State, len(m.states))
	copy(out, m.states)
	return out
}

// Len returns the number of populated states.
func (m *Model) Len() int { return len(m.states) }

// Elapsed returns the accumulated duration.
func (m *Model) Elapsed() quantity.Quantity { return units.Seconds(m.elapsed) }

// State returns both pools' triples at order k; a non-existent order
// returns the zero triples.
func (m *Model) State(k int64) (a, b Coherence) {
	if idx, ok := m.find(k); ok {
		return m.states[idx].A, m.states[idx].B
	}
	return Coherence{}, Coherence{}
}

// ID returns the model's diagnostic instance identifier, for log
// correlation only; it plays no role in the model's behavior.
func (m *Model) ID() string { return m.id }

func (m *Model) find(k int64) (int, bool) {
	i := sort.Search(len(m.states), func(i int) bool { return m.states[i].K >= k })
	if i < len(m.states) && m.states[i].K == k {
		return i, true
	}
	return 0, false
}
