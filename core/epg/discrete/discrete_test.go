package discrete

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/lamyj/sycomore/core/quantity/units"
	"github.com/lamyj/sycomore/core/species"
)

func closeEnough(a, b complex128, tol float64) bool {
	return cmplx.Abs(a-b) < tol
}

func mustSpecies(t *testing.T, opts ...species.Option) species.Species {
	t.Helper()
	sp, err := species.New(units.MilliSeconds(1000), units.MilliSeconds(100), opts...)
	if err != nil {
		t.Fatalf("species.New: %v", err)
	}
	return sp
}

// TestEmptyState reproduces spec.md §8 scenario 1.
func TestEmptyState(t *testing.T) {
	sp, err := species.New(units.Hertz(1), units.Hertz(10))
	if err != nil {
		t.Fatalf("species.New: %v", err)
	}
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Echo() != 0 {
		t.Errorf("echo = %v, want 0", m.Echo())
	}
	states := m.States()
	if len(states) != 1 || states[0].K != 0 || states[0].FPlus != 0 || states[0].FMinus != 0 || real(states[0].Z) != 1 {
		t.Errorf("states = %+v, want [[0,0,1]]", states)
	}
}

// TestSinglePulse reproduces spec.md §8 scenario 2.
func TestSinglePulse(t *testing.T) {
	sp := mustSpecies(t, species.WithDiffusivity(units.SquareMicroMetersPerMilliSecond(3)))
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ApplyPulse(units.Degrees(47), units.Degrees(23))

	fPlus, fMinus, z := m.State(0)
	wantFPlus := complex(0.2857626571584661, -0.6732146319308543)
	if !closeEnough(fPlus, wantFPlus, 1e-12) {
		t.Errorf("F+ = %v, want %v", fPlus, wantFPlus)
	}
	if !closeEnough(fMinus, cmplx.Conj(wantFPlus), 1e-12) {
		t.Errorf("F-* = %v, want %v", fMinus, cmplx.Conj(wantFPlus))
	}
	wantZ := complex(0.6819983600624985, 0)
	if !closeEnough(z, wantZ, 1e-12) {
		t.Errorf("Z = %v, want %v", z, wantZ)
	}
}

// TestPulseThenGradient reproduces spec.md §8 scenario 3.
func TestPulseThenGradient(t *testing.T) {
	sp := mustSpecies(t, species.WithDiffusivity(units.SquareMicroMetersPerMilliSecond(3)))
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ApplyPulse(units.Degrees(47), units.Degrees(23))
	m.Shift(units.MilliSeconds(10), units.MilliTeslaPerMeter(2))

	orders := m.Orders()
	if len(orders) != 2 {
		t.Fatalf("orders = %v, want 2 entries", orders)
	}

	fPlus0, fMinus0, z0 := m.State(0)
	if fPlus0 != 0 || fMinus0 != 0 {
		t.Errorf("k=0: F+=%v F-*=%v, want both 0", fPlus0, fMinus0)
	}
	if !closeEnough(z0, complex(0.6819983600624985, 0), 1e-12) {
		t.Errorf("k=0: Z = %v, want 0.6819983600624985", z0)
	}

	var highK int64 = -1
	for _, k := range orders {
		if k != 0 {
			highK = k
		}
	}
	if highK < 5349 || highK > 5351 {
		t.Fatalf("high order k = %d, want approx 5350", highK)
	}
	fPlusH, fMinusH, zH := m.State(highK)
	wantFPlus := complex(0.2857626571584661, -0.6732146319308543)
	if !closeEnough(fPlusH, wantFPlus, 1e-9) {
		t.Errorf("k=%d: F+ = %v, want %v", highK, fPlusH, wantFPlus)
	}
	if fMinusH != 0 || zH != 0 {
		t.Errorf("k=%d: F-*=%v Z=%v, want both 0", highK, fMinusH, zH)
	}
}

// TestFullIntervalWithDiffusion reproduces spec.md §8 scenario 4.
func TestFullIntervalWithDiffusion(t *testing.T) {
	sp := mustSpecies(t, species.WithDiffusivity(units.SquareMicroMetersPerMilliSecond(3)))
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ApplyPulse(units.Degrees(47), units.Degrees(23))
	m.Shift(units.MilliSeconds(10), units.MilliTeslaPerMeter(2))
	m.Relaxation(units.MilliSeconds(10))
	m.Diffusion(units.MilliSeconds(10), units.MilliTeslaPerMeter(2))

	_, _, z0 := m.State(0)
	if !closeEnough(z0, complex(0.6851625292479138, 0), 1e-9) {
		t.Errorf("k=0: Z = %v, want 0.6851625292479138", z0)
	}

	var highK int64 = -1
	for _, k := range m.Orders() {
		if k != 0 {
			highK = k
		}
	}
	fPlusH, _, _ := m.State(highK)
	wantFPlus := complex(0.25805117100742553, -0.6079304617214332)
	if !closeEnough(fPlusH, wantFPlus, 1e-8) {
		t.Errorf("k=%d: F+ = %v, want %v", highK, fPlusH, wantFPlus)
	}
}

// TestSpinEchoRefocusing reproduces spec.md §8 scenario 5.
func TestSpinEchoRefocusing(t *testing.T) {
	sp := mustSpecies(t, species.WithDiffusivity(units.SquareMicroMetersPerMilliSecond(3)))
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ApplyPulse(units.Degrees(90), units.Degrees(30))
	if err := m.ApplyTimeInterval(units.MilliSeconds(10), units.MilliTeslaPerMeter(2)); err != nil {
		t.Fatalf("ApplyTimeInterval: %v", err)
	}
	m.ApplyPulse(units.Degrees(120), units.Degrees(0))
	if err := m.ApplyTimeInterval(units.MilliSeconds(10), units.MilliTeslaPerMeter(2)); err != nil {
		t.Fatalf("ApplyTimeInterval: %v", err)
	}

	fPlus, _, _ := m.State(10700)
	want := complex(0.10210725404661349, -0.17685495183007738)
	if !closeEnough(fPlus, want, 1e-6) {
		t.Errorf("F+(k=10700) = %v, want %v", fPlus, want)
	}
}

// TestFSymmetryAtZero checks spec.md §8's "F-symmetry at k=0" after a
// sequence of arbitrary operators.
func TestFSymmetryAtZero(t *testing.T) {
	sp := mustSpecies(t, species.WithDiffusivity(units.SquareMicroMetersPerMilliSecond(3)))
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ApplyPulse(units.Degrees(63), units.Degrees(11))
	if err := m.ApplyTimeInterval(units.MilliSeconds(5), units.MilliTeslaPerMeter(3)); err != nil {
		t.Fatalf("ApplyTimeInterval: %v", err)
	}
	m.ApplyPulse(units.Degrees(150), units.Degrees(70))
	if err := m.ApplyTimeInterval(units.MilliSeconds(7), units.MilliTeslaPerMeter(-1)); err != nil {
		t.Fatalf("ApplyTimeInterval: %v", err)
	}

	fPlus, fMinus, _ := m.State(0)
	if !closeEnough(fPlus, cmplx.Conj(fMinus), 1e-9) {
		t.Errorf("F+(0) = %v, conj(F-*(0)) = %v, want equal", fPlus, cmplx.Conj(fMinus))
	}
}

// TestMassConservationUnderFreePrecession checks spec.md §8's
// "Mass conservation under free precession": with D=0, R1=R2=0, total
// |F|^2+|Z|^2 is preserved across a sequence of gradients.
func TestMassConservationUnderFreePrecession(t *testing.T) {
	sp, err := species.New(units.Hertz(0), units.Hertz(0))
	if err != nil {
		t.Fatalf("species.New: %v", err)
	}
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ApplyPulse(units.Degrees(90), units.Degrees(0))
	before := totalEnergy(m.States())

	m.Shift(units.MilliSeconds(10), units.MilliTeslaPerMeter(2))
	m.Shift(units.MilliSeconds(10), units.MilliTeslaPerMeter(-3))
	m.Shift(units.MilliSeconds(10), units.MilliTeslaPerMeter(1))

	after := totalEnergy(m.States())
	if math.Abs(after-before) > 1e-12 {
		t.Errorf("total energy changed under free precession: %v -> %v", before, after)
	}
}

// totalEnergy sums |F|^2 over every physical order plus |Z|^2 over the
// stored orders. F-*(0) is conj(F+(0)), the same coherence F(0), so it is
// counted once, through F+(0).
func totalEnergy(states []State) float64 {
	var total float64
	for _, s := range states {
		total += cmplx.Abs(s.FPlus)*cmplx.Abs(s.FPlus) + cmplx.Abs(s.Z)*cmplx.Abs(s.Z)
		if s.K != 0 {
			total += cmplx.Abs(s.FMinus) * cmplx.Abs(s.FMinus)
		}
	}
	return total
}

// TestGradientRoundTrip checks spec.md §8's "Gradient round-trip": up to
// binning, shift(tau,+G) then shift(tau,-G) restores the state.
func TestGradientRoundTrip(t *testing.T) {
	sp := mustSpecies(t)
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ApplyPulse(units.Degrees(90), units.Degrees(0))
	before := m.States()

	m.Shift(units.MilliSeconds(10), units.MilliTeslaPerMeter(2))
	m.Shift(units.MilliSeconds(10), units.MilliTeslaPerMeter(-2))

	after := m.States()
	if len(after) != len(before) {
		t.Fatalf("state count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].K != after[i].K {
			t.Fatalf("order %d changed to %d", before[i].K, after[i].K)
		}
		if !closeEnough(before[i].FPlus, after[i].FPlus, 1e-9) {
			t.Errorf("order %d: F+ changed: %v -> %v", before[i].K, before[i].FPlus, after[i].FPlus)
		}
	}
}

// TestThresholdSafety checks spec.md §8's "Threshold safety": pruning
// changes echo by at most theta*(1+number of pruned states). Two
// identical models run the same sequence, one unpruned.
func TestThresholdSafety(t *testing.T) {
	build := func(t *testing.T) *Model {
		t.Helper()
		sp := mustSpecies(t, species.WithDiffusivity(units.SquareMicroMetersPerMilliSecond(3)))
		m, err := New(sp)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		m.ApplyPulse(units.Degrees(90), units.Degrees(10))
		for i := 0; i < 5; i++ {
			if err := m.ApplyTimeInterval(units.MilliSeconds(1), units.MilliTeslaPerMeter(4)); err != nil {
				t.Fatalf("ApplyTimeInterval: %v", err)
			}
			m.ApplyPulse(units.Degrees(30), units.Degrees(0))
		}
		return m
	}

	unpruned := build(t)
	before := len(unpruned.States())

	theta := 1e-4
	pruned := build(t)
	pruned.SetThreshold(theta)
	pruned.ApplyTimeInterval(units.MilliSeconds(1), units.MilliTeslaPerMeter(4))
	unpruned.ApplyTimeInterval(units.MilliSeconds(1), units.MilliTeslaPerMeter(4))

	numPruned := before - len(pruned.States())
	if numPruned < 0 {
		numPruned = 0
	}

	diff := cmplx.Abs(pruned.Echo() - unpruned.Echo())
	bound := theta*float64(1+numPruned) + 1e-9
	if diff > bound {
		t.Errorf("echo changed by %v, want at most %v", diff, bound)
	}
}
