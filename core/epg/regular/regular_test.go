package regular

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

// TestEmptyState reproduces spec.md §8 scenario 1 for the Regular model.
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
	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
	fPlus, fMinus, z, err := m.State(0)
	if err != nil {
		t.Fatalf("State(0): %v", err)
	}
	if fPlus != 0 || fMinus != 0 || real(z) != 1 {
		t.Errorf("state(0) = (%v,%v,%v), want (0,0,1)", fPlus, fMinus, z)
	}
}

// TestStateOutOfRange checks spec.md §4.9: querying an order that does
// not exist is a reported error, not a silent zero.
func TestStateOutOfRange(t *testing.T) {
	sp, err := species.New(units.Hertz(1), units.Hertz(10))
	if err != nil {
		t.Fatalf("species.New: %v", err)
	}
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, _, err := m.State(5); err == nil {
		t.Error("expected an error for an order beyond len()")
	}
}

// TestGradientRoundTrip checks spec.md §8's "Gradient round-trip" for
// the Regular model: shift(tau,+G) then shift(tau,-G) restores state
// exactly.
func TestGradientRoundTrip(t *testing.T) {
	sp, err := species.New(units.Hertz(0), units.Hertz(0))
	if err != nil {
		t.Fatalf("species.New: %v", err)
	}
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ApplyPulse(units.Degrees(90), units.Degrees(0))

	area := units.RadiansPerMeter(1)
	tau := units.MilliSeconds(5)
	g := units.TeslaPerMeter(area.Magnitude / (units.Gamma * tau.Magnitude))

	before := append([]State(nil), m.States()...)
	m.Shift(tau, g)
	m.Shift(tau, units.TeslaPerMeter(-g.Magnitude))
	after := m.States()

	if len(after) != len(before)+2 {
		// size never shrinks (spec.md §9): each unit shift, in either
		// direction, adds one column, so the two shifts grow it by 2.
		t.Fatalf("len = %d, want %d", len(after), len(before)+2)
	}
	for i := range before {
		if !closeEnough(before[i].FPlus, after[i].FPlus, 1e-9) {
			t.Errorf("k=%d: F+ changed: %v -> %v", i, before[i].FPlus, after[i].FPlus)
		}
		if !closeEnough(before[i].Z, after[i].Z, 1e-9) {
			t.Errorf("k=%d: Z changed: %v -> %v", i, before[i].Z, after[i].Z)
		}
	}
}

// TestInvalidGradientAreaFatal checks spec.md §4.5/§4.9: a shift whose
// area is not an integer multiple of unit_gradient_area panics.
func TestInvalidGradientAreaFatal(t *testing.T) {
	sp, err := species.New(units.Hertz(1), units.Hertz(10))
	if err != nil {
		t.Fatalf("species.New: %v", err)
	}
	m, err := New(sp, WithUnitGradientArea(units.RadiansPerMeter(1)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a non-integer gradient area")
		}
	}()
	// Gamma * G * tau deliberately chosen to miss any integer multiple.
	m.Shift(units.MilliSeconds(1), units.MilliTeslaPerMeter(0.00000123))
}

// TestRAREEchoTrain reproduces spec.md §8 scenario 6: magnitude of the
// n-th echo of a CPMG-style train decays as exp(-n*TE*R2).
func TestRAREEchoTrain(t *testing.T) {
	sp, err := species.New(units.MilliSeconds(1000), units.MilliSeconds(100))
	if err != nil {
		t.Fatalf("species.New: %v", err)
	}
	m, err := New(sp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	halfTE := units.MilliSeconds(5)
	area := units.RadiansPerMeter(1)
	g := units.TeslaPerMeter(area.Magnitude / (units.Gamma * halfTE.Magnitude))

	m.ApplyPulse(units.Degrees(90), units.Degrees(0))

	r2 := 10.0 // 1/s, R2 = 1/T2
	te := 0.010
	for n := 1; n <= 40; n++ {
		if err := m.ApplyTimeInterval(halfTE, g); err != nil {
			t.Fatalf("ApplyTimeInterval: %v", err)
		}
		m.ApplyPulse(units.Degrees(180), units.Degrees(0))
		if err := m.ApplyTimeInterval(halfTE, g); err != nil {
			t.Fatalf("ApplyTimeInterval: %v", err)
		}

		want := math.Exp(-float64(n) * te * r2)
		gotMag := cmplx.Abs(m.Echo())
		if math.Abs(gotMag-want) > 0.05*want+1e-4 {
			t.Errorf("echo %d magnitude = %v, want approx %v", n, gotMag, want)
		}
	}
}
