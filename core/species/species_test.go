package species

import (
	"testing"

	"github.com/lamyj/sycomore/core/quantity"
	"github.com/lamyj/sycomore/core/quantity/units"
	"github.com/lamyj/sycomore/shared/types"
)

func TestNewFromRelaxationTimes(t *testing.T) {
	sp, err := New(units.MilliSeconds(1000), units.MilliSeconds(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sp.R1.In(units.Hertz(1)); got != 1 {
		t.Fatalf("R1 = %v Hz, want 1", got)
	}
	if got := sp.R2.In(units.Hertz(1)); got != 10 {
		t.Fatalf("R2 = %v Hz, want 10", got)
	}
	if sp.M0 != 1 {
		t.Fatalf("default M0 = %v, want 1", sp.M0)
	}
	if !sp.D.IsZero() {
		t.Fatal("default diffusion tensor should be zero")
	}
}

func TestNewFromRelaxationRates(t *testing.T) {
	sp, err := New(units.Hertz(1), units.Hertz(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.R1.Magnitude != units.Hertz(1).Magnitude {
		t.Fatalf("R1 = %v, want 1 Hz", sp.R1.Magnitude)
	}
	if sp.R2.Magnitude != units.Hertz(10).Magnitude {
		t.Fatalf("R2 = %v, want 10 Hz", sp.R2.Magnitude)
	}
}

func TestNewAcceptsMixedTimeAndRateArguments(t *testing.T) {
	sp, err := New(units.MilliSeconds(1000), units.Hertz(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sp.R1.In(units.Hertz(1)); got != 1 {
		t.Fatalf("R1 = %v Hz, want 1", got)
	}
	if got := sp.R2.In(units.Hertz(1)); got != 10 {
		t.Fatalf("R2 = %v Hz, want 10", got)
	}
}

func TestNewRejectsNonPositiveTimeConstant(t *testing.T) {
	if _, err := New(units.MilliSeconds(0), units.MilliSeconds(100)); err == nil {
		t.Fatal("expected error for zero T1")
	}
	if _, err := New(units.MilliSeconds(-5), units.MilliSeconds(100)); err == nil {
		t.Fatal("expected error for negative T1")
	}
}

func TestNewRejectsWrongDimension(t *testing.T) {
	if _, err := New(units.Meters(1), units.MilliSeconds(100)); err == nil {
		t.Fatal("expected error for a length where a time/frequency was required")
	}
}

func TestWithM0RejectsNonPositive(t *testing.T) {
	if _, err := New(units.MilliSeconds(1000), units.MilliSeconds(100), WithM0(0)); err == nil {
		t.Fatal("expected error for zero M0")
	}
	if _, err := New(units.MilliSeconds(1000), units.MilliSeconds(100), WithM0(-1)); err == nil {
		t.Fatal("expected error for negative M0")
	}
}

func TestWithChemicalShiftRejectsNonAngularFrequency(t *testing.T) {
	_, err := New(units.MilliSeconds(1000), units.MilliSeconds(100), WithChemicalShift(units.Meters(1)))
	if err == nil {
		t.Fatal("expected error for a non-angular-frequency chemical shift")
	}
}

func TestWithChemicalShiftAccepted(t *testing.T) {
	sp, err := New(units.MilliSeconds(1000), units.MilliSeconds(100), WithChemicalShift(units.RadiansPerSecond(5)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.DeltaOmega.Magnitude != units.RadiansPerSecond(5).Magnitude {
		t.Fatalf("DeltaOmega = %v, want 5 rad/s", sp.DeltaOmega.Magnitude)
	}
}

func TestWithDiffusivityBroadcastsScalar(t *testing.T) {
	sp, err := New(units.MilliSeconds(1000), units.MilliSeconds(100), WithDiffusivity(units.SquareMicroMetersPerMilliSecond(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sp.D.IsZero() {
		t.Fatal("diffusion tensor should not be zero")
	}
	want := units.SquareMicroMetersPerMilliSecond(2).Magnitude
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				if sp.D.At(i, j) != want {
					t.Fatalf("D[%d][%d] = %v, want %v", i, j, sp.D.At(i, j), want)
				}
			} else if sp.D.At(i, j) != 0 {
				t.Fatalf("D[%d][%d] = %v, want 0", i, j, sp.D.At(i, j))
			}
		}
	}
}

func TestWithDiffusionTensorRejectsAsymmetric(t *testing.T) {
	var d [3][3]quantity.Quantity
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d[i][j] = units.SquareMetersPerSecond(0)
		}
	}
	d[0][1] = units.SquareMetersPerSecond(1)
	d[1][0] = units.SquareMetersPerSecond(2)

	_, err := New(units.MilliSeconds(1000), units.MilliSeconds(100), WithDiffusionTensor(d))
	if err == nil {
		t.Fatal("expected error for asymmetric diffusion tensor")
	}
	te, ok := err.(*types.Error)
	if !ok || te.Code != types.InvalidArgument {
		t.Fatalf("got %#v, want *types.Error{Code: InvalidArgument}", err)
	}
}

func TestWithDiffusionTensorRejectsIndefinite(t *testing.T) {
	var d [3][3]quantity.Quantity
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d[i][j] = units.SquareMetersPerSecond(0)
		}
	}
	d[0][0] = units.SquareMetersPerSecond(1)
	d[1][1] = units.SquareMetersPerSecond(-1)
	d[2][2] = units.SquareMetersPerSecond(1)

	if _, err := New(units.MilliSeconds(1000), units.MilliSeconds(100), WithDiffusionTensor(d)); err == nil {
		t.Fatal("expected error for an indefinite (non-PSD) diffusion tensor")
	}
}

func TestCopyDeepCopiesDiffusionTensor(t *testing.T) {
	sp, err := New(units.MilliSeconds(1000), units.MilliSeconds(100), WithDiffusivity(units.SquareMicroMetersPerMilliSecond(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cp := sp.Copy()
	if cp.D.Dense() == sp.D.Dense() {
		t.Fatal("Copy should not alias the original diffusion tensor's storage")
	}
	if cp.D.At(0, 0) != sp.D.At(0, 0) {
		t.Fatalf("copied tensor diverged: got %v, want %v", cp.D.At(0, 0), sp.D.At(0, 0))
	}
}
