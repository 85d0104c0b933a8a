// Package units provides the handful of unit constructors the EPG core
// and its tests need (time, frequency, angle, field gradient, diffusion
// coefficient, dephasing order). It is deliberately not a general
// units catalogue — spec.md §1 places the full dimensional-analysis
// subsystem out of scope — but every quantity that appears in spec.md's
// worked examples (§8) has a constructor here.
package units

import (
	"math"

	"github.com/lamyj/sycomore/core/quantity"
)

var (
	timeDim      = quantity.Base(quantity.Time)
	lengthDim    = quantity.Base(quantity.Length)
	currentDim   = quantity.Base(quantity.Current)
	massDim      = quantity.Base(quantity.Mass)
	frequencyDim = timeDim.Scale(quantity.Int(-1))
	// Tesla = kg / (A * s^2)
	fieldDim = massDim.Sub(currentDim).Sub(timeDim.Scale(quantity.Int(2)))
)

// Angles: radians are dimensionless in the seven-exponent SI system.

func Radians(v float64) quantity.Quantity    { return quantity.Dimensionless(v) }
func Degrees(v float64) quantity.Quantity    { return quantity.Dimensionless(v * math.Pi / 180) }

// Time.

func Seconds(v float64) quantity.Quantity      { return quantity.Quantity{Magnitude: v, Dimension: timeDim} }
func MilliSeconds(v float64) quantity.Quantity { return Seconds(v * 1e-3) }
func MicroSeconds(v float64) quantity.Quantity { return Seconds(v * 1e-6) }

// Frequency (inverse time) — used for R1/R2 rates and chemical shift.

func Hertz(v float64) quantity.Quantity { return quantity.Quantity{Magnitude: v, Dimension: frequencyDim} }
func KiloHertz(v float64) quantity.Quantity { return Hertz(v * 1e3) }

// RadiansPerSecond expresses an angular frequency; radians are
// dimensionless so this has the same dimension as Hertz.
func RadiansPerSecond(v float64) quantity.Quantity { return Hertz(v) }

// Length.

func Meters(v float64) quantity.Quantity      { return quantity.Quantity{Magnitude: v, Dimension: lengthDim} }
func MilliMeters(v float64) quantity.Quantity { return Meters(v * 1e-3) }
func MicroMeters(v float64) quantity.Quantity { return Meters(v * 1e-6) }

// Field gradient (tesla per meter).

func TeslaPerMeter(v float64) quantity.Quantity {
	return quantity.Quantity{Magnitude: v, Dimension: fieldDim.Sub(lengthDim)}
}
func MilliTeslaPerMeter(v float64) quantity.Quantity { return TeslaPerMeter(v * 1e-3) }

// Dephasing order: radians per meter, same dimension as inverse length
// since radians are dimensionless.

func RadiansPerMeter(v float64) quantity.Quantity {
	return quantity.Quantity{Magnitude: v, Dimension: lengthDim.Scale(quantity.Int(-1))}
}

// Diffusion coefficient: area per time (m^2/s).

func SquareMetersPerSecond(v float64) quantity.Quantity {
	return quantity.Quantity{Magnitude: v, Dimension: lengthDim.Scale(quantity.Int(2)).Sub(timeDim)}
}
func SquareMicroMetersPerMilliSecond(v float64) quantity.Quantity {
	return SquareMetersPerSecond(v * 1e-12 / 1e-3)
}
func SquareMicroMetersPerSecond(v float64) quantity.Quantity {
	return SquareMetersPerSecond(v * 1e-12)
}

// Gamma is the proton gyromagnetic ratio (2π × 42.57747892 MHz/T),
// expressed as radians/s per tesla — the constant the gradient/shift
// operator uses to turn a (duration, gradient) pair into a dephasing
// increment. Angular units are dimensionless, so its dimension is the
// inverse of TeslaPerMeter's field-only part (1/(T·s)), i.e. frequency
// per tesla.
var Gamma = 2 * math.Pi * 42.57747892e6 // rad / s / T, magnitude only

// GammaBar is gamma/2π, in Hz/T — used when a sequence specifies things
// in terms of ordinary (not angular) frequency.
var GammaBar = 42.57747892e6
