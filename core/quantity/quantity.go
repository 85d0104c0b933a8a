// Package quantity implements the dimensional scalar described in
// spec.md §3: a magnitude paired with a seven-exponent dimension
// signature (length, mass, time, current, temperature, amount of
// substance, luminous intensity). It is intentionally small — the full
// units/dimensional-analysis subsystem this is distilled from is out of
// scope (spec.md §1) — but every arithmetic and comparison rule spec.md
// requires is implemented here so the rest of the module can be typed
// against it.
package quantity

import (
	"fmt"
	"math"

	"github.com/lamyj/sycomore/shared/types"
)

// Axis indexes the seven SI base dimensions inside a Dimension.
type Axis int

const (
	Length Axis = iota
	Mass
	Time
	Current
	Temperature
	Amount
	Luminosity
	numAxes
)

// Dimension is the exponent vector of a Quantity. The zero value is
// dimensionless.
type Dimension [numAxes]Rational

// Base returns the dimension with exponent 1 on a single axis.
func Base(axis Axis) Dimension {
	var d Dimension
	d[axis] = Int(1)
	return d
}

func (d Dimension) IsDimensionless() bool {
	return d == Dimension{}
}

func (d Dimension) Equal(o Dimension) bool {
	for i := range d {
		if !d[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (d Dimension) Add(o Dimension) Dimension {
	var r Dimension
	for i := range d {
		r[i] = d[i].Add(o[i])
	}
	return r
}

func (d Dimension) Sub(o Dimension) Dimension {
	var r Dimension
	for i := range d {
		r[i] = d[i].Sub(o[i])
	}
	return r
}

func (d Dimension) Scale(p Rational) Dimension {
	var r Dimension
	for i := range d {
		r[i] = d[i].Mul(p)
	}
	return r
}

var axisSymbols = [numAxes]string{"L", "M", "T", "I", "Θ", "N", "J"}

func (d Dimension) String() string {
	if d.IsDimensionless() {
		return "dimensionless"
	}
	s := ""
	for i, e := range d {
		if e.IsZero() {
			continue
		}
		if s != "" {
			s += "·"
		}
		if e.Den == 1 {
			s += fmt.Sprintf("%s^%d", axisSymbols[i], e.Num)
		} else {
			s += fmt.Sprintf("%s^(%d/%d)", axisSymbols[i], e.Num, e.Den)
		}
	}
	return s
}

// Quantity is a magnitude expressed in SI base units together with the
// dimension it carries. All arithmetic below mutates nothing; every
// method returns a new value.
type Quantity struct {
	Magnitude float64
	Dimension Dimension
}

// Dimensionless builds a plain scalar (e.g. a flip angle in radians: the
// radian is dimensionless in the SI seven-exponent system).
func Dimensionless(magnitude float64) Quantity {
	return Quantity{Magnitude: magnitude}
}

// mismatch panics per spec.md §4.9: arithmetic or comparison across
// different dimensions is a programmer error, not a data-dependent one.
func mismatch(op string, a, b Quantity) {
	types.Fatal(
		types.DimensionMismatch,
		fmt.Sprintf("invalid dimensions for %s", op),
		fmt.Sprintf("%s vs %s", a.Dimension, b.Dimension),
	)
}

func (q Quantity) Add(o Quantity) Quantity {
	if !q.Dimension.Equal(o.Dimension) {
		mismatch("addition", q, o)
	}
	return Quantity{Magnitude: q.Magnitude + o.Magnitude, Dimension: q.Dimension}
}

func (q Quantity) Sub(o Quantity) Quantity {
	if !q.Dimension.Equal(o.Dimension) {
		mismatch("subtraction", q, o)
	}
	return Quantity{Magnitude: q.Magnitude - o.Magnitude, Dimension: q.Dimension}
}

func (q Quantity) Mul(o Quantity) Quantity {
	return Quantity{Magnitude: q.Magnitude * o.Magnitude, Dimension: q.Dimension.Add(o.Dimension)}
}

func (q Quantity) Div(o Quantity) Quantity {
	return Quantity{Magnitude: q.Magnitude / o.Magnitude, Dimension: q.Dimension.Sub(o.Dimension)}
}

// Scale multiplies the magnitude by a dimensionless factor, leaving the
// dimension unchanged.
func (q Quantity) Scale(factor float64) Quantity {
	return Quantity{Magnitude: q.Magnitude * factor, Dimension: q.Dimension}
}

// Pow raises the quantity to a rational power, scaling its dimension.
func (q Quantity) Pow(p Rational) Quantity {
	return Quantity{Magnitude: math.Pow(q.Magnitude, p.Float()), Dimension: q.Dimension.Scale(p)}
}

func (q Quantity) Neg() Quantity {
	return Quantity{Magnitude: -q.Magnitude, Dimension: q.Dimension}
}

// comparable reports whether q and o may be compared: same dimension, or
// either side is a dimensionless zero (spec.md §4.9 carve-out: "equality
// to scalar with empty dimensions").
func comparable(q, o Quantity) bool {
	if q.Dimension.Equal(o.Dimension) {
		return true
	}
	if o.Dimension.IsDimensionless() && o.Magnitude == 0 {
		return true
	}
	if q.Dimension.IsDimensionless() && q.Magnitude == 0 {
		return true
	}
	return false
}

// Equal compares two quantities, panicking on a dimension mismatch
// unless one side is the dimensionless zero.
func (q Quantity) Equal(o Quantity) bool {
	if !comparable(q, o) {
		mismatch("comparison", q, o)
	}
	return q.Magnitude == o.Magnitude
}

// Compare returns -1, 0 or 1 as q is less than, equal to, or greater
// than o. Panics on a dimension mismatch (see Equal).
func (q Quantity) Compare(o Quantity) int {
	if !comparable(q, o) {
		mismatch("comparison", q, o)
	}
	switch {
	case q.Magnitude < o.Magnitude:
		return -1
	case q.Magnitude > o.Magnitude:
		return 1
	default:
		return 0
	}
}

// In returns the magnitude of q expressed in the given unit (itself a
// Quantity whose magnitude is "one unit" in SI base terms, as produced
// by the units subpackage). Panics on a dimension mismatch.
func (q Quantity) In(unit Quantity) float64 {
	if !q.Dimension.Equal(unit.Dimension) {
		mismatch("unit conversion", q, unit)
	}
	return q.Magnitude / unit.Magnitude
}
