package utils

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Eps is the comparison tolerance used for boundary coefficients, the square
// root of the float64 machine epsilon.
var Eps = math.Sqrt(2.220446049250313e-16)

// EqualEps reports whether a and b agree to within Eps, absolutely or
// relative to their magnitude.
func EqualEps(a, b float64) bool {
	return scalar.EqualWithinAbsOrRel(a, b, Eps, Eps)
}
