package bc

import (
	"fmt"

	"github.com/notargets/StokesPC/grid"
)

// LocationIndexCoefs assigns constant coefficients to each of the 2*D
// boundary locations. Every location starts as homogeneous Dirichlet.
type LocationIndexCoefs struct {
	Name    string
	a, b, g []float64
}

func NewLocationIndexCoefs(name string, dim int) *LocationIndexCoefs {
	l := &LocationIndexCoefs{
		Name: name,
		a:    make([]float64, 2*dim),
		b:    make([]float64, 2*dim),
		g:    make([]float64, 2*dim),
	}
	for loc := range l.a {
		l.a[loc] = 1
	}
	return l
}

// SetBoundaryValue sets a Dirichlet condition u = value at loc
func (l *LocationIndexCoefs) SetBoundaryValue(loc int, value float64) {
	l.SetRawCoefs(loc, 1, 0, value)
}

// SetBoundarySlope sets a Neumann condition ∂u/∂n = slope at loc
func (l *LocationIndexCoefs) SetBoundarySlope(loc int, slope float64) {
	l.SetRawCoefs(loc, 0, 1, slope)
}

func (l *LocationIndexCoefs) SetRawCoefs(loc int, a, b, g float64) {
	if loc < 0 || loc >= len(l.a) {
		panic(fmt.Errorf("%s: location index %d out of range", l.Name, loc))
	}
	l.a[loc], l.b[loc], l.g[loc] = a, b, g
}

func (l *LocationIndexCoefs) Coefs(loc int) (a, b, g float64) {
	return l.a[loc], l.b[loc], l.g[loc]
}

func (l *LocationIndexCoefs) SetBcCoefs(coefs *Coefficients, _ *grid.Patch, region grid.BoundaryBox, _ float64) error {
	loc := region.LocationIndex
	if loc < 0 || loc >= len(l.a) {
		return fmt.Errorf("%s: location index %d out of range", l.Name, loc)
	}
	coefs.Alpha.Fill(l.a[loc])
	coefs.Beta.Fill(l.b[loc])
	coefs.Gamma.Fill(l.g[loc])
	return nil
}

func (l *LocationIndexCoefs) FieldBinder() FieldBinder { return nil }

func (l *LocationIndexCoefs) HomogeneousControl() HomogeneousController { return nil }
