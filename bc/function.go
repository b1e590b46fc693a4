package bc

import (
	"fmt"

	"github.com/notargets/StokesPC/grid"
)

// GammaFunc evaluates inhomogeneous boundary data at face centre x
type GammaFunc func(x []float64, t float64) float64

// FunctionCoefs uses constant α and β per location with γ computed from a
// function of position and time. It honours homogeneous requests.
type FunctionCoefs struct {
	ExtendedBase
	Name string
	a, b []float64
	g    []GammaFunc
}

func NewFunctionCoefs(name string, dim int) *FunctionCoefs {
	f := &FunctionCoefs{
		ExtendedBase: NewExtendedBase(),
		Name:         name,
		a:            make([]float64, 2*dim),
		b:            make([]float64, 2*dim),
		g:            make([]GammaFunc, 2*dim),
	}
	for loc := range f.a {
		f.a[loc] = 1
	}
	return f
}

func (f *FunctionCoefs) SetDirichlet(loc int, g GammaFunc) { f.set(loc, 1, 0, g) }

func (f *FunctionCoefs) SetNeumann(loc int, g GammaFunc) { f.set(loc, 0, 1, g) }

func (f *FunctionCoefs) set(loc int, a, b float64, g GammaFunc) {
	if loc < 0 || loc >= len(f.a) {
		panic(fmt.Errorf("%s: location index %d out of range", f.Name, loc))
	}
	f.a[loc], f.b[loc], f.g[loc] = a, b, g
}

func (f *FunctionCoefs) SetBcCoefs(coefs *Coefficients, patch *grid.Patch, region grid.BoundaryBox, fillTime float64) error {
	loc := region.LocationIndex
	if loc < 0 || loc >= len(f.a) {
		return fmt.Errorf("%s: location index %d out of range", f.Name, loc)
	}
	coefs.Alpha.Fill(f.a[loc])
	coefs.Beta.Fill(f.b[loc])
	g := f.g[loc]
	if f.homogeneous || g == nil {
		coefs.Gamma.Fill(0)
		return nil
	}
	axis := region.NormalAxis()
	coefs.Box.ForEach(func(i grid.IntVector) {
		coefs.Gamma.Set(i, g(patch.FaceCenter(i, axis), fillTime))
	})
	return nil
}

func (f *FunctionCoefs) FieldBinder() FieldBinder { return nil }
