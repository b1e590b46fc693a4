// Package bc holds the Robin boundary condition strategies used for the
// staggered velocity and cell centred pressure fields, and the helper that
// imposes Dirichlet normal velocity values at the physical boundary.
package bc

import (
	"github.com/notargets/StokesPC/grid"
)

// Coefficients holds α, β and γ of α·u + β·∂u/∂n = γ on every face of a
// boundary box.
type Coefficients struct {
	Box   grid.Box
	Alpha *grid.ArrayData
	Beta  *grid.ArrayData
	Gamma *grid.ArrayData
}

func NewCoefficients(b grid.Box) *Coefficients {
	return &Coefficients{
		Box:   grid.NewBox(b.Lo, b.Hi),
		Alpha: grid.NewArrayData(b),
		Beta:  grid.NewArrayData(b),
		Gamma: grid.NewArrayData(b),
	}
}

// Strategy provides the linear boundary condition at each location. Every
// strategy evaluates coefficients; the binding and homogeneous capabilities
// are optional and queried through FieldBinder and HomogeneousControl, which
// return nil when the strategy does not support them.
//
// SetBcCoefs may be called concurrently for different patches and must not
// modify the strategy.
type Strategy interface {
	SetBcCoefs(coefs *Coefficients, patch *grid.Patch, region grid.BoundaryBox, fillTime float64) error
	FieldBinder() FieldBinder
	HomogeneousControl() HomogeneousController
}

// FieldBinder is implemented by strategies that read the current velocity
// and pressure to build self consistent conditions, e.g. traction.
type FieldBinder interface {
	SetTargetVelocityIndex(idx grid.FieldIndex)
	SetTargetPressureIndex(idx grid.FieldIndex)
	ClearTargetVelocityIndex()
	ClearTargetPressureIndex()
}

// HomogeneousController is implemented by strategies that can drop their
// inhomogeneous data on request.
type HomogeneousController interface {
	SetHomogeneousBc(homogeneous bool)
	ClearTargetPatchDataIndex()
}
