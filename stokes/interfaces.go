// Package stokes provides block preconditioners for the staggered grid
// incompressible Stokes system
//
//	C u + D L u + grad p = f_u
//	               -div u = f_p
//
// with velocity on cell faces and pressure at cell centres.
package stokes

import (
	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/ops"
)

// GeneralSolver is an inner solver used for one block of the system
type GeneralSolver interface {
	SetHomogeneousBc(homogeneous bool)
	SetSolutionTime(t float64)
	SolutionTime() float64
	SetTimeInterval(currentTime, newTime float64)
	InitializeSolverState(x, b *grid.Vector) error
	DeallocateSolverState()
	// SolveSystem reports whether the solve converged
	SolveSystem(x, b *grid.Vector) (bool, error)
}

// LinearSolver is a GeneralSolver that can start from a zero guess
type LinearSolver interface {
	GeneralSolver
	SetInitialGuessNonzero(nonzero bool) error
}

// NullspaceCorrector removes nullspace components from a (u, p) solution
type NullspaceCorrector interface {
	CorrectNullspace(u, p *grid.Vector) error
}

// MathOps is the discrete divergence and gradient, see ops.HierarchyMathOps
type MathOps interface {
	Div(dst grid.FieldIndex, alpha float64, src grid.FieldIndex,
		cfBdrySynch bool, beta float64, src2 grid.FieldIndex) error
	Grad(dst grid.FieldIndex, cfBdrySynch bool, alpha float64, src grid.FieldIndex,
		fill ops.Filler, fillTime float64, beta float64, src2 grid.FieldIndex) error
}
