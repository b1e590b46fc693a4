// Package solvers holds direct inner solvers for the Stokes block
// preconditioners. Each level in range is solved on its own with a dense LU
// factorisation, so every level must be covered by its patches.
package solvers

import (
	"fmt"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/utils"
)

// base is the state shared by the solvers in this package
type base struct {
	Name string

	homogeneous         bool
	initialGuessNonzero bool
	maxIterations       int
	solutionTime        float64
	currentTime         float64
	newTime             float64

	initialized bool
	hierarchy   *grid.Hierarchy
	coarsest    int
	finest      int
}

func newBase(name string) base {
	return base{Name: name, homogeneous: true, maxIterations: 1}
}

func (b *base) SetHomogeneousBc(homogeneous bool) { b.homogeneous = homogeneous }
func (b *base) HomogeneousBc() bool               { return b.homogeneous }
func (b *base) SetSolutionTime(t float64)         { b.solutionTime = t }
func (b *base) SolutionTime() float64             { return b.solutionTime }
func (b *base) IsInitialized() bool               { return b.initialized }

func (b *base) SetTimeInterval(currentTime, newTime float64) {
	b.currentTime, b.newTime = currentTime, newTime
}

// SetInitialGuessNonzero is recorded only, a direct solve does not use a guess
func (b *base) SetInitialGuessNonzero(nonzero bool) error {
	b.initialGuessNonzero = nonzero
	return nil
}

func (b *base) InitialGuessNonzero() bool { return b.initialGuessNonzero }

func (b *base) SetMaxIterations(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %s: max iterations must be positive, got %d", utils.ErrConfiguration, b.Name, n)
	}
	b.maxIterations = n
	return nil
}

func (b *base) MaxIterations() int { return b.maxIterations }

// checkVectors validates x and b against kind and records the level range
func (b *base) checkVectors(x, rhs *grid.Vector, kind grid.Kind) error {
	for _, v := range []*grid.Vector{x, rhs} {
		if v == nil {
			return fmt.Errorf("%w: %s: nil vector", utils.ErrConfiguration, b.Name)
		}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", utils.ErrConfiguration, b.Name, err)
		}
		if v.NumComponents() != 1 {
			return fmt.Errorf("%w: %s: vector %s has %d components, need 1",
				utils.ErrConfiguration, b.Name, v.Name, v.NumComponents())
		}
		spec, err := v.Hierarchy.Registry().Spec(v.Component(0))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", utils.ErrConfiguration, b.Name, err)
		}
		if spec.Kind != kind {
			return fmt.Errorf("%w: %s: vector %s holds %s data, need %s",
				utils.ErrConfiguration, b.Name, v.Name, spec.Kind, kind)
		}
	}
	if x.Hierarchy != rhs.Hierarchy || x.Coarsest != rhs.Coarsest || x.Finest != rhs.Finest {
		return fmt.Errorf("%w: %s: solution and right hand side live on different levels",
			utils.ErrConfiguration, b.Name)
	}
	for ln := x.Coarsest; ln <= x.Finest; ln++ {
		if !x.Hierarchy.Level(ln).CoversDomain() {
			return fmt.Errorf("%w: %s: level %d is not covered by its patches",
				utils.ErrConfiguration, b.Name, ln)
		}
	}
	b.hierarchy, b.coarsest, b.finest = x.Hierarchy, x.Coarsest, x.Finest
	return nil
}
