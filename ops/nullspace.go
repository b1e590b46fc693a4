package ops

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/utils"
)

// ConstantNullspace removes the constant pressure mode. It applies when
// every velocity boundary condition is of Dirichlet type, the pressure is
// then only defined up to a constant.
type ConstantNullspace struct {
	// Disabled leaves the solution untouched, for open boundaries
	Disabled bool
}

// CorrectNullspace shifts the pressure component of p to zero mean. u is
// accepted for symmetry with other correctors and is not modified.
func (c *ConstantNullspace) CorrectNullspace(u, p *grid.Vector) error {
	if c.Disabled {
		return nil
	}
	if p == nil || p.NumComponents() < 1 {
		return fmt.Errorf("%w: nullspace correction needs a pressure vector", utils.ErrConfiguration)
	}
	o := NewCellDataOps(p.Hierarchy, p.Coarsest, p.Finest)
	idx := p.Component(0)
	mean, err := o.Mean(idx)
	if err != nil {
		return err
	}
	utils.Logger().Debug("removing mean pressure",
		zap.String("vector", p.Name), zap.Float64("mean", mean))
	return o.AddScalar(idx, -mean)
}
