// Package ops provides the level operators the Stokes preconditioner calls:
// ghost cell filling, staggered divergence and gradient, and hierarchy wide
// cell data arithmetic.
package ops

import (
	"fmt"

	"github.com/notargets/StokesPC/bc"
	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/utils"
)

// Filler fills the ghost cells of some field at a given time
type Filler interface {
	FillData(fillTime float64) error
}

// GhostFill fills the first ghost layer of a cell centred field: from
// neighbouring patches on the same level, and at the physical boundary by
// linear extrapolation honouring α·u + β·∂u/∂n = γ at the boundary face.
// Corner ghosts and ghosts on coarse-fine interfaces are not filled.
type GhostFill struct {
	hierarchy   *grid.Hierarchy
	idx         grid.FieldIndex
	bcCoef      bc.Strategy
	homogeneous bool
	coarsest    int
	finest      int
	connectors  []*grid.Connector
}

// NewGhostFill prepares a fill of idx over levels coarsest..finest. A nil
// bcCoef means homogeneous Neumann conditions everywhere.
func NewGhostFill(h *grid.Hierarchy, idx grid.FieldIndex, bcCoef bc.Strategy, coarsest, finest int) (*GhostFill, error) {
	spec, err := h.Registry().Spec(idx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrConfiguration, err)
	}
	if spec.Kind != grid.Cell || spec.Ghost < 1 {
		return nil, fmt.Errorf("%w: ghost fill needs a cell field with ghosts, %s is %s/%d",
			utils.ErrConfiguration, spec.Name, spec.Kind, spec.Ghost)
	}
	if coarsest < 0 || finest < coarsest || finest > h.FinestLevelNumber() {
		return nil, fmt.Errorf("%w: bad level range [%d, %d]", utils.ErrConfiguration, coarsest, finest)
	}
	g := &GhostFill{
		hierarchy:  h,
		idx:        idx,
		bcCoef:     bcCoef,
		coarsest:   coarsest,
		finest:     finest,
		connectors: make([]*grid.Connector, h.NumLevels()),
	}
	for ln := coarsest; ln <= finest; ln++ {
		g.connectors[ln] = grid.NewConnector(h.Level(ln), 1)
	}
	return g, nil
}

func (g *GhostFill) SetHomogeneousBc(homogeneous bool) { g.homogeneous = homogeneous }

func (g *GhostFill) HomogeneousBc() bool { return g.homogeneous }

func (g *GhostFill) FillData(fillTime float64) error {
	var hc bc.HomogeneousController
	if g.bcCoef != nil {
		if hc = g.bcCoef.HomogeneousControl(); hc != nil {
			hc.SetHomogeneousBc(g.homogeneous)
		}
	}
	zeroGamma := g.homogeneous && hc == nil

	for ln := g.coarsest; ln <= g.finest; ln++ {
		if !g.hierarchy.Level(ln).CheckAllocated(g.idx) {
			return fmt.Errorf("%w: field %d not allocated on level %d", utils.ErrConfiguration, g.idx, ln)
		}
	}
	return sweepLevels(g.hierarchy, g.coarsest, g.finest, func(lvl *grid.Level, p *grid.Patch) error {
		g.connectors[lvl.Number].FillCellGhosts(lvl, g.idx, p.ID)
		return g.fillPhysical(lvl, p, fillTime, zeroGamma)
	})
}

func (g *GhostFill) fillPhysical(lvl *grid.Level, patch *grid.Patch, fillTime float64, zeroGamma bool) error {
	if !patch.TouchesRegularBoundary {
		return nil
	}
	data := patch.CellData(g.idx)
	for _, bdry := range lvl.PhysicalCodim1Boxes()[patch.ID] {
		bdry := bdry
		var (
			h     = patch.Dx[bdry.NormalAxis()]
			coefs *bc.Coefficients
		)
		if g.bcCoef != nil {
			coefs = bc.NewCoefficients(bdry.Box)
			if err := g.bcCoef.SetBcCoefs(coefs, patch, bdry, fillTime); err != nil {
				return err
			}
		}
		var err error
		bdry.Box.ForEach(func(i grid.IntVector) {
			if err != nil {
				return
			}
			alpha, beta, gamma := 0.0, 1.0, 0.0
			if coefs != nil {
				alpha, beta, gamma = coefs.Alpha.At(i), coefs.Beta.At(i), coefs.Gamma.At(i)
			}
			if zeroGamma {
				gamma = 0
			}
			ui := data.At(bdry.InteriorCell(i))
			ug, e := extrapolate(alpha, beta, gamma, h, ui)
			if e != nil {
				err = fmt.Errorf("level %d patch %d face %v: %w", lvl.Number, patch.ID, i, e)
				return
			}
			data.Set(bdry.GhostCell(i), ug)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// extrapolate returns the ghost value ug such that with the boundary value
// (ug+ui)/2 and outward derivative (ug-ui)/h the Robin condition holds.
func extrapolate(alpha, beta, gamma, h, ui float64) (float64, error) {
	den := 0.5*alpha + beta/h
	if den == 0 {
		return 0, fmt.Errorf("%w: degenerate Robin coefficients alpha=%g beta=%g",
			utils.ErrInvariantViolation, alpha, beta)
	}
	return (gamma - (0.5*alpha-beta/h)*ui) / den, nil
}

// RobinGhostFactor returns r and c with ghost = r*interior + c, the affine
// form of the extrapolation used by GhostFill.
func RobinGhostFactor(alpha, beta, gamma, h float64) (r, c float64, err error) {
	if c, err = extrapolate(alpha, beta, gamma, h, 0); err != nil {
		return 0, 0, err
	}
	one, _ := extrapolate(alpha, beta, gamma, h, 1)
	return one - c, c, nil
}
