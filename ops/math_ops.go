package ops

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/utils"
)

// HierarchyMathOps applies the staggered divergence and gradient over a
// range of levels. Divergence maps side data to cell data, gradient maps
// cell data to side data.
type HierarchyMathOps struct {
	Name       string
	hierarchy  *grid.Hierarchy
	coarsest   int
	finest     int
	connectors []*grid.Connector
}

func NewHierarchyMathOps(name string, h *grid.Hierarchy, coarsest, finest int) (*HierarchyMathOps, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: %s: nil hierarchy", utils.ErrConfiguration, name)
	}
	if coarsest < 0 || finest < coarsest || finest > h.FinestLevelNumber() {
		return nil, fmt.Errorf("%w: %s: bad level range [%d, %d]", utils.ErrConfiguration, name, coarsest, finest)
	}
	m := &HierarchyMathOps{
		Name:       name,
		hierarchy:  h,
		coarsest:   coarsest,
		finest:     finest,
		connectors: make([]*grid.Connector, h.NumLevels()),
	}
	for ln := coarsest; ln <= finest; ln++ {
		m.connectors[ln] = grid.NewConnector(h.Level(ln), 0)
	}
	return m, nil
}

func (m *HierarchyMathOps) Hierarchy() *grid.Hierarchy { return m.hierarchy }

// SynchSides makes faces shared by two patches of a level hold one value
func (m *HierarchyMathOps) SynchSides(idx grid.FieldIndex) error {
	if err := m.check(idx, grid.Side, 0); err != nil {
		return err
	}
	return m.sweep(func(lvl *grid.Level, p *grid.Patch) error {
		m.connectors[lvl.Number].SynchSides(lvl, idx, p.ID)
		return nil
	})
}

// Div sets dst = alpha*div(src) + beta*src2 on the interior cells. src2 may
// be grid.InvalidField, in which case the beta term is dropped. With
// cfBdrySynch set the faces of src are synchronised first.
func (m *HierarchyMathOps) Div(dst grid.FieldIndex, alpha float64, src grid.FieldIndex,
	cfBdrySynch bool, beta float64, src2 grid.FieldIndex) error {
	if err := m.check(dst, grid.Cell, 0); err != nil {
		return err
	}
	if err := m.check(src, grid.Side, 0); err != nil {
		return err
	}
	if src2 != grid.InvalidField {
		if err := m.check(src2, grid.Cell, 0); err != nil {
			return err
		}
	}
	if cfBdrySynch {
		if err := m.SynchSides(src); err != nil {
			return err
		}
	}
	return m.sweep(func(_ *grid.Level, p *grid.Patch) error {
		var (
			u   = p.SideData(src)
			d   = p.CellData(dst)
			f   *grid.CellData
			dim = p.Dim()
		)
		if src2 != grid.InvalidField {
			f = p.CellData(src2)
		}
		up := make(grid.IntVector, dim)
		p.Box.ForEach(func(i grid.IntVector) {
			var div float64
			for axis := 0; axis < dim; axis++ {
				copy(up, i)
				up[axis]++
				div += (u.At(axis, up) - u.At(axis, i)) / p.Dx[axis]
			}
			v := alpha * div
			if f != nil {
				v += beta * f.At(i)
			}
			d.Set(i, v)
		})
		return nil
	})
}

// Grad sets dst = alpha*grad(src) + beta*src2 on every face of the patch
// interiors. src needs one ghost layer, filled by fill at fillTime when fill
// is non-nil. src2 may be grid.InvalidField. With cfBdrySynch set the result
// is synchronised on faces shared between patches.
func (m *HierarchyMathOps) Grad(dst grid.FieldIndex, cfBdrySynch bool, alpha float64,
	src grid.FieldIndex, fill Filler, fillTime float64, beta float64, src2 grid.FieldIndex) error {
	if err := m.check(dst, grid.Side, 0); err != nil {
		return err
	}
	if err := m.check(src, grid.Cell, 1); err != nil {
		return err
	}
	if src2 != grid.InvalidField {
		if err := m.check(src2, grid.Side, 0); err != nil {
			return err
		}
	}
	if fill != nil {
		if err := fill.FillData(fillTime); err != nil {
			return err
		}
	}
	err := m.sweep(func(_ *grid.Level, p *grid.Patch) error {
		var (
			phi = p.CellData(src)
			g   = p.SideData(dst)
			s2  *grid.SideData
		)
		if src2 != grid.InvalidField {
			s2 = p.SideData(src2)
		}
		lo := make(grid.IntVector, p.Dim())
		for axis := 0; axis < p.Dim(); axis++ {
			axis := axis
			h := p.Dx[axis]
			p.Box.SideBox(axis).ForEach(func(i grid.IntVector) {
				copy(lo, i)
				lo[axis]--
				v := alpha * (phi.At(i) - phi.At(lo)) / h
				if s2 != nil {
					v += beta * s2.At(axis, i)
				}
				g.Set(axis, i, v)
			})
		}
		return nil
	})
	if err != nil || !cfBdrySynch {
		return err
	}
	return m.SynchSides(dst)
}

func (m *HierarchyMathOps) check(idx grid.FieldIndex, kind grid.Kind, ghost int) error {
	spec, err := m.hierarchy.Registry().Spec(idx)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", utils.ErrConfiguration, m.Name, err)
	}
	if spec.Kind != kind || spec.Ghost < ghost {
		return fmt.Errorf("%w: %s: field %s is %s with %d ghosts, need %s with at least %d",
			utils.ErrConfiguration, m.Name, spec.Name, spec.Kind, spec.Ghost, kind, ghost)
	}
	for ln := m.coarsest; ln <= m.finest; ln++ {
		if !m.hierarchy.Level(ln).CheckAllocated(idx) {
			return fmt.Errorf("%w: %s: field %s not allocated on level %d",
				utils.ErrConfiguration, m.Name, spec.Name, ln)
		}
	}
	return nil
}

// sweep runs fn on every patch in range, one goroutine per worker and one
// level at a time.
func (m *HierarchyMathOps) sweep(fn func(lvl *grid.Level, p *grid.Patch) error) error {
	return sweepLevels(m.hierarchy, m.coarsest, m.finest, fn)
}

func sweepLevels(h *grid.Hierarchy, coarsest, finest int, fn func(lvl *grid.Level, p *grid.Patch) error) error {
	for ln := coarsest; ln <= finest; ln++ {
		lvl := h.Level(ln)
		var eg errgroup.Group
		for w := 0; w < lvl.NumWorkers(); w++ {
			w := w
			eg.Go(func() error {
				for _, p := range lvl.LocalPatches(w) {
					if err := fn(lvl, p); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return nil
}
