package ops

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/utils"
)

// CellDataOps is vector arithmetic on cell centred fields over a range of
// levels. The elementwise operations act on the whole patch arrays, ghost
// cells included. Reductions use interior cells not covered by a finer
// level in range.
type CellDataOps struct {
	hierarchy *grid.Hierarchy
	coarsest  int
	finest    int
}

func NewCellDataOps(h *grid.Hierarchy, coarsest, finest int) *CellDataOps {
	if h == nil || coarsest < 0 || finest < coarsest || finest > h.FinestLevelNumber() {
		panic(fmt.Errorf("cell data ops: bad level range [%d, %d]", coarsest, finest))
	}
	return &CellDataOps{hierarchy: h, coarsest: coarsest, finest: finest}
}

// SetToScalar sets every entry of idx to v
func (o *CellDataOps) SetToScalar(idx grid.FieldIndex, v float64) error {
	return o.each(func(p *grid.Patch) error {
		c, err := o.cell(p, idx)
		if err != nil {
			return err
		}
		c.Fill(v)
		return nil
	})
}

// Copy sets dst = src
func (o *CellDataOps) Copy(dst, src grid.FieldIndex) error {
	return o.Scale(dst, 1, src)
}

// Scale sets dst = alpha*src
func (o *CellDataOps) Scale(dst grid.FieldIndex, alpha float64, src grid.FieldIndex) error {
	return o.each(func(p *grid.Patch) error {
		d, s, err := o.pair(p, dst, src)
		if err != nil {
			return err
		}
		floats.ScaleTo(d, alpha, s)
		return nil
	})
}

// AddScalar adds v to every entry of idx
func (o *CellDataOps) AddScalar(idx grid.FieldIndex, v float64) error {
	return o.each(func(p *grid.Patch) error {
		c, err := o.cell(p, idx)
		if err != nil {
			return err
		}
		floats.AddConst(v, c.Array.Data)
		return nil
	})
}

// LinearSum sets dst = alpha*src1 + beta*src2, dst may alias either source
func (o *CellDataOps) LinearSum(dst grid.FieldIndex, alpha float64, src1 grid.FieldIndex,
	beta float64, src2 grid.FieldIndex) error {
	return o.each(func(p *grid.Patch) error {
		d, s1, err := o.pair(p, dst, src1)
		if err != nil {
			return err
		}
		_, s2, err := o.pair(p, dst, src2)
		if err != nil {
			return err
		}
		if dst == src2 {
			floats.Scale(beta, d)
			floats.AddScaled(d, alpha, s1)
			return nil
		}
		floats.ScaleTo(d, alpha, s1)
		floats.AddScaled(d, beta, s2)
		return nil
	})
}

// Integral returns the volume weighted sum of idx over the composite grid
func (o *CellDataOps) Integral(idx grid.FieldIndex) (float64, error) {
	var sum float64
	err := o.composite(idx, func(c *grid.CellData, i grid.IntVector, vol float64) {
		sum += vol * c.At(i)
	})
	return sum, err
}

// Volume returns the volume of the composite grid
func (o *CellDataOps) Volume() float64 {
	v := 1.0
	for d := range o.hierarchy.XLo {
		v *= o.hierarchy.XHi[d] - o.hierarchy.XLo[d]
	}
	return v
}

// Mean returns the volume weighted average of idx
func (o *CellDataOps) Mean(idx grid.FieldIndex) (float64, error) {
	s, err := o.Integral(idx)
	if err != nil {
		return 0, err
	}
	return s / o.Volume(), nil
}

// MaxNorm returns max |idx| over the composite grid
func (o *CellDataOps) MaxNorm(idx grid.FieldIndex) (float64, error) {
	var m float64
	err := o.composite(idx, func(c *grid.CellData, i grid.IntVector, _ float64) {
		m = math.Max(m, math.Abs(c.At(i)))
	})
	return m, err
}

// composite visits the interior cells of idx not covered by the next finer
// level in range.
func (o *CellDataOps) composite(idx grid.FieldIndex, fn func(c *grid.CellData, i grid.IntVector, vol float64)) error {
	for ln := o.coarsest; ln <= o.finest; ln++ {
		var (
			lvl   = o.hierarchy.Level(ln)
			finer *grid.Level
			vol   = 1.0
		)
		if ln < o.finest {
			finer = o.hierarchy.Level(ln + 1)
		}
		for _, dx := range lvl.Dx {
			vol *= dx
		}
		for _, p := range lvl.Patches {
			c, err := o.cell(p, idx)
			if err != nil {
				return err
			}
			p.Box.ForEach(func(i grid.IntVector) {
				if finer != nil && coveredByFiner(finer, i) {
					return
				}
				fn(c, i, vol)
			})
		}
	}
	return nil
}

func coveredByFiner(finer *grid.Level, i grid.IntVector) bool {
	fine := grid.NewBox(i, i).Refine(finer.RatioToCoarser)
	for _, p := range finer.Patches {
		if p.Box.ContainsBox(fine) {
			return true
		}
	}
	return false
}

func (o *CellDataOps) each(fn func(p *grid.Patch) error) error {
	for ln := o.coarsest; ln <= o.finest; ln++ {
		for _, p := range o.hierarchy.Level(ln).Patches {
			if err := fn(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *CellDataOps) cell(p *grid.Patch, idx grid.FieldIndex) (*grid.CellData, error) {
	c := p.CellData(idx)
	if c == nil {
		return nil, fmt.Errorf("%w: cell field %d missing on level %d patch %d",
			utils.ErrConfiguration, idx, p.LevelNumber, p.ID)
	}
	return c, nil
}

func (o *CellDataOps) pair(p *grid.Patch, dst, src grid.FieldIndex) ([]float64, []float64, error) {
	d, err := o.cell(p, dst)
	if err != nil {
		return nil, nil, err
	}
	s, err := o.cell(p, src)
	if err != nil {
		return nil, nil, err
	}
	if !d.GhostBox().Equal(s.GhostBox()) {
		return nil, nil, fmt.Errorf("%w: fields %d and %d have different ghost widths",
			utils.ErrConfiguration, dst, src)
	}
	return d.Array.Data, s.Array.Data, nil
}

// SideDataOps is the side centred counterpart of CellDataOps
type SideDataOps struct {
	hierarchy *grid.Hierarchy
	coarsest  int
	finest    int
}

func NewSideDataOps(h *grid.Hierarchy, coarsest, finest int) *SideDataOps {
	if h == nil || coarsest < 0 || finest < coarsest || finest > h.FinestLevelNumber() {
		panic(fmt.Errorf("side data ops: bad level range [%d, %d]", coarsest, finest))
	}
	return &SideDataOps{hierarchy: h, coarsest: coarsest, finest: finest}
}

func (o *SideDataOps) SetToScalar(idx grid.FieldIndex, v float64) error {
	return o.each(idx, func(a *grid.ArrayData) { a.Fill(v) })
}

// Copy copies the interior faces of src into dst
func (o *SideDataOps) Copy(dst, src grid.FieldIndex) error {
	for ln := o.coarsest; ln <= o.finest; ln++ {
		for _, p := range o.hierarchy.Level(ln).Patches {
			d, s := p.SideData(dst), p.SideData(src)
			if d == nil || s == nil {
				return fmt.Errorf("%w: side fields %d, %d missing on level %d patch %d",
					utils.ErrConfiguration, dst, src, ln, p.ID)
			}
			for axis := range d.Arrays {
				d.Arrays[axis].CopyBox(s.Arrays[axis], d.InteriorSideBox(axis))
			}
		}
	}
	return nil
}

// MaxNorm returns max |idx| over the interior faces of the finest level in
// range.
func (o *SideDataOps) MaxNorm(idx grid.FieldIndex) (float64, error) {
	var m float64
	for _, p := range o.hierarchy.Level(o.finest).Patches {
		s := p.SideData(idx)
		if s == nil {
			return 0, fmt.Errorf("%w: side field %d missing on level %d patch %d",
				utils.ErrConfiguration, idx, o.finest, p.ID)
		}
		for axis, a := range s.Arrays {
			m = math.Max(m, a.MaxAbs(s.InteriorSideBox(axis)))
		}
	}
	return m, nil
}

func (o *SideDataOps) each(idx grid.FieldIndex, fn func(a *grid.ArrayData)) error {
	for ln := o.coarsest; ln <= o.finest; ln++ {
		for _, p := range o.hierarchy.Level(ln).Patches {
			s := p.SideData(idx)
			if s == nil {
				return fmt.Errorf("%w: side field %d missing on level %d patch %d",
					utils.ErrConfiguration, idx, ln, p.ID)
			}
			for _, a := range s.Arrays {
				fn(a)
			}
		}
	}
	return nil
}
