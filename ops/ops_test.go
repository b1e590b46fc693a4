package ops

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/StokesPC/bc"
	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/partitions"
	"github.com/notargets/StokesPC/utils"
)

const tol = 1.e-12

type fixture struct {
	h        *grid.Hierarchy
	phi, u   grid.FieldIndex
	div, tmp grid.FieldIndex
}

// newFixture is a 4x4 unit square in two 2x4 patches on two workers
func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := grid.NewRegistry()
	h, err := grid.NewUniformHierarchy(r, []float64{0, 0}, []float64{1, 1},
		grid.IntVector{4, 4}, grid.IntVector{2, 4}, 2, partitions.BlockPartition)
	require.NoError(t, err)
	f := &fixture{h: h}
	f.phi, err = r.Register("phi", grid.Cell, 1)
	require.NoError(t, err)
	f.u, err = r.Register("u", grid.Side, 0)
	require.NoError(t, err)
	f.div, err = r.Register("div", grid.Cell, 1)
	require.NoError(t, err)
	f.tmp, err = r.Register("tmp", grid.Cell, 1)
	require.NoError(t, err)
	for _, idx := range []grid.FieldIndex{f.phi, f.u, f.div, f.tmp} {
		require.NoError(t, h.Level(0).AllocatePatchData(idx))
	}
	return f
}

// setCells fills the interior of idx from fn of the cell centre
func (f *fixture) setCells(idx grid.FieldIndex, fn func(x, y float64) float64) {
	for _, p := range f.h.Level(0).Patches {
		p := p
		c := p.CellData(idx)
		p.Box.ForEach(func(i grid.IntVector) {
			c.Set(i, fn(p.CellCenter(i, 0), p.CellCenter(i, 1)))
		})
	}
}

func TestGhostFillInterPatchAndPhysical(t *testing.T) {
	f := newFixture(t)
	f.setCells(f.phi, func(x, y float64) float64 { return x + 10*y })

	coefs := bc.NewLocationIndexCoefs("phi", 2)
	coefs.SetBoundaryValue(0, 5)   // x_lo
	coefs.SetBoundarySlope(1, 0)   // x_hi
	coefs.SetBoundaryValue(2, 0)   // y_lo
	coefs.SetBoundarySlope(3, 0.5) // y_hi
	fill, err := NewGhostFill(f.h, f.phi, coefs, 0, 0)
	require.NoError(t, err)
	require.NoError(t, fill.FillData(0))

	var (
		lvl = f.h.Level(0)
		p0  = lvl.Patch(0).CellData(f.phi)
		p1  = lvl.Patch(1).CellData(f.phi)
		h   = 0.25
	)
	for j := 0; j < 4; j++ {
		// Neighbour copies across x = 0.5
		assert.Equal(t, p1.At(grid.IntVector{2, j}), p0.At(grid.IntVector{2, j}))
		assert.Equal(t, p0.At(grid.IntVector{1, j}), p1.At(grid.IntVector{1, j}))
		// Dirichlet 5 on x_lo
		in := p0.At(grid.IntVector{0, j})
		assert.InDelta(t, 5, 0.5*(in+p0.At(grid.IntVector{-1, j})), tol)
		// Neumann 0 on x_hi
		assert.InDelta(t, p1.At(grid.IntVector{3, j}), p1.At(grid.IntVector{4, j}), tol)
	}
	for i := 0; i < 2; i++ {
		in := p0.At(grid.IntVector{i, 0})
		assert.InDelta(t, 0, 0.5*(in+p0.At(grid.IntVector{i, -1})), tol)
		in = p0.At(grid.IntVector{i, 3})
		assert.InDelta(t, 0.5, (p0.At(grid.IntVector{i, 4})-in)/h, tol)
	}
	// Corners stay untouched
	assert.Equal(t, 0.0, p0.At(grid.IntVector{-1, -1}))
}

func TestGhostFillHomogeneous(t *testing.T) {
	f := newFixture(t)
	f.setCells(f.phi, func(x, y float64) float64 { return 1 })

	coefs := bc.NewLocationIndexCoefs("phi", 2)
	for loc := 0; loc < 4; loc++ {
		coefs.SetBoundaryValue(loc, 3)
	}
	fill, err := NewGhostFill(f.h, f.phi, coefs, 0, 0)
	require.NoError(t, err)
	fill.SetHomogeneousBc(true)
	assert.True(t, fill.HomogeneousBc())
	require.NoError(t, fill.FillData(0))
	p0 := f.h.Level(0).Patch(0).CellData(f.phi)
	assert.InDelta(t, -1, p0.At(grid.IntVector{-1, 2}), tol)
	assert.InDelta(t, -1, p0.At(grid.IntVector{1, 4}), tol)

	// A nil strategy is homogeneous Neumann
	fill, err = NewGhostFill(f.h, f.phi, nil, 0, 0)
	require.NoError(t, err)
	require.NoError(t, fill.FillData(0))
	assert.InDelta(t, 1, p0.At(grid.IntVector{-1, 2}), tol)
}

func TestGhostFillErrors(t *testing.T) {
	f := newFixture(t)
	_, err := NewGhostFill(f.h, f.u, nil, 0, 0)
	assert.ErrorIs(t, err, utils.ErrConfiguration)
	_, err = NewGhostFill(f.h, f.phi, nil, 0, 3)
	assert.ErrorIs(t, err, utils.ErrConfiguration)

	coefs := bc.NewLocationIndexCoefs("phi", 2)
	coefs.SetRawCoefs(0, 1, -0.125, 0) // alpha/2 + beta/h == 0
	fill, err := NewGhostFill(f.h, f.phi, coefs, 0, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, fill.FillData(0), utils.ErrInvariantViolation)
}

func TestRobinGhostFactor(t *testing.T) {
	tests := []struct {
		name               string
		alpha, beta, gamma float64
		r, c               float64
	}{
		{"dirichlet", 1, 0, 2, -1, 4},
		{"neumann", 0, 1, 2, 1, 0.5},
		{"robin", 0.5, 0.5, 0, -(0.25 - 2) / (0.25 + 2), 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			r, c, err := RobinGhostFactor(tt.alpha, tt.beta, tt.gamma, 0.25)
			require.NoError(t, err)
			assert.InDelta(t, tt.r, r, tol)
			assert.InDelta(t, tt.c, c, tol)
		})
	}
}

func TestGradOfLinearField(t *testing.T) {
	f := newFixture(t)
	f.setCells(f.phi, func(x, y float64) float64 { return 3 * x })
	coefs := bc.NewLocationIndexCoefs("phi", 2)
	coefs.SetBoundaryValue(0, 0)
	coefs.SetBoundaryValue(1, 3)
	coefs.SetBoundarySlope(2, 0)
	coefs.SetBoundarySlope(3, 0)
	fill, err := NewGhostFill(f.h, f.phi, coefs, 0, 0)
	require.NoError(t, err)

	m, err := NewHierarchyMathOps("test", f.h, 0, 0)
	require.NoError(t, err)
	require.NoError(t, m.Grad(f.u, true, 1, f.phi, fill, 0, 0, grid.InvalidField))
	for _, p := range f.h.Level(0).Patches {
		g := p.SideData(f.u)
		p.Box.SideBox(0).ForEach(func(i grid.IntVector) {
			assert.InDelta(t, 3, g.At(0, i), tol, "x face %v", i)
		})
		p.Box.SideBox(1).ForEach(func(i grid.IntVector) {
			assert.InDelta(t, 0, g.At(1, i), tol, "y face %v", i)
		})
	}

	// grad phi - grad phi = 0
	require.NoError(t, m.Grad(f.u, false, -1, f.phi, nil, 0, 1, f.u))
	mx, err := NewSideDataOps(f.h, 0, 0).MaxNorm(f.u)
	require.NoError(t, err)
	assert.InDelta(t, 0, mx, tol)
}

func TestDivOfLinearVelocity(t *testing.T) {
	f := newFixture(t)
	for _, p := range f.h.Level(0).Patches {
		p := p
		s := p.SideData(f.u)
		p.Box.SideBox(0).ForEach(func(i grid.IntVector) {
			s.Set(0, i, p.FaceCenter(i, 0)[0])
		})
		p.Box.SideBox(1).ForEach(func(i grid.IntVector) {
			s.Set(1, i, -2*p.FaceCenter(i, 1)[1])
		})
	}
	f.setCells(f.tmp, func(x, y float64) float64 { return 4 })

	m, err := NewHierarchyMathOps("test", f.h, 0, 0)
	require.NoError(t, err)
	// -div(u) - tmp = -(1 - 2) - 4
	require.NoError(t, m.Div(f.div, -1, f.u, true, -1, f.tmp))
	for _, p := range f.h.Level(0).Patches {
		c := p.CellData(f.div)
		p.Box.ForEach(func(i grid.IntVector) {
			assert.InDelta(t, -3, c.At(i), tol)
		})
	}

	assert.ErrorIs(t, m.Div(f.u, 1, f.u, false, 0, grid.InvalidField), utils.ErrConfiguration)
	assert.ErrorIs(t, m.Grad(f.phi, false, 1, f.div, nil, 0, 0, grid.InvalidField), utils.ErrConfiguration)
}

func TestSynchSides(t *testing.T) {
	f := newFixture(t)
	lvl := f.h.Level(0)
	lvl.Patch(0).SideData(f.u).Fill(1)
	lvl.Patch(1).SideData(f.u).Fill(2)

	m, err := NewHierarchyMathOps("test", f.h, 0, 0)
	require.NoError(t, err)
	require.NoError(t, m.SynchSides(f.u))
	s1 := lvl.Patch(1).SideData(f.u)
	for j := 0; j < 4; j++ {
		assert.Equal(t, 1.0, s1.At(0, grid.IntVector{2, j}))
		assert.Equal(t, 2.0, s1.At(0, grid.IntVector{3, j}))
	}
}

func TestCellDataOps(t *testing.T) {
	f := newFixture(t)
	o := NewCellDataOps(f.h, 0, 0)
	f.setCells(f.phi, func(x, y float64) float64 { return x })
	require.NoError(t, o.SetToScalar(f.tmp, 2))

	snapshot := func(idx grid.FieldIndex) [][]float64 {
		var out [][]float64
		for _, p := range f.h.Level(0).Patches {
			out = append(out, append([]float64(nil), p.CellData(idx).Array.Data...))
		}
		return out
	}
	before := snapshot(f.phi)

	// Aliasing the second source
	require.NoError(t, o.LinearSum(f.tmp, 2, f.phi, 0.5, f.tmp))
	require.NoError(t, o.LinearSum(f.div, 1, f.tmp, -2, f.phi))
	mx, err := o.MaxNorm(f.div)
	require.NoError(t, err)
	assert.InDelta(t, 1, mx, tol)
	assert.Empty(t, cmp.Diff(before, snapshot(f.phi)))

	mean, err := o.Mean(f.phi)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mean, tol)

	require.NoError(t, o.Scale(f.div, -1, f.phi))
	require.NoError(t, o.Copy(f.tmp, f.div))
	want := snapshot(f.phi)
	for _, d := range want {
		for i := range d {
			d[i] = -d[i]
		}
	}
	assert.Empty(t, cmp.Diff(want, snapshot(f.tmp), cmpopts.EquateApprox(0, tol)))
}

func TestCompositeMean(t *testing.T) {
	r := grid.NewRegistry()
	h, err := grid.NewUniformHierarchy(r, []float64{0, 0}, []float64{1, 1},
		grid.IntVector{4, 4}, grid.IntVector{4, 4}, 1, partitions.BlockPartition)
	require.NoError(t, err)
	fine := grid.NewBox(grid.IntVector{0, 0}, grid.IntVector{3, 3})
	_, err = h.AddLevel(h.Level(0).Domain.Refine(2), 2, []grid.Box{fine})
	require.NoError(t, err)
	idx, err := r.Register("q", grid.Cell, 0)
	require.NoError(t, err)
	for ln := 0; ln < 2; ln++ {
		require.NoError(t, h.Level(ln).AllocatePatchData(idx))
		for _, p := range h.Level(ln).Patches {
			p.CellData(idx).Fill(float64(1 + 2*ln))
		}
	}
	o := NewCellDataOps(h, 0, 1)
	mean, err := o.Mean(idx)
	require.NoError(t, err)
	assert.InDelta(t, 0.75*1+0.25*3, mean, tol)

	c := &ConstantNullspace{}
	p := grid.NewVector("p", h, 0, 1).AddComponent(idx)
	require.NoError(t, c.CorrectNullspace(nil, p))
	mean, err = o.Mean(idx)
	require.NoError(t, err)
	assert.InDelta(t, 0, mean, tol)

	c.Disabled = true
	require.NoError(t, o.AddScalar(idx, 1))
	require.NoError(t, c.CorrectNullspace(nil, p))
	mean, _ = o.Mean(idx)
	assert.InDelta(t, 1, mean, tol)

	err = (&ConstantNullspace{}).CorrectNullspace(nil, grid.NewVector("empty", h, 0, 1))
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}
