package grid

import (
	"testing"

	"github.com/notargets/StokesPC/partitions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxForEachOrder(t *testing.T) {
	b := NewBox(IntVector{0, 10}, IntVector{2, 11})
	var visited []IntVector
	b.ForEach(func(i IntVector) { visited = append(visited, i.Copy()) })
	require.Len(t, visited, b.NumCells())
	assert.Equal(t, IntVector{0, 10}, visited[0])
	assert.Equal(t, IntVector{1, 10}, visited[1])
	assert.Equal(t, IntVector{0, 11}, visited[3])
	assert.Equal(t, IntVector{2, 11}, visited[5])

	a := NewArrayData(b)
	for n, i := range visited {
		assert.Equal(t, n, a.Offset(i))
	}
}

func TestBoxArithmetic(t *testing.T) {
	b := NewBox(IntVector{0, 0}, IntVector{3, 1})
	assert.Equal(t, 8, b.NumCells())
	assert.Equal(t, NewBox(IntVector{0, 0}, IntVector{4, 1}), b.SideBox(0))
	assert.Equal(t, NewBox(IntVector{0, 0}, IntVector{7, 3}), b.Refine(2))
	assert.Equal(t, b, b.Refine(2).Coarsen(2))
	assert.Equal(t, NewBox(IntVector{-1, -1}, IntVector{-1, 0}),
		NewBox(IntVector{-2, -1}, IntVector{-1, 1}).Coarsen(2))
	assert.True(t, b.Intersect(b.Shift(0, 4)).Empty())
	assert.Equal(t, 0, Box{}.NumCells())
	assert.Equal(t, "[0:3,0:1]", b.String())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	u, err := r.Register("u", Side, 1)
	require.NoError(t, err)
	p, err := r.Register("p", Cell, 1)
	require.NoError(t, err)
	assert.NotEqual(t, u, p)

	again, err := r.Register("u", Side, 1)
	require.NoError(t, err)
	assert.Equal(t, u, again)

	_, err = r.Register("u", Cell, 1)
	assert.Error(t, err)

	idx, ok := r.Lookup("p")
	assert.True(t, ok)
	assert.Equal(t, p, idx)
	_, err = r.Spec(InvalidField)
	assert.Error(t, err)
}

func TestUniformHierarchyBoundaryBoxes(t *testing.T) {
	r := NewRegistry()
	h, err := NewUniformHierarchy(r, []float64{0, 0}, []float64{1, 2},
		IntVector{8, 8}, IntVector{4, 8}, 2, partitions.BlockPartition)
	require.NoError(t, err)
	require.Equal(t, 1, h.NumLevels())

	lvl := h.Level(0)
	require.Equal(t, 2, lvl.NumPatches())
	assert.True(t, lvl.CoversDomain())
	assert.InDelta(t, 0.125, lvl.Dx[0], 1e-15)
	assert.InDelta(t, 0.25, lvl.Dx[1], 1e-15)
	assert.Len(t, lvl.LocalPatches(0), 1)
	assert.Len(t, lvl.LocalPatches(1), 1)

	boxes := h.PhysicalCodim1Boxes(0)
	require.Len(t, boxes, 2)
	// Each patch touches the x boundary on one side and both y boundaries
	locs := func(bb []BoundaryBox) []int {
		var l []int
		for _, b := range bb {
			l = append(l, b.LocationIndex)
		}
		return l
	}
	assert.Equal(t, []int{0, 2, 3}, locs(boxes[0]))
	assert.Equal(t, []int{1, 2, 3}, locs(boxes[1]))

	upperX := boxes[1][0]
	assert.Equal(t, 0, upperX.NormalAxis())
	assert.False(t, upperX.IsLower())
	assert.Equal(t, NewBox(IntVector{8, 0}, IntVector{8, 7}), upperX.Box)
	assert.Equal(t, IntVector{7, 3}, upperX.InteriorCell(IntVector{8, 3}))
	assert.Equal(t, IntVector{8, 3}, upperX.GhostCell(IntVector{8, 3}))

	lowerY := boxes[0][1]
	assert.Equal(t, NewBox(IntVector{0, 0}, IntVector{3, 0}), lowerY.Box)
	assert.Equal(t, IntVector{2, -1}, lowerY.GhostCell(IntVector{2, 0}))

	p := lvl.Patch(1)
	assert.InDelta(t, 0.5625, p.CellCenter(IntVector{4, 0}, 0), 1e-15)
	assert.Equal(t, []float64{1, 0.125}, p.FaceCenter(IntVector{8, 0}, 0))
}

func TestAddLevelValidation(t *testing.T) {
	r := NewRegistry()
	h, err := NewHierarchy(r, []float64{0, 0}, []float64{1, 1}, 1, partitions.BlockPartition)
	require.NoError(t, err)
	coarse := NewBox(IntVector{0, 0}, IntVector{3, 3})

	_, err = h.AddLevel(coarse, 1, []Box{
		NewBox(IntVector{0, 0}, IntVector{2, 3}),
		NewBox(IntVector{2, 0}, IntVector{3, 3}),
	})
	assert.Error(t, err, "overlapping patches")

	_, err = h.AddLevel(coarse, 1, []Box{NewBox(IntVector{0, 0}, IntVector{1, 3})})
	require.NoError(t, err)

	_, err = h.AddLevel(coarse.Refine(2), 2, []Box{NewBox(IntVector{4, 0}, IntVector{5, 1})})
	assert.Error(t, err, "fine patch outside coarse patches")

	fine, err := h.AddLevel(coarse.Refine(2), 2, []Box{NewBox(IntVector{0, 0}, IntVector{3, 3})})
	require.NoError(t, err)
	assert.False(t, fine.CoversDomain())
	assert.Equal(t, 1, h.FinestLevelNumber())
	// Only the lower x and lower y faces lie on the boundary
	assert.Len(t, h.PhysicalCodim1Boxes(1)[0], 2)
}

func TestLevelAllocation(t *testing.T) {
	r := NewRegistry()
	h, err := NewUniformHierarchy(r, []float64{0, 0}, []float64{1, 1},
		IntVector{4, 4}, IntVector{2, 2}, 1, partitions.BlockPartition)
	require.NoError(t, err)
	u, _ := r.Register("u", Side, 1)
	p, _ := r.Register("p", Cell, 1)
	lvl := h.Level(0)

	require.NoError(t, lvl.AllocatePatchData(u))
	require.NoError(t, lvl.AllocatePatchData(p))
	assert.True(t, lvl.CheckAllocated(u))
	for _, patch := range lvl.Patches {
		sd := patch.SideData(u)
		require.NotNil(t, sd)
		assert.Nil(t, patch.CellData(u))
		assert.Equal(t, 3*2, sd.InteriorSideBox(0).NumCells())
		assert.Equal(t, NewBox(IntVector{-1, -1}, IntVector{3, 2}).Shift(0, patch.Box.Lo[0]).Shift(1, patch.Box.Lo[1]),
			sd.Arrays[0].Box)
		assert.Equal(t, patch.Box.Grow(1), patch.CellData(p).GhostBox())
	}
	lvl.DeallocatePatchData(p)
	lvl.DeallocatePatchData(p)
	assert.False(t, lvl.CheckAllocated(p))
	assert.Nil(t, lvl.Patch(0).CellData(p))

	v := NewVector("x", h, 0, 0).AddComponent(u).AddComponent(p)
	assert.Error(t, v.Validate())
	require.NoError(t, lvl.AllocatePatchData(p))
	assert.NoError(t, v.Validate())
	assert.Equal(t, 2, v.NumComponents())
}

func TestConnector(t *testing.T) {
	r := NewRegistry()
	h, err := NewUniformHierarchy(r, []float64{0, 0}, []float64{1, 1},
		IntVector{4, 4}, IntVector{2, 2}, 1, partitions.BlockPartition)
	require.NoError(t, err)
	lvl := h.Level(0)
	c := NewConnector(lvl, 1)

	// Patch 0 is the lower left tile, its ghost layer sees the interior of
	// its right and upper neighbours and one corner cell of the diagonal one.
	assert.Len(t, c.CellTransfers[0], 3)
	assert.Len(t, c.SideTransfers[0][0], 0)
	assert.Len(t, c.SideTransfers[0][1], 1)
	assert.Len(t, c.SideTransfers[1][2], 1)

	p, _ := r.Register("phi", Cell, 1)
	require.NoError(t, lvl.AllocatePatchData(p))
	for _, patch := range lvl.Patches {
		patch.CellData(p).Fill(float64(patch.ID + 1))
	}
	c.FillCellGhosts(lvl, p, 0)
	cd := lvl.Patch(0).CellData(p)
	assert.Equal(t, 2.0, cd.At(IntVector{2, 0}))
	assert.Equal(t, 3.0, cd.At(IntVector{0, 2}))
	assert.Equal(t, 4.0, cd.At(IntVector{2, 2}))
	assert.Equal(t, 1.0, cd.At(IntVector{-1, 0}))

	u, _ := r.Register("u", Side, 0)
	require.NoError(t, lvl.AllocatePatchData(u))
	for _, patch := range lvl.Patches {
		patch.SideData(u).Fill(float64(patch.ID + 1))
	}
	c.SynchSides(lvl, u, 1)
	assert.Equal(t, 1.0, lvl.Patch(1).SideData(u).At(0, IntVector{2, 1}))
	assert.Equal(t, 2.0, lvl.Patch(1).SideData(u).At(0, IntVector{3, 1}))
}
