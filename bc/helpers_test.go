package bc

import (
	"sync"
	"testing"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/partitions"
	"github.com/stretchr/testify/require"
)

const sentinel = 7.0

type testFields struct {
	h    *grid.Hierarchy
	u, p grid.FieldIndex
}

// newTestFields builds a 4x4 unit square in two 2x4 patches owned by two
// workers, with u filled with a sentinel and p = 1 + cell x index.
func newTestFields(t *testing.T) *testFields {
	t.Helper()
	r := grid.NewRegistry()
	h, err := grid.NewUniformHierarchy(r, []float64{0, 0}, []float64{1, 1},
		grid.IntVector{4, 4}, grid.IntVector{2, 4}, 2, partitions.BlockPartition)
	require.NoError(t, err)
	u, err := r.Register("u", grid.Side, 1)
	require.NoError(t, err)
	p, err := r.Register("p", grid.Cell, 1)
	require.NoError(t, err)
	lvl := h.Level(0)
	require.NoError(t, lvl.AllocatePatchData(u))
	require.NoError(t, lvl.AllocatePatchData(p))
	for _, patch := range lvl.Patches {
		patch.SideData(u).Fill(sentinel)
		pd := patch.CellData(p)
		pd.GhostBox().ForEach(func(i grid.IntVector) {
			pd.Set(i, 1+float64(i[0]))
		})
	}
	return &testFields{h: h, u: u, p: p}
}

// normalFaces collects the normal velocity on every boundary face keyed by
// location index.
func (f *testFields) normalFaces() map[int][]float64 {
	out := make(map[int][]float64)
	lvl := f.h.Level(0)
	for id, boxes := range f.h.PhysicalCodim1Boxes(0) {
		sd := lvl.Patch(id).SideData(f.u)
		for _, b := range boxes {
			b := b
			b.Box.ForEach(func(i grid.IntVector) {
				out[b.LocationIndex] = append(out[b.LocationIndex], sd.At(b.NormalAxis(), i))
			})
		}
	}
	return out
}

// interiorFacesUntouched reports whether every face off the boundary still
// holds the sentinel.
func (f *testFields) interiorFacesUntouched() bool {
	ok := true
	lvl := f.h.Level(0)
	for _, patch := range lvl.Patches {
		sd := patch.SideData(f.u)
		for axis := 0; axis < 2; axis++ {
			axis := axis
			patch.Box.SideBox(axis).ForEach(func(i grid.IntVector) {
				if i[axis] == lvl.Domain.Lo[axis] || i[axis] == lvl.Domain.Hi[axis]+1 {
					return
				}
				if sd.At(axis, i) != sentinel {
					ok = false
				}
			})
		}
	}
	return ok
}

func locationCoefs(dim int, set func(l *LocationIndexCoefs)) []Strategy {
	s := make([]Strategy, dim)
	for d := range s {
		l := NewLocationIndexCoefs("u", dim)
		set(l)
		s[d] = l
	}
	return s
}

// spyCoefs records the bindings it sees while evaluating
type spyCoefs struct {
	StokesBase
	ExtendedBase
	inner *LocationIndexCoefs

	mu              sync.Mutex
	calls           int
	seenU, seenP    grid.FieldIndex
	seenHomogeneous bool
}

func newSpyCoefs(inner *LocationIndexCoefs) *spyCoefs {
	return &spyCoefs{
		StokesBase:   NewStokesBase(),
		ExtendedBase: NewExtendedBase(),
		inner:        inner,
		seenU:        grid.InvalidField,
		seenP:        grid.InvalidField,
	}
}

func (s *spyCoefs) SetBcCoefs(coefs *Coefficients, patch *grid.Patch, region grid.BoundaryBox, t float64) error {
	s.mu.Lock()
	s.calls++
	s.seenU, s.seenP, s.seenHomogeneous = s.uTargetIdx, s.pTargetIdx, s.homogeneous
	s.mu.Unlock()
	return s.inner.SetBcCoefs(coefs, patch, region, t)
}
