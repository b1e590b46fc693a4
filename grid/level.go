package grid

import (
	"fmt"

	"github.com/notargets/StokesPC/partitions"
)

// Level is one refinement level: a domain box at the level resolution and
// the disjoint patches covering part of it.
type Level struct {
	Number         int
	Domain         Box
	Dx             []float64
	RatioToCoarser int
	Patches        []*Patch

	registry *Registry
	layout   *partitions.PartitionLayout
	codim1   map[int][]BoundaryBox
	allocs   map[FieldIndex]bool
}

func (l *Level) NumPatches() int { return len(l.Patches) }

func (l *Level) Patch(id int) *Patch { return l.Patches[id] }

// NumWorkers is the number of partitions the level's patches are spread over
func (l *Level) NumWorkers() int { return l.layout.NumPartitions }

// Layout returns the patch to worker assignment
func (l *Level) Layout() *partitions.PartitionLayout { return l.layout }

// LocalPatches returns the patches owned by worker rank
func (l *Level) LocalPatches(rank int) []*Patch {
	if rank < 0 || rank >= l.layout.NumPartitions {
		return nil
	}
	ids := l.layout.Partitions[rank].Patches
	patches := make([]*Patch, len(ids))
	for i, id := range ids {
		patches[i] = l.Patches[id]
	}
	return patches
}

// PhysicalCodim1Boxes returns the cached boundary boxes keyed by patch ID.
// Patches that do not touch the boundary have no entry.
func (l *Level) PhysicalCodim1Boxes() map[int][]BoundaryBox { return l.codim1 }

// CoversDomain reports whether the patches tile the whole level domain
func (l *Level) CoversDomain() bool {
	n := 0
	for _, p := range l.Patches {
		n += p.Box.NumCells()
	}
	return n == l.Domain.NumCells()
}

func (l *Level) CheckAllocated(idx FieldIndex) bool { return l.allocs[idx] }

// AllocatePatchData allocates idx on every patch of the level. It is a
// no-op for patches that already hold the field.
func (l *Level) AllocatePatchData(idx FieldIndex) error {
	spec, err := l.registry.Spec(idx)
	if err != nil {
		return err
	}
	for _, p := range l.Patches {
		if err = p.allocate(idx, spec); err != nil {
			for _, q := range l.Patches {
				q.deallocate(idx)
			}
			return fmt.Errorf("level %d: %w", l.Number, err)
		}
	}
	l.allocs[idx] = true
	return nil
}

func (l *Level) DeallocatePatchData(idx FieldIndex) {
	for _, p := range l.Patches {
		p.deallocate(idx)
	}
	delete(l.allocs, idx)
}
