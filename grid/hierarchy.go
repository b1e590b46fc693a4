package grid

import (
	"fmt"

	"github.com/notargets/StokesPC/partitions"
)

// Hierarchy is an ordered set of nested refinement levels over a
// rectangular physical domain. It owns the patch partitioning and the cache
// of physical boundary boxes, everything else only reads it.
type Hierarchy struct {
	XLo, XHi []float64

	registry *Registry
	levels   []*Level
	workers  int
	strategy partitions.PartitionStrategy
}

// NewHierarchy creates an empty hierarchy. Patches on every level are
// distributed across workers with the given strategy.
func NewHierarchy(registry *Registry, xlo, xhi []float64, workers int,
	strategy partitions.PartitionStrategy) (*Hierarchy, error) {
	if registry == nil {
		return nil, fmt.Errorf("hierarchy requires a field registry")
	}
	if len(xlo) != len(xhi) || len(xlo) < 1 || len(xlo) > 3 {
		return nil, fmt.Errorf("unsupported domain extents %v, %v", xlo, xhi)
	}
	for d := range xlo {
		if xhi[d] <= xlo[d] {
			return nil, fmt.Errorf("domain is empty along axis %d: [%g, %g]", d, xlo[d], xhi[d])
		}
	}
	if workers < 1 {
		workers = 1
	}
	return &Hierarchy{
		XLo:      append([]float64(nil), xlo...),
		XHi:      append([]float64(nil), xhi...),
		registry: registry,
		workers:  workers,
		strategy: strategy,
	}, nil
}

func (h *Hierarchy) Dim() int { return len(h.XLo) }

func (h *Hierarchy) Registry() *Registry { return h.registry }

func (h *Hierarchy) Workers() int { return h.workers }

func (h *Hierarchy) NumLevels() int { return len(h.levels) }

func (h *Hierarchy) FinestLevelNumber() int { return len(h.levels) - 1 }

func (h *Hierarchy) Level(ln int) *Level { return h.levels[ln] }

// PhysicalCodim1Boxes returns the cached boundary boxes of level ln
func (h *Hierarchy) PhysicalCodim1Boxes(ln int) map[int][]BoundaryBox {
	return h.levels[ln].codim1
}

// AddLevel appends a level. The coarsest level takes its index domain from
// domain, finer levels must pass the coarser domain refined by ratio, and
// every patch must lie inside the patches of the next coarser level.
func (h *Hierarchy) AddLevel(domain Box, ratio int, patchBoxes []Box) (*Level, error) {
	var (
		ln  = len(h.levels)
		dim = h.Dim()
	)
	if domain.Dim() != dim || domain.Empty() {
		return nil, fmt.Errorf("level %d: bad domain box %v", ln, domain)
	}
	if ln == 0 {
		ratio = 1
	} else {
		if ratio < 2 {
			return nil, fmt.Errorf("level %d: refinement ratio %d < 2", ln, ratio)
		}
		coarser := h.levels[ln-1]
		if !coarser.Domain.Refine(ratio).Equal(domain) {
			return nil, fmt.Errorf("level %d: domain %v is not %v refined by %d",
				ln, domain, coarser.Domain, ratio)
		}
	}
	if len(patchBoxes) == 0 {
		return nil, fmt.Errorf("level %d: no patches", ln)
	}

	dx := make([]float64, dim)
	for d := range dx {
		dx[d] = (h.XHi[d] - h.XLo[d]) / float64(domain.Extent(d))
	}

	lvl := &Level{
		Number:         ln,
		Domain:         NewBox(domain.Lo, domain.Hi),
		Dx:             dx,
		RatioToCoarser: ratio,
		registry:       h.registry,
		codim1:         make(map[int][]BoundaryBox),
		allocs:         make(map[FieldIndex]bool),
	}
	costs := make([]int, len(patchBoxes))
	for id, pb := range patchBoxes {
		if pb.Dim() != dim || pb.Empty() || !domain.ContainsBox(pb) {
			return nil, fmt.Errorf("level %d: patch %v outside domain %v", ln, pb, domain)
		}
		for _, q := range lvl.Patches {
			if !pb.Intersect(q.Box).Empty() {
				return nil, fmt.Errorf("level %d: patch %v overlaps %v", ln, pb, q.Box)
			}
		}
		if ln > 0 && !h.levels[ln-1].covers(pb.Coarsen(ratio)) {
			return nil, fmt.Errorf("level %d: patch %v is not nested in level %d", ln, pb, ln-1)
		}
		xlo := make([]float64, dim)
		for d := range xlo {
			xlo[d] = h.XLo[d] + float64(pb.Lo[d]-domain.Lo[d])*dx[d]
		}
		p := newPatch(id, ln, pb, dx, xlo)
		if boxes := codim1Boxes(pb, domain); len(boxes) > 0 {
			p.TouchesRegularBoundary = true
			lvl.codim1[id] = boxes
		}
		lvl.Patches = append(lvl.Patches, p)
		costs[id] = pb.NumCells()
	}

	pb := &partitions.PartitionBuilder{
		Costs:         costs,
		NumPartitions: h.workers,
		Strategy:      h.strategy,
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, fmt.Errorf("level %d: %w", ln, err)
	}
	for id, w := range layout.PToW {
		lvl.Patches[id].Owner = w
	}
	lvl.layout = layout

	h.levels = append(h.levels, lvl)
	return lvl, nil
}

// covers reports whether the union of the level's patches contains b
func (l *Level) covers(b Box) bool {
	n := 0
	for _, p := range l.Patches {
		n += p.Box.Intersect(b).NumCells()
	}
	return n == b.NumCells()
}

// TileBox splits domain into patches of at most tile cells per axis
func TileBox(domain Box, tile IntVector) []Box {
	var (
		dim    = domain.Dim()
		counts = make(IntVector, dim)
	)
	for d := 0; d < dim; d++ {
		t := tile[d]
		if t < 1 {
			t = domain.Extent(d)
		}
		counts[d] = (domain.Extent(d) + t - 1) / t
	}
	var boxes []Box
	NewBox(make(IntVector, dim), counts.minus(1)).ForEach(func(k IntVector) {
		lo := make(IntVector, dim)
		hi := make(IntVector, dim)
		for d := 0; d < dim; d++ {
			t := tile[d]
			if t < 1 {
				t = domain.Extent(d)
			}
			lo[d] = domain.Lo[d] + k[d]*t
			hi[d] = min(lo[d]+t-1, domain.Hi[d])
		}
		boxes = append(boxes, NewBox(lo, hi))
	})
	return boxes
}

func (v IntVector) minus(n int) IntVector {
	c := v.Copy()
	for d := range c {
		c[d] -= n
	}
	return c
}

// NewUniformHierarchy builds a single level hierarchy of n cells per axis
// tiled into patches of at most tile cells per axis.
func NewUniformHierarchy(registry *Registry, xlo, xhi []float64, n, tile IntVector,
	workers int, strategy partitions.PartitionStrategy) (*Hierarchy, error) {
	h, err := NewHierarchy(registry, xlo, xhi, workers, strategy)
	if err != nil {
		return nil, err
	}
	if len(n) != h.Dim() || len(tile) != h.Dim() {
		return nil, fmt.Errorf("cell counts %v and tile %v must have dimension %d", n, tile, h.Dim())
	}
	domain := NewBox(make(IntVector, h.Dim()), n.minus(1))
	if _, err = h.AddLevel(domain, 1, TileBox(domain, tile)); err != nil {
		return nil, err
	}
	return h, nil
}
