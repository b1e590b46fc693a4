package grid

import "fmt"

// Patch is one rectangular block of cells on a level
type Patch struct {
	ID          int // Level local index
	LevelNumber int
	Box         Box
	Dx          []float64
	XLo         []float64 // Physical coordinates of the lower corner of Box
	Owner       int       // Worker rank that owns the patch

	// TouchesRegularBoundary is set when any face of Box lies on the level
	// domain boundary.
	TouchesRegularBoundary bool

	data map[FieldIndex]PatchData
}

func newPatch(id, ln int, b Box, dx, xlo []float64) *Patch {
	return &Patch{
		ID:          id,
		LevelNumber: ln,
		Box:         NewBox(b.Lo, b.Hi),
		Dx:          dx,
		XLo:         xlo,
		data:        make(map[FieldIndex]PatchData),
	}
}

func (p *Patch) Dim() int { return p.Box.Dim() }

func (p *Patch) CheckAllocated(idx FieldIndex) bool {
	_, ok := p.data[idx]
	return ok
}

func (p *Patch) Data(idx FieldIndex) PatchData { return p.data[idx] }

// CellData returns the cell data for idx, nil when absent or not cell centred
func (p *Patch) CellData(idx FieldIndex) *CellData {
	c, _ := p.data[idx].(*CellData)
	return c
}

// SideData returns the side data for idx, nil when absent or not staggered
func (p *Patch) SideData(idx FieldIndex) *SideData {
	s, _ := p.data[idx].(*SideData)
	return s
}

func (p *Patch) allocate(idx FieldIndex, spec FieldSpec) error {
	if p.CheckAllocated(idx) {
		return nil
	}
	switch spec.Kind {
	case Cell:
		p.data[idx] = NewCellData(p.Box, spec.Ghost)
	case Side:
		p.data[idx] = NewSideData(p.Box, spec.Ghost)
	default:
		return fmt.Errorf("field %s: unsupported kind %v", spec.Name, spec.Kind)
	}
	return nil
}

func (p *Patch) deallocate(idx FieldIndex) { delete(p.data, idx) }

// CellCenter returns the physical coordinate along axis of cell i
func (p *Patch) CellCenter(i IntVector, axis int) float64 {
	return p.XLo[axis] + (float64(i[axis]-p.Box.Lo[axis])+0.5)*p.Dx[axis]
}

// FaceCenter returns the physical coordinates of face i normal to normalAxis
func (p *Patch) FaceCenter(i IntVector, normalAxis int) []float64 {
	x := make([]float64, p.Dim())
	for d := range x {
		if d == normalAxis {
			x[d] = p.XLo[d] + float64(i[d]-p.Box.Lo[d])*p.Dx[d]
		} else {
			x[d] = p.CellCenter(i, d)
		}
	}
	return x
}
