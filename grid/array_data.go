package grid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ArrayData is a depth one array of float64 over a box
type ArrayData struct {
	Box     Box
	Data    []float64
	strides []int
}

func NewArrayData(b Box) *ArrayData {
	a := &ArrayData{
		Box:     NewBox(b.Lo, b.Hi),
		Data:    make([]float64, b.NumCells()),
		strides: make([]int, b.Dim()),
	}
	stride := 1
	for d := 0; d < b.Dim(); d++ {
		a.strides[d] = stride
		stride *= b.Extent(d)
	}
	return a
}

// Offset returns the position of index i in Data
func (a *ArrayData) Offset(i IntVector) int {
	off := 0
	for d, s := range a.strides {
		off += (i[d] - a.Box.Lo[d]) * s
	}
	return off
}

func (a *ArrayData) At(i IntVector) float64 {
	if !a.Box.Contains(i) {
		panic(fmt.Errorf("index %v outside array box %v", i, a.Box))
	}
	return a.Data[a.Offset(i)]
}

func (a *ArrayData) Set(i IntVector, v float64) {
	if !a.Box.Contains(i) {
		panic(fmt.Errorf("index %v outside array box %v", i, a.Box))
	}
	a.Data[a.Offset(i)] = v
}

func (a *ArrayData) Fill(v float64) {
	for i := range a.Data {
		a.Data[i] = v
	}
}

// FillBox sets every entry of b inside the array box to v
func (a *ArrayData) FillBox(b Box, v float64) {
	b.Intersect(a.Box).ForEach(func(i IntVector) {
		a.Data[a.Offset(i)] = v
	})
}

// CopyBox copies the entries of b shared by both arrays from src
func (a *ArrayData) CopyBox(src *ArrayData, b Box) {
	b.Intersect(a.Box).Intersect(src.Box).ForEach(func(i IntVector) {
		a.Data[a.Offset(i)] = src.Data[src.Offset(i)]
	})
}

// MaxAbs returns the largest magnitude over the entries of b
func (a *ArrayData) MaxAbs(b Box) float64 {
	var m float64
	b.Intersect(a.Box).ForEach(func(i IntVector) {
		v := a.Data[a.Offset(i)]
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	})
	return m
}

// Sum adds the entries of b
func (a *ArrayData) Sum(b Box) float64 {
	if b.Equal(a.Box) {
		return floats.Sum(a.Data)
	}
	var s float64
	b.Intersect(a.Box).ForEach(func(i IntVector) {
		s += a.Data[a.Offset(i)]
	})
	return s
}

// PatchData is the storage of one field on one patch
type PatchData interface {
	Kind() Kind
	GhostWidth() int
	Fill(v float64)
}

// CellData holds a cell centred scalar with a layer of ghost cells
type CellData struct {
	Box   Box // Interior cells
	Ghost int
	Array *ArrayData
}

func NewCellData(b Box, ghost int) *CellData {
	return &CellData{
		Box:   NewBox(b.Lo, b.Hi),
		Ghost: ghost,
		Array: NewArrayData(b.Grow(ghost)),
	}
}

func (c *CellData) Kind() Kind                    { return Cell }
func (c *CellData) GhostWidth() int               { return c.Ghost }
func (c *CellData) GhostBox() Box                 { return c.Array.Box }
func (c *CellData) Fill(v float64)                { c.Array.Fill(v) }
func (c *CellData) At(i IntVector) float64        { return c.Array.At(i) }
func (c *CellData) Set(i IntVector, v float64)    { c.Array.Set(i, v) }
func (c *CellData) CopyFrom(src *CellData, b Box) { c.Array.CopyBox(src.Array, b) }

// SideData holds one staggered component per axis, component a lives on the
// faces normal to a.
type SideData struct {
	Box    Box // Interior cells
	Ghost  int
	Arrays []*ArrayData
}

func NewSideData(b Box, ghost int) *SideData {
	s := &SideData{
		Box:    NewBox(b.Lo, b.Hi),
		Ghost:  ghost,
		Arrays: make([]*ArrayData, b.Dim()),
	}
	gb := b.Grow(ghost)
	for axis := range s.Arrays {
		s.Arrays[axis] = NewArrayData(gb.SideBox(axis))
	}
	return s
}

func (s *SideData) Kind() Kind      { return Side }
func (s *SideData) GhostWidth() int { return s.Ghost }

func (s *SideData) Fill(v float64) {
	for _, a := range s.Arrays {
		a.Fill(v)
	}
}

// At returns the value on face i normal to axis, the lower face of cell i
func (s *SideData) At(axis int, i IntVector) float64 { return s.Arrays[axis].At(i) }

func (s *SideData) Set(axis int, i IntVector, v float64) { s.Arrays[axis].Set(i, v) }

// InteriorSideBox is the face box of the interior cells normal to axis
func (s *SideData) InteriorSideBox(axis int) Box { return s.Box.SideBox(axis) }
