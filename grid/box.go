package grid

import (
	"fmt"
	"strings"
)

// IntVector is an index or extent in D dimensions
type IntVector []int

func (v IntVector) Copy() IntVector {
	c := make(IntVector, len(v))
	copy(c, v)
	return c
}

// Unit returns the D dimensional unit vector along axis
func Unit(dim, axis int) IntVector {
	v := make(IntVector, dim)
	v[axis] = 1
	return v
}

// Box is a rectangular index region, Lo and Hi are inclusive
type Box struct {
	Lo, Hi IntVector
}

func NewBox(lo, hi IntVector) Box {
	if len(lo) != len(hi) {
		panic(fmt.Errorf("box corners differ in dimension: %v, %v", lo, hi))
	}
	return Box{Lo: lo.Copy(), Hi: hi.Copy()}
}

func (b Box) Dim() int { return len(b.Lo) }

func (b Box) Empty() bool {
	if len(b.Lo) == 0 {
		return true
	}
	for d := range b.Lo {
		if b.Hi[d] < b.Lo[d] {
			return true
		}
	}
	return false
}

func (b Box) Extent(axis int) int {
	if b.Empty() {
		return 0
	}
	return b.Hi[axis] - b.Lo[axis] + 1
}

func (b Box) NumCells() int {
	if b.Empty() {
		return 0
	}
	n := 1
	for d := range b.Lo {
		n *= b.Hi[d] - b.Lo[d] + 1
	}
	return n
}

func (b Box) Equal(o Box) bool {
	if b.Empty() && o.Empty() {
		return true
	}
	if len(b.Lo) != len(o.Lo) {
		return false
	}
	for d := range b.Lo {
		if b.Lo[d] != o.Lo[d] || b.Hi[d] != o.Hi[d] {
			return false
		}
	}
	return true
}

func (b Box) Grow(g int) Box {
	c := NewBox(b.Lo, b.Hi)
	for d := range c.Lo {
		c.Lo[d] -= g
		c.Hi[d] += g
	}
	return c
}

// SideBox is the box of face indices normal to axis: one more index than
// cells along that axis, face i being the lower face of cell i.
func (b Box) SideBox(axis int) Box {
	c := NewBox(b.Lo, b.Hi)
	c.Hi[axis]++
	return c
}

func (b Box) Shift(axis, n int) Box {
	c := NewBox(b.Lo, b.Hi)
	c.Lo[axis] += n
	c.Hi[axis] += n
	return c
}

func (b Box) Intersect(o Box) Box {
	c := NewBox(b.Lo, b.Hi)
	for d := range c.Lo {
		c.Lo[d] = max(c.Lo[d], o.Lo[d])
		c.Hi[d] = min(c.Hi[d], o.Hi[d])
	}
	return c
}

func (b Box) Contains(i IntVector) bool {
	for d := range b.Lo {
		if i[d] < b.Lo[d] || i[d] > b.Hi[d] {
			return false
		}
	}
	return true
}

func (b Box) ContainsBox(o Box) bool {
	if o.Empty() {
		return true
	}
	return b.Contains(o.Lo) && b.Contains(o.Hi)
}

// Refine maps a coarse cell box onto the cells it covers at ratio r
func (b Box) Refine(r int) Box {
	c := NewBox(b.Lo, b.Hi)
	for d := range c.Lo {
		c.Lo[d] *= r
		c.Hi[d] = (c.Hi[d]+1)*r - 1
	}
	return c
}

// Coarsen returns the coarse cells containing b at ratio r
func (b Box) Coarsen(r int) Box {
	c := NewBox(b.Lo, b.Hi)
	for d := range c.Lo {
		c.Lo[d] = floorDiv(c.Lo[d], r)
		c.Hi[d] = floorDiv(c.Hi[d], r)
	}
	return c
}

// ForEach visits every index of b with axis 0 varying fastest. The index
// passed to fn is reused between calls, copy it to retain it.
func (b Box) ForEach(fn func(i IntVector)) {
	if b.Empty() {
		return
	}
	i := b.Lo.Copy()
	for {
		fn(i)
		d := 0
		for ; d < len(i); d++ {
			i[d]++
			if i[d] <= b.Hi[d] {
				break
			}
			i[d] = b.Lo[d]
		}
		if d == len(i) {
			return
		}
	}
}

func (b Box) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for d := range b.Lo {
		if d > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf("%d:%d", b.Lo[d], b.Hi[d]))
	}
	sb.WriteString("]")
	return sb.String()
}

func floorDiv(a, r int) int {
	q := a / r
	if a%r != 0 && (a < 0) != (r < 0) {
		q--
	}
	return q
}
