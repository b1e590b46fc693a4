package grid

import "fmt"

// BoundaryBox is the codimension one region where one face of a patch lies
// on the physical boundary. LocationIndex 2*axis is the lower side, 2*axis+1
// the upper side. Box holds the boundary faces as side indices normal to the
// boundary, its tangential range is the patch range.
type BoundaryBox struct {
	Box           Box
	LocationIndex int
}

func (b BoundaryBox) NormalAxis() int { return b.LocationIndex / 2 }

func (b BoundaryBox) IsLower() bool { return b.LocationIndex%2 == 0 }

// InteriorCell returns the cell inside the patch adjacent to boundary face f
func (b BoundaryBox) InteriorCell(f IntVector) IntVector {
	c := f.Copy()
	if !b.IsLower() {
		c[b.NormalAxis()]--
	}
	return c
}

// GhostCell returns the cell outside the domain adjacent to boundary face f
func (b BoundaryBox) GhostCell(f IntVector) IntVector {
	c := f.Copy()
	if b.IsLower() {
		c[b.NormalAxis()]--
	}
	return c
}

// OutwardSign is -1 on lower sides and +1 on upper sides
func (b BoundaryBox) OutwardSign() float64 {
	if b.IsLower() {
		return -1
	}
	return 1
}

func (b BoundaryBox) String() string {
	return fmt.Sprintf("loc=%d %v", b.LocationIndex, b.Box)
}

// codim1Boxes returns the boundary boxes of patch box pb inside domain
func codim1Boxes(pb, domain Box) []BoundaryBox {
	var boxes []BoundaryBox
	for axis := 0; axis < pb.Dim(); axis++ {
		if pb.Lo[axis] == domain.Lo[axis] {
			b := NewBox(pb.Lo, pb.Hi)
			b.Hi[axis] = b.Lo[axis]
			boxes = append(boxes, BoundaryBox{Box: b, LocationIndex: 2 * axis})
		}
		if pb.Hi[axis] == domain.Hi[axis] {
			b := NewBox(pb.Lo, pb.Hi)
			b.Hi[axis]++
			b.Lo[axis] = b.Hi[axis]
			boxes = append(boxes, BoundaryBox{Box: b, LocationIndex: 2*axis + 1})
		}
	}
	return boxes
}
