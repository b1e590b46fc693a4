package grid

// Transfer copies the values inside Box from patch Src into patch Dst
type Transfer struct {
	Dst, Src int
	Box      Box
}

// Connector holds the patch to patch copy schedule of one level. Transfers
// are grouped by destination patch so each worker only writes the patches
// it owns.
type Connector struct {
	Level int
	Ghost int

	// CellTransfers[dst] fills ghost cells of dst from neighbour interiors
	CellTransfers [][]Transfer

	// SideTransfers[axis][dst] synchronises faces normal to axis that dst
	// shares with a lower numbered patch, the lower patch's value wins.
	SideTransfers [][][]Transfer
}

// NewConnector builds the schedule for ghost width ghost on level l
func NewConnector(l *Level, ghost int) *Connector {
	var (
		np  = l.NumPatches()
		dim = l.Domain.Dim()
	)
	c := &Connector{
		Level:         l.Number,
		Ghost:         ghost,
		CellTransfers: make([][]Transfer, np),
		SideTransfers: make([][][]Transfer, dim),
	}
	for axis := range c.SideTransfers {
		c.SideTransfers[axis] = make([][]Transfer, np)
	}
	for _, dst := range l.Patches {
		gbox := dst.Box.Grow(ghost)
		for _, src := range l.Patches {
			if src.ID == dst.ID {
				continue
			}
			if overlap := gbox.Intersect(src.Box); ghost > 0 && !overlap.Empty() {
				c.CellTransfers[dst.ID] = append(c.CellTransfers[dst.ID],
					Transfer{Dst: dst.ID, Src: src.ID, Box: overlap})
			}
			if src.ID > dst.ID {
				continue
			}
			for axis := 0; axis < dim; axis++ {
				shared := dst.Box.SideBox(axis).Intersect(src.Box.SideBox(axis))
				if !shared.Empty() {
					c.SideTransfers[axis][dst.ID] = append(c.SideTransfers[axis][dst.ID],
						Transfer{Dst: dst.ID, Src: src.ID, Box: shared})
				}
			}
		}
	}
	return c
}

// FillCellGhosts copies neighbour interior values into the ghost cells of
// patch dst for field idx.
func (c *Connector) FillCellGhosts(l *Level, idx FieldIndex, dst int) {
	d := l.Patches[dst].CellData(idx)
	for _, t := range c.CellTransfers[dst] {
		d.CopyFrom(l.Patches[t.Src].CellData(idx), t.Box)
	}
}

// SynchSides makes the faces patch dst shares with lower numbered patches
// agree with those patches for side field idx.
func (c *Connector) SynchSides(l *Level, idx FieldIndex, dst int) {
	d := l.Patches[dst].SideData(idx)
	for axis, byDst := range c.SideTransfers {
		for _, t := range byDst[dst] {
			d.Arrays[axis].CopyBox(l.Patches[t.Src].SideData(idx).Arrays[axis], t.Box)
		}
	}
}
