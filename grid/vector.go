package grid

import "fmt"

// Vector groups field indices over a range of levels into one solver vector.
// Component order is meaningful, a Stokes vector is (velocity, pressure).
type Vector struct {
	Name       string
	Hierarchy  *Hierarchy
	Coarsest   int
	Finest     int
	components []FieldIndex
}

func NewVector(name string, h *Hierarchy, coarsest, finest int) *Vector {
	return &Vector{Name: name, Hierarchy: h, Coarsest: coarsest, Finest: finest}
}

// AddComponent appends a field and returns the vector for chaining
func (v *Vector) AddComponent(idx FieldIndex) *Vector {
	v.components = append(v.components, idx)
	return v
}

func (v *Vector) NumComponents() int { return len(v.components) }

func (v *Vector) Component(i int) FieldIndex { return v.components[i] }

// Validate checks the level range and that every component is allocated
func (v *Vector) Validate() error {
	if v.Hierarchy == nil {
		return fmt.Errorf("vector %s has no hierarchy", v.Name)
	}
	if v.Coarsest < 0 || v.Finest < v.Coarsest || v.Finest > v.Hierarchy.FinestLevelNumber() {
		return fmt.Errorf("vector %s: bad level range [%d, %d]", v.Name, v.Coarsest, v.Finest)
	}
	for ln := v.Coarsest; ln <= v.Finest; ln++ {
		for _, idx := range v.components {
			if !v.Hierarchy.Level(ln).CheckAllocated(idx) {
				return fmt.Errorf("vector %s: field %d not allocated on level %d", v.Name, idx, ln)
			}
		}
	}
	return nil
}
