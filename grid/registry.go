package grid

import (
	"fmt"
	"sync"
)

// Kind is the centring of a registered field
type Kind uint8

const (
	Cell Kind = iota // Cell centred scalar
	Side             // Staggered, one component per axis
)

func (k Kind) String() string {
	switch k {
	case Cell:
		return "cell"
	case Side:
		return "side"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// FieldIndex identifies one registered field across every patch of every level
type FieldIndex int

const InvalidField FieldIndex = -1

type FieldSpec struct {
	Name  string
	Kind  Kind
	Ghost int
}

// Registry maps field names to indices. It is passed explicitly to whatever
// needs to register scratch storage.
type Registry struct {
	mu     sync.RWMutex
	specs  []FieldSpec
	byName map[string]FieldIndex
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]FieldIndex)}
}

// Register returns the index of name, registering it on first use. A second
// registration must agree on kind and ghost width.
func (r *Registry) Register(name string, kind Kind, ghost int) (FieldIndex, error) {
	if ghost < 0 {
		return InvalidField, fmt.Errorf("field %s: negative ghost width %d", name, ghost)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.byName[name]; ok {
		spec := r.specs[idx]
		if spec.Kind != kind || spec.Ghost != ghost {
			return InvalidField, fmt.Errorf("field %s already registered as %s/%d, requested %s/%d",
				name, spec.Kind, spec.Ghost, kind, ghost)
		}
		return idx, nil
	}
	idx := FieldIndex(len(r.specs))
	r.specs = append(r.specs, FieldSpec{Name: name, Kind: kind, Ghost: ghost})
	r.byName[name] = idx
	return idx, nil
}

func (r *Registry) Lookup(name string) (FieldIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byName[name]
	return idx, ok
}

func (r *Registry) Spec(idx FieldIndex) (FieldSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || int(idx) >= len(r.specs) {
		return FieldSpec{}, fmt.Errorf("field index %d is not registered", idx)
	}
	return r.specs[idx], nil
}

func (r *Registry) NumFields() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
