package bc

import (
	"fmt"
	"strings"
)

// Kind is the physical type of a boundary location
type Kind uint8

const (
	KindDirichlet Kind = iota // Prescribed velocity
	KindNeumann               // Prescribed normal derivative of velocity
	KindTraction              // Prescribed traction
)

func (k Kind) String() string {
	switch k {
	case KindDirichlet:
		return "Dirichlet"
	case KindNeumann:
		return "Neumann"
	case KindTraction:
		return "Traction"
	}
	return "Unknown"
}

// KindNameMap maps common configuration names to a Kind, keys are lowercase
var KindNameMap = map[string]Kind{
	"dirichlet":      KindDirichlet,
	"wall":           KindDirichlet,
	"no_slip":        KindDirichlet,
	"noslip":         KindDirichlet,
	"inflow":         KindDirichlet,
	"velocity_inlet": KindDirichlet,
	"neumann":        KindNeumann,
	"symmetry":       KindNeumann,
	"traction":       KindTraction,
	"outflow":        KindTraction,
	"open":           KindTraction,
}

// ParseKind converts a boundary type name, ignoring case and surrounding space
func ParseKind(name string) (Kind, error) {
	if k, ok := KindNameMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return KindDirichlet, fmt.Errorf("unknown boundary type %q", name)
}

var axisNames = []string{"x", "y", "z"}

// LocationName returns e.g. "x_lo" for location 0 and "y_hi" for location 3
func LocationName(loc int) string {
	side := "lo"
	if loc%2 == 1 {
		side = "hi"
	}
	return axisNames[loc/2] + "_" + side
}

// ParseLocation is the inverse of LocationName for a dim dimensional domain
func ParseLocation(name string, dim int) (int, error) {
	for loc := 0; loc < 2*dim; loc++ {
		if LocationName(loc) == strings.ToLower(strings.TrimSpace(name)) {
			return loc, nil
		}
	}
	return -1, fmt.Errorf("unknown boundary location %q for %d dimensions", name, dim)
}

// LocationSpec describes one boundary location. Values holds one entry per
// velocity component: the velocity for Dirichlet kinds, the slope for
// Neumann and the traction for traction kinds. Missing entries are zero.
type LocationSpec struct {
	Type   string    `yaml:"type"`
	Values []float64 `yaml:"values"`
}

// BuildPhysicalCoefs creates one LocationIndexCoefs per velocity component
// from named location specifications. Unnamed locations are no-slip walls.
func BuildPhysicalCoefs(dim int, specs map[string]LocationSpec) ([]Strategy, error) {
	coefs := make([]*LocationIndexCoefs, dim)
	for d := range coefs {
		coefs[d] = NewLocationIndexCoefs(fmt.Sprintf("u_%s", axisNames[d]), dim)
	}
	for name, spec := range specs {
		loc, err := ParseLocation(name, dim)
		if err != nil {
			return nil, err
		}
		kind, err := ParseKind(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(spec.Values) > dim {
			return nil, fmt.Errorf("%s: %d values for %d components", name, len(spec.Values), dim)
		}
		for d := range coefs {
			var g float64
			if d < len(spec.Values) {
				g = spec.Values[d]
			}
			if kind == KindDirichlet {
				coefs[d].SetBoundaryValue(loc, g)
			} else {
				coefs[d].SetBoundarySlope(loc, g)
			}
		}
	}
	strategies := make([]Strategy, dim)
	for d := range coefs {
		strategies[d] = coefs[d]
	}
	return strategies, nil
}

// BuildPressureCoef derives the conditions of the pressure potential from
// the velocity specifications. Locations with prescribed velocity get a
// homogeneous Neumann condition, open locations a homogeneous Dirichlet
// one. open reports whether any location is open, in which case the
// pressure has no constant nullspace.
func BuildPressureCoef(dim int, specs map[string]LocationSpec) (coef *LocationIndexCoefs, open bool, err error) {
	coef = NewLocationIndexCoefs("p", dim)
	for loc := 0; loc < 2*dim; loc++ {
		coef.SetBoundarySlope(loc, 0)
	}
	for name, spec := range specs {
		loc, err := ParseLocation(name, dim)
		if err != nil {
			return nil, false, err
		}
		kind, err := ParseKind(spec.Type)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", name, err)
		}
		if kind != KindDirichlet {
			coef.SetBoundaryValue(loc, 0)
			open = true
		}
	}
	return coef, open, nil
}
