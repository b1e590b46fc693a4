package physics

import (
	"fmt"

	"github.com/notargets/StokesPC/grid"
)

// StokesSpecifications carries the physical coefficients of
//
//	rho du/dt = -grad p + mu L u - lambda u + f,   div u = 0
type StokesSpecifications struct {
	Rho    float64 // Mass density
	Mu     float64 // Dynamic viscosity
	Lambda float64 // Drag coefficient
}

func (s StokesSpecifications) String() string {
	return fmt.Sprintf("rho=%g mu=%g lambda=%g", s.Rho, s.Mu, s.Lambda)
}

type coefKind uint8

const (
	coefZero coefKind = iota
	coefConstant
	coefVariable
)

// PoissonSpecifications describes C u + div(D grad u) = f where each of C
// and D is zero, a constant, or a cell centred field.
type PoissonSpecifications struct {
	Name string

	cKind, dKind   coefKind
	cConst, dConst float64
	cIdx, dIdx     grid.FieldIndex
}

// NewPoissonSpecifications returns the Laplace operator, C = 0 and D = 1
func NewPoissonSpecifications(name string) PoissonSpecifications {
	return PoissonSpecifications{
		Name:   name,
		cKind:  coefZero,
		dKind:  coefConstant,
		dConst: 1,
		cIdx:   grid.InvalidField,
		dIdx:   grid.InvalidField,
	}
}

func (p *PoissonSpecifications) SetCZero() {
	p.cKind, p.cConst, p.cIdx = coefZero, 0, grid.InvalidField
}

func (p *PoissonSpecifications) SetCConstant(c float64) {
	p.cKind, p.cConst, p.cIdx = coefConstant, c, grid.InvalidField
}

func (p *PoissonSpecifications) SetCPatchDataID(idx grid.FieldIndex) {
	p.cKind, p.cConst, p.cIdx = coefVariable, 0, idx
}

func (p *PoissonSpecifications) SetDConstant(d float64) {
	p.dKind, p.dConst, p.dIdx = coefConstant, d, grid.InvalidField
}

func (p *PoissonSpecifications) SetDPatchDataID(idx grid.FieldIndex) {
	p.dKind, p.dConst, p.dIdx = coefVariable, 0, idx
}

func (p PoissonSpecifications) CIsZero() bool     { return p.cKind == coefZero }
func (p PoissonSpecifications) CIsConstant() bool { return p.cKind == coefConstant }
func (p PoissonSpecifications) CIsVariable() bool { return p.cKind == coefVariable }
func (p PoissonSpecifications) DIsConstant() bool { return p.dKind == coefConstant }
func (p PoissonSpecifications) DIsVariable() bool { return p.dKind == coefVariable }

// GetCConstant returns C, zero when C is zero. It panics on a variable C.
func (p PoissonSpecifications) GetCConstant() float64 {
	if p.cKind == coefVariable {
		panic(fmt.Errorf("%s: C is variable", p.Name))
	}
	return p.cConst
}

// GetDConstant returns D. It panics on a variable D.
func (p PoissonSpecifications) GetDConstant() float64 {
	if p.dKind == coefVariable {
		panic(fmt.Errorf("%s: D is variable", p.Name))
	}
	return p.dConst
}

func (p PoissonSpecifications) GetCPatchDataID() grid.FieldIndex { return p.cIdx }
func (p PoissonSpecifications) GetDPatchDataID() grid.FieldIndex { return p.dIdx }

// VelocityProblem returns the velocity block coefficients of the implicit
// Stokes system: C = rho/dt + lambda and D = -mu. Steady problems pass dt
// <= 0 and get C from lambda alone.
func VelocityProblem(name string, s StokesSpecifications, dt float64) PoissonSpecifications {
	p := NewPoissonSpecifications(name)
	c := s.Lambda
	if dt > 0 {
		c += s.Rho / dt
	}
	if c == 0 {
		p.SetCZero()
	} else {
		p.SetCConstant(c)
	}
	p.SetDConstant(-s.Mu)
	return p
}

// PressureProblem returns the pressure block coefficients, C = 0 and
// D = -1/rho, or D = -1 when the problem is steady or rho is zero.
func PressureProblem(name string, s StokesSpecifications, dt float64) PoissonSpecifications {
	p := NewPoissonSpecifications(name)
	if dt > 0 && s.Rho != 0 {
		p.SetDConstant(-1 / s.Rho)
	} else {
		p.SetDConstant(-1)
	}
	return p
}
