package stokes

import (
	"fmt"

	"github.com/notargets/StokesPC/bc"
	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/ops"
	"github.com/notargets/StokesPC/physics"
	"github.com/notargets/StokesPC/utils"
)

// poissonConfigurable solvers take the operator of their block
type poissonConfigurable interface {
	SetPoissonSpecifications(problemCoefs physics.PoissonSpecifications)
}

// velocityBcConfigurable solvers take the velocity boundary strategies
type velocityBcConfigurable interface {
	SetPhysicalBcCoefs(bcCoefs []bc.Strategy)
}

// pressureBcConfigurable solvers take the pressure boundary strategy
type pressureBcConfigurable interface {
	SetPhysicalBcCoef(bcCoef bc.Strategy)
}

// BlockPreconditioner holds what every block preconditioner of the Stokes
// system needs: inner solvers for the velocity and pressure blocks, the
// operator of each block, physical boundary strategies, the time interval
// and an optional nullspace corrector. Settings are forwarded to the inner
// solvers that accept them.
type BlockPreconditioner struct {
	Name string

	needsVelocitySolver bool
	needsPressureSolver bool
	velocitySolver      GeneralSolver
	pressureSolver      GeneralSolver

	uProblemCoefs    physics.PoissonSpecifications
	pProblemCoefs    physics.PoissonSpecifications
	uProblemCoefsSet bool
	pProblemCoefsSet bool
	uBcCoefs         []bc.Strategy
	pBcCoef          bc.Strategy
	bcCoefsSet       bool

	nullspace       NullspaceCorrector
	mathOps         MathOps
	mathOpsExternal bool
	pressureDataOps *ops.CellDataOps

	homogeneous  bool
	solutionTime float64
	currentTime  float64
	newTime      float64

	initialized bool
	hierarchy   *grid.Hierarchy
	coarsest    int
	finest      int
}

func newBlockPreconditioner(name string, needsVelocitySolver, needsPressureSolver bool) BlockPreconditioner {
	return BlockPreconditioner{
		Name:                name,
		needsVelocitySolver: needsVelocitySolver,
		needsPressureSolver: needsPressureSolver,
		uProblemCoefs:       physics.NewPoissonSpecifications(name + "::U_problem_coefs"),
		pProblemCoefs:       physics.NewPoissonSpecifications(name + "::P_problem_coefs"),
		homogeneous:         true,
	}
}

func (b *BlockPreconditioner) NeedsVelocitySubdomainSolver() bool { return b.needsVelocitySolver }

func (b *BlockPreconditioner) NeedsPressureSubdomainSolver() bool { return b.needsPressureSolver }

func (b *BlockPreconditioner) SetVelocitySubdomainSolver(s GeneralSolver) {
	b.velocitySolver = s
	if s == nil {
		return
	}
	if b.uProblemCoefsSet {
		if pc, ok := s.(poissonConfigurable); ok {
			pc.SetPoissonSpecifications(b.uProblemCoefs)
		}
	}
	if b.bcCoefsSet {
		if bs, ok := s.(velocityBcConfigurable); ok {
			bs.SetPhysicalBcCoefs(b.uBcCoefs)
		}
	}
}

func (b *BlockPreconditioner) SetPressureSubdomainSolver(s GeneralSolver) {
	b.pressureSolver = s
	if s == nil {
		return
	}
	if b.pProblemCoefsSet {
		if pc, ok := s.(poissonConfigurable); ok {
			pc.SetPoissonSpecifications(b.pProblemCoefs)
		}
	}
	if b.bcCoefsSet {
		if bs, ok := s.(pressureBcConfigurable); ok {
			bs.SetPhysicalBcCoef(b.pBcCoef)
		}
	}
}

func (b *BlockPreconditioner) VelocitySubdomainSolver() GeneralSolver { return b.velocitySolver }

func (b *BlockPreconditioner) PressureSubdomainSolver() GeneralSolver { return b.pressureSolver }

func (b *BlockPreconditioner) SetVelocityPoissonSpecifications(problemCoefs physics.PoissonSpecifications) {
	b.uProblemCoefs, b.uProblemCoefsSet = problemCoefs, true
	if pc, ok := b.velocitySolver.(poissonConfigurable); ok {
		pc.SetPoissonSpecifications(problemCoefs)
	}
}

func (b *BlockPreconditioner) SetPressurePoissonSpecifications(problemCoefs physics.PoissonSpecifications) {
	b.pProblemCoefs, b.pProblemCoefsSet = problemCoefs, true
	if pc, ok := b.pressureSolver.(poissonConfigurable); ok {
		pc.SetPoissonSpecifications(problemCoefs)
	}
}

func (b *BlockPreconditioner) VelocityPoissonSpecifications() physics.PoissonSpecifications {
	return b.uProblemCoefs
}

func (b *BlockPreconditioner) PressurePoissonSpecifications() physics.PoissonSpecifications {
	return b.pProblemCoefs
}

// SetPhysicalBcCoefs sets one velocity strategy per axis and the pressure
// strategy, pBcCoef may be nil for homogeneous Neumann pressure data.
func (b *BlockPreconditioner) SetPhysicalBcCoefs(uBcCoefs []bc.Strategy, pBcCoef bc.Strategy) {
	b.uBcCoefs, b.pBcCoef, b.bcCoefsSet = uBcCoefs, pBcCoef, true
	if bs, ok := b.velocitySolver.(velocityBcConfigurable); ok {
		bs.SetPhysicalBcCoefs(uBcCoefs)
	}
	if bs, ok := b.pressureSolver.(pressureBcConfigurable); ok {
		bs.SetPhysicalBcCoef(pBcCoef)
	}
}

func (b *BlockPreconditioner) SetNullspaceCorrector(n NullspaceCorrector) { b.nullspace = n }

// SetHierarchyMathOps supplies the divergence and gradient. Without it an
// ops.HierarchyMathOps is built at initialization.
func (b *BlockPreconditioner) SetHierarchyMathOps(m MathOps) {
	b.mathOps = m
	b.mathOpsExternal = m != nil
}

func (b *BlockPreconditioner) SetHomogeneousBc(homogeneous bool) { b.homogeneous = homogeneous }

func (b *BlockPreconditioner) HomogeneousBc() bool { return b.homogeneous }

func (b *BlockPreconditioner) SetSolutionTime(t float64) {
	b.solutionTime = t
	for _, s := range b.solvers() {
		s.SetSolutionTime(t)
	}
}

func (b *BlockPreconditioner) SolutionTime() float64 { return b.solutionTime }

func (b *BlockPreconditioner) SetTimeInterval(currentTime, newTime float64) {
	b.currentTime, b.newTime = currentTime, newTime
	for _, s := range b.solvers() {
		s.SetTimeInterval(currentTime, newTime)
	}
}

// Dt is the length of the current time interval
func (b *BlockPreconditioner) Dt() float64 { return b.newTime - b.currentTime }

func (b *BlockPreconditioner) IsInitialized() bool { return b.initialized }

func (b *BlockPreconditioner) solvers() []GeneralSolver {
	var s []GeneralSolver
	if b.velocitySolver != nil {
		s = append(s, b.velocitySolver)
	}
	if b.pressureSolver != nil {
		s = append(s, b.pressureSolver)
	}
	return s
}

// initializeBlockState checks that x and b are (velocity, pressure) vectors
// on one level range and builds the hierarchy operators.
func (b *BlockPreconditioner) initializeBlockState(x, rhs *grid.Vector) error {
	if b.needsVelocitySolver && b.velocitySolver == nil {
		return fmt.Errorf("%w: %s: no velocity subdomain solver", utils.ErrConfiguration, b.Name)
	}
	if b.needsPressureSolver && b.pressureSolver == nil {
		return fmt.Errorf("%w: %s: no pressure subdomain solver", utils.ErrConfiguration, b.Name)
	}
	for _, v := range []*grid.Vector{x, rhs} {
		if err := b.checkStokesVector(v); err != nil {
			return err
		}
	}
	if x.Hierarchy != rhs.Hierarchy || x.Coarsest != rhs.Coarsest || x.Finest != rhs.Finest {
		return fmt.Errorf("%w: %s: solution and right hand side live on different levels",
			utils.ErrConfiguration, b.Name)
	}
	if b.bcCoefsSet && len(b.uBcCoefs) != x.Hierarchy.Dim() {
		return fmt.Errorf("%w: %s: %d velocity boundary strategies for dimension %d",
			utils.ErrConfiguration, b.Name, len(b.uBcCoefs), x.Hierarchy.Dim())
	}
	b.hierarchy, b.coarsest, b.finest = x.Hierarchy, x.Coarsest, x.Finest
	if !b.mathOpsExternal {
		m, err := ops.NewHierarchyMathOps(b.Name+"::HierarchyMathOps", b.hierarchy, b.coarsest, b.finest)
		if err != nil {
			return err
		}
		b.mathOps = m
	}
	b.pressureDataOps = ops.NewCellDataOps(b.hierarchy, b.coarsest, b.finest)
	return nil
}

func (b *BlockPreconditioner) deallocateBlockState() {
	if !b.mathOpsExternal {
		b.mathOps = nil
	}
	b.pressureDataOps = nil
}

func (b *BlockPreconditioner) checkStokesVector(v *grid.Vector) error {
	if v == nil {
		return fmt.Errorf("%w: %s: nil vector", utils.ErrConfiguration, b.Name)
	}
	if v.NumComponents() != 2 {
		return fmt.Errorf("%w: %s: vector %s has %d components, need velocity and pressure",
			utils.ErrConfiguration, b.Name, v.Name, v.NumComponents())
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %v", utils.ErrConfiguration, b.Name, err)
	}
	for c, kind := range []grid.Kind{grid.Side, grid.Cell} {
		spec, err := v.Hierarchy.Registry().Spec(v.Component(c))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", utils.ErrConfiguration, b.Name, err)
		}
		if spec.Kind != kind {
			return fmt.Errorf("%w: %s: component %d of %s is %s data, need %s",
				utils.ErrConfiguration, b.Name, c, v.Name, spec.Kind, kind)
		}
	}
	return nil
}

// correctNullspace applies the nullspace corrector, if any
func (b *BlockPreconditioner) correctNullspace(u, p *grid.Vector) error {
	if b.nullspace == nil {
		return nil
	}
	return b.nullspace.CorrectNullspace(u, p)
}
