package stokes

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/ops"
	"github.com/notargets/StokesPC/utils"
)

// ProjectionPreconditioner applies one step of a projection method as an
// approximate inverse of the Stokes operator. The velocity block is solved
// first, the pressure potential Phi then removes the divergence error:
//
//	U* = inv(C + D_U L) F_U
//	D_P L Phi = F_Phi = -(F_P + div U*)
//	P = (1/dt) Phi - D_U F_Phi        (-D_U F_Phi alone when C = 0)
//	U = U* + D_P grad Phi             (U* - grad Phi when C = 0)
//
// with D_U and D_P the D coefficients of the velocity and pressure blocks.
//
// Both inner solves use homogeneous boundary conditions and a zero initial
// guess. Inner solver convergence is not checked.
type ProjectionPreconditioner struct {
	BlockPreconditioner

	phiIdx  grid.FieldIndex
	fPhiIdx grid.FieldIndex
	phiFill *ops.GhostFill
}

// NewProjectionPreconditioner registers the scratch fields name::Phi and
// name::F in registry, or reuses them when another instance already did.
func NewProjectionPreconditioner(name string, registry *grid.Registry) (*ProjectionPreconditioner, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: %s: nil field registry", utils.ErrConfiguration, name)
	}
	phiIdx, err := registry.Register(name+"::Phi", grid.Cell, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", utils.ErrConfiguration, name, err)
	}
	fPhiIdx, err := registry.Register(name+"::F", grid.Cell, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", utils.ErrConfiguration, name, err)
	}
	return &ProjectionPreconditioner{
		BlockPreconditioner: newBlockPreconditioner(name, true, true),
		phiIdx:              phiIdx,
		fPhiIdx:             fPhiIdx,
	}, nil
}

// PhiIndex is the scratch field holding the pressure potential
func (p *ProjectionPreconditioner) PhiIndex() grid.FieldIndex { return p.phiIdx }

// FPhiIndex is the scratch field holding the right hand side of the
// pressure potential solve.
func (p *ProjectionPreconditioner) FPhiIndex() grid.FieldIndex { return p.fPhiIdx }

// SetInitialGuessNonzero only accepts false
func (p *ProjectionPreconditioner) SetInitialGuessNonzero(nonzero bool) error {
	if nonzero {
		return fmt.Errorf("%w: %s: the projection preconditioner requires a zero initial guess",
			utils.ErrConfiguration, p.Name)
	}
	return nil
}

func (p *ProjectionPreconditioner) InitialGuessNonzero() bool { return false }

// SetMaxIterations only accepts 1
func (p *ProjectionPreconditioner) SetMaxIterations(n int) error {
	if n != 1 {
		return fmt.Errorf("%w: %s: the projection preconditioner performs exactly one iteration, got %d",
			utils.ErrConfiguration, p.Name, n)
	}
	return nil
}

func (p *ProjectionPreconditioner) MaxIterations() int { return 1 }

// InitializeSolverState allocates Phi and F_Phi on the levels of x and
// builds the homogeneous ghost fill for Phi. An initialized preconditioner
// is torn down first.
func (p *ProjectionPreconditioner) InitializeSolverState(x, b *grid.Vector) error {
	if p.initialized {
		p.DeallocateSolverState()
	}
	if err := p.initializeBlockState(x, b); err != nil {
		return err
	}
	fill, err := ops.NewGhostFill(p.hierarchy, p.phiIdx, p.pBcCoef, p.coarsest, p.finest)
	if err != nil {
		p.deallocateBlockState()
		return err
	}
	fill.SetHomogeneousBc(true)

	type allocation struct {
		ln  int
		idx grid.FieldIndex
	}
	var allocated []allocation
	for ln := p.coarsest; ln <= p.finest; ln++ {
		lvl := p.hierarchy.Level(ln)
		for _, idx := range []grid.FieldIndex{p.phiIdx, p.fPhiIdx} {
			if lvl.CheckAllocated(idx) {
				continue
			}
			if err = lvl.AllocatePatchData(idx); err != nil {
				for _, a := range allocated {
					p.hierarchy.Level(a.ln).DeallocatePatchData(a.idx)
				}
				p.deallocateBlockState()
				return err
			}
			allocated = append(allocated, allocation{ln, idx})
		}
	}
	p.phiFill = fill
	p.initialized = true
	utils.Logger().Debug("projection preconditioner initialized",
		zap.String("name", p.Name), zap.Int("coarsest", p.coarsest), zap.Int("finest", p.finest))
	return nil
}

// DeallocateSolverState releases the scratch fields, it does nothing when
// the preconditioner is not initialized.
func (p *ProjectionPreconditioner) DeallocateSolverState() {
	if !p.initialized {
		return
	}
	p.deallocateBlockState()
	p.phiFill = nil
	for ln := p.coarsest; ln <= p.finest; ln++ {
		lvl := p.hierarchy.Level(ln)
		for _, idx := range []grid.FieldIndex{p.phiIdx, p.fPhiIdx} {
			if lvl.CheckAllocated(idx) {
				lvl.DeallocatePatchData(idx)
			}
		}
	}
	p.initialized = false
	utils.Logger().Debug("projection preconditioner deallocated", zap.String("name", p.Name))
}

// SolveSystem applies the preconditioner to b = (F_U, F_P) and writes
// x = (U, P). An uninitialized preconditioner is initialized for this call
// only. The result is always true, the inner solvers may not have
// converged.
func (p *ProjectionPreconditioner) SolveSystem(x, b *grid.Vector) (bool, error) {
	deallocateAtCompletion := !p.initialized
	if !p.initialized {
		if err := p.InitializeSolverState(x, b); err != nil {
			return false, err
		}
	}
	if deallocateAtCompletion {
		defer p.DeallocateSolverState()
	}

	uCoefs, pCoefs := p.uProblemCoefs, p.pProblemCoefs
	steadyState := uCoefs.CIsZero() || (uCoefs.CIsConstant() && utils.EqualEps(uCoefs.GetCConstant(), 0))
	if !uCoefs.DIsConstant() || (!steadyState && !pCoefs.DIsConstant()) {
		return false, fmt.Errorf("%w: %s: the projection step needs constant D coefficients",
			utils.ErrConfiguration, p.Name)
	}
	dt := p.Dt()
	if !steadyState && dt <= 0 {
		return false, fmt.Errorf("%w: %s: time dependent problem with dt = %g",
			utils.ErrConfiguration, p.Name, dt)
	}

	var (
		h            = p.hierarchy
		fUIdx, fPIdx = b.Component(0), b.Component(1)
		uIdx, pIdx   = x.Component(0), x.Component(1)
		newVec       = func(suffix string, idx grid.FieldIndex) *grid.Vector {
			return grid.NewVector(p.Name+"::"+suffix, h, p.coarsest, p.finest).AddComponent(idx)
		}
		fUVec   = newVec("F_U", fUIdx)
		uVec    = newVec("U", uIdx)
		phiVec  = newVec("Phi_scratch", p.phiIdx)
		fPhiVec = newVec("F_Phi", p.fPhiIdx)
		pVec    = newVec("P", pIdx)
	)
	log := utils.Logger().With(zap.String("name", p.Name))
	log.Debug("projection preconditioner solve", zap.Bool("steady_state", steadyState))

	// Velocity sub-problem, U* := inv(C + D L) F_U
	p.velocitySolver.SetHomogeneousBc(true)
	if ls, ok := p.velocitySolver.(LinearSolver); ok {
		if err := ls.SetInitialGuessNonzero(false); err != nil {
			return false, err
		}
	}
	converged, err := p.velocitySolver.SolveSystem(uVec, fUVec)
	if err != nil {
		return false, fmt.Errorf("%s: velocity sub-problem: %w", p.Name, err)
	}
	log.Debug("velocity sub-problem done", zap.Bool("converged", converged))

	// Pressure sub-problem, F_Phi := -F_P - div U*
	if err = p.mathOps.Div(p.fPhiIdx, -1, uIdx, true, -1, fPIdx); err != nil {
		return false, err
	}
	ps, ok := p.pressureSolver.(LinearSolver)
	if !ok {
		return false, fmt.Errorf("%w: %s: the pressure subdomain solver must be a linear solver",
			utils.ErrConfiguration, p.Name)
	}
	ps.SetHomogeneousBc(true)
	if err = ps.SetInitialGuessNonzero(false); err != nil {
		return false, err
	}
	if converged, err = ps.SolveSystem(phiVec, fPhiVec); err != nil {
		return false, fmt.Errorf("%s: pressure sub-problem: %w", p.Name, err)
	}
	log.Debug("pressure sub-problem done", zap.Bool("converged", converged))

	dU := uCoefs.GetDConstant()
	if steadyState {
		err = p.pressureDataOps.Scale(pIdx, -dU, p.fPhiIdx)
	} else {
		err = p.pressureDataOps.LinearSum(pIdx, 1/dt, p.phiIdx, -dU, p.fPhiIdx)
	}
	if err != nil {
		return false, err
	}

	// Velocity correction, U := U* + coef grad Phi
	coef := -1.0
	if !steadyState {
		coef = pCoefs.GetDConstant()
	}
	err = p.mathOps.Grad(uIdx, true, coef, p.phiIdx, p.phiFill, ps.SolutionTime(), 1, uIdx)
	if err != nil {
		return false, err
	}

	if err = p.correctNullspace(uVec, pVec); err != nil {
		return false, err
	}
	return true, nil
}
