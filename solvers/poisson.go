package solvers

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/notargets/StokesPC/bc"
	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/ops"
	"github.com/notargets/StokesPC/physics"
	"github.com/notargets/StokesPC/utils"
)

// PoissonSolver solves C*u + D*L*u = f for a cell centred u, where L is the
// standard five (or seven) point Laplacian. Physical boundaries use the
// same ghost extrapolation as ops.GhostFill, a nil strategy is homogeneous
// Neumann. C may be zero, constant or a cell field, D must be constant.
type PoissonSolver struct {
	base
	problemCoefs physics.PoissonSpecifications
	bcCoef       bc.Strategy
	systems      []*levelSystem
}

func NewPoissonSolver(name string, problemCoefs physics.PoissonSpecifications, bcCoef bc.Strategy) *PoissonSolver {
	return &PoissonSolver{
		base:         newBase(name),
		problemCoefs: problemCoefs,
		bcCoef:       bcCoef,
	}
}

// SetPoissonSpecifications replaces the operator, it takes effect at the
// next initialization.
func (s *PoissonSolver) SetPoissonSpecifications(problemCoefs physics.PoissonSpecifications) {
	s.problemCoefs = problemCoefs
}

func (s *PoissonSolver) PoissonSpecifications() physics.PoissonSpecifications { return s.problemCoefs }

func (s *PoissonSolver) SetPhysicalBcCoef(bcCoef bc.Strategy) { s.bcCoef = bcCoef }

func (s *PoissonSolver) InitializeSolverState(x, b *grid.Vector) error {
	if s.initialized {
		s.DeallocateSolverState()
	}
	if err := s.checkVectors(x, b, grid.Cell); err != nil {
		return err
	}
	if s.problemCoefs.DIsVariable() {
		return fmt.Errorf("%w: %s: variable D coefficients are not supported", utils.ErrConfiguration, s.Name)
	}
	s.systems = make([]*levelSystem, s.hierarchy.NumLevels())
	for ln := s.coarsest; ln <= s.finest; ln++ {
		sys, err := s.assemble(s.hierarchy.Level(ln))
		if err != nil {
			s.systems = nil
			return err
		}
		s.systems[ln] = sys
	}
	s.initialized = true
	utils.Logger().Debug("poisson solver initialized", zap.String("name", s.Name),
		zap.Int("coarsest", s.coarsest), zap.Int("finest", s.finest))
	return nil
}

func (s *PoissonSolver) DeallocateSolverState() {
	if !s.initialized {
		return
	}
	s.systems = nil
	s.initialized = false
}

// SolveSystem solves for x with right hand side b. An uninitialized solver
// is initialized for this call only.
func (s *PoissonSolver) SolveSystem(x, b *grid.Vector) (bool, error) {
	deallocateAtCompletion := !s.initialized
	if !s.initialized {
		if err := s.InitializeSolverState(x, b); err != nil {
			return false, err
		}
	}
	if deallocateAtCompletion {
		defer s.DeallocateSolverState()
	}
	xIdx, bIdx := x.Component(0), b.Component(0)
	for ln := s.coarsest; ln <= s.finest; ln++ {
		var (
			lvl = s.hierarchy.Level(ln)
			sys = s.systems[ln]
		)
		for _, p := range lvl.Patches {
			sys.rhs.CopyBox(p.CellData(bIdx).Array, p.Box)
		}
		err := s.boundaryTerms(lvl, func(i grid.IntVector, h, _, c float64) {
			sys.rhs.Set(i, sys.rhs.At(i)-s.problemCoefs.GetDConstant()*c/(h*h))
		})
		if err != nil {
			return false, err
		}
		sol, err := sys.solve()
		if err != nil {
			return false, fmt.Errorf("%s: level %d: %w", s.Name, ln, err)
		}
		for _, p := range lvl.Patches {
			xd := p.CellData(xIdx)
			p.Box.ForEach(func(i grid.IntVector) {
				xd.Set(i, sol[sys.row(i)])
			})
		}
	}
	return true, nil
}

func (s *PoissonSolver) assemble(lvl *grid.Level) (*levelSystem, error) {
	var (
		sys = newLevelSystem(lvl.Domain)
		d   = s.problemCoefs.GetDConstant()
		dim = lvl.Domain.Dim()
		j   = make(grid.IntVector, dim)
	)
	for _, p := range lvl.Patches {
		var cData *grid.CellData
		if s.problemCoefs.CIsVariable() {
			if cData = p.CellData(s.problemCoefs.GetCPatchDataID()); cData == nil {
				return nil, fmt.Errorf("%w: %s: C coefficient field missing on level %d",
					utils.ErrConfiguration, s.Name, lvl.Number)
			}
		}
		p.Box.ForEach(func(i grid.IntVector) {
			switch {
			case cData != nil:
				sys.add(i, i, cData.At(i))
			case s.problemCoefs.CIsConstant():
				sys.add(i, i, s.problemCoefs.GetCConstant())
			}
			for axis := 0; axis < dim; axis++ {
				h2 := lvl.Dx[axis] * lvl.Dx[axis]
				for _, side := range []int{-1, 1} {
					copy(j, i)
					j[axis] += side
					if !lvl.Domain.Contains(j) {
						continue
					}
					sys.add(i, j, d/h2)
					sys.add(i, i, -d/h2)
				}
			}
		})
	}
	neumannOnly := true
	err := s.boundaryTerms(lvl, func(i grid.IntVector, h, r, _ float64) {
		sys.add(i, i, d*(r-1)/(h*h))
		if math.Abs(r-1) > utils.Eps {
			neumannOnly = false
		}
	})
	if err != nil {
		return nil, err
	}
	steady := s.problemCoefs.CIsZero() || (s.problemCoefs.CIsConstant() && utils.EqualEps(s.problemCoefs.GetCConstant(), 0))
	sys.singular = steady && neumannOnly

	var shift float64
	for _, dx := range lvl.Dx {
		shift = math.Max(shift, math.Abs(d)/(dx*dx))
	}
	if err = sys.factorize(shift); err != nil {
		return nil, fmt.Errorf("%s: level %d: %w", s.Name, lvl.Number, err)
	}
	return sys, nil
}

// boundaryTerms calls fn for every physical boundary face with the cell
// inside it, the spacing normal to the face and the ghost relation
// ghost = r*inside + c evaluated at the solution time.
func (s *PoissonSolver) boundaryTerms(lvl *grid.Level, fn func(i grid.IntVector, h, r, c float64)) error {
	var hc bc.HomogeneousController
	if s.bcCoef != nil {
		if hc = s.bcCoef.HomogeneousControl(); hc != nil {
			hc.SetHomogeneousBc(s.homogeneous)
		}
	}
	zeroGamma := s.homogeneous && hc == nil
	for _, p := range lvl.Patches {
		for _, bdry := range lvl.PhysicalCodim1Boxes()[p.ID] {
			bdry := bdry
			var (
				h     = lvl.Dx[bdry.NormalAxis()]
				coefs *bc.Coefficients
			)
			if s.bcCoef != nil {
				coefs = bc.NewCoefficients(bdry.Box)
				if err := s.bcCoef.SetBcCoefs(coefs, p, bdry, s.solutionTime); err != nil {
					return err
				}
			}
			var err error
			bdry.Box.ForEach(func(f grid.IntVector) {
				if err != nil {
					return
				}
				alpha, beta, gamma := 0.0, 1.0, 0.0
				if coefs != nil {
					alpha, beta, gamma = coefs.Alpha.At(f), coefs.Beta.At(f), coefs.Gamma.At(f)
				}
				if zeroGamma {
					gamma = 0
				}
				r, c, e := ops.RobinGhostFactor(alpha, beta, gamma, h)
				if e != nil {
					err = fmt.Errorf("%s: level %d face %v: %w", s.Name, lvl.Number, f, e)
					return
				}
				fn(bdry.InteriorCell(f), h, r, c)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
