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

// HelmholtzSolver solves C*u + D*L*u = f for a staggered velocity u, one
// dense system per component. Normal boundary faces with Dirichlet data
// take their value from the physical boundary helper, faces with Neumann
// data use a reflected ghost face. Tangential boundaries use the ghost cell
// extrapolation of ops.GhostFill.
type HelmholtzSolver struct {
	base
	problemCoefs physics.PoissonSpecifications
	bcCoefs      []bc.Strategy
	helper       *bc.PhysicalBoundaryHelper
	systems      [][]*levelSystem // Indexed by level then axis
	fixed        [][][]bool       // Dirichlet rows per level and axis
}

func NewHelmholtzSolver(name string, problemCoefs physics.PoissonSpecifications, bcCoefs []bc.Strategy) *HelmholtzSolver {
	return &HelmholtzSolver{
		base:         newBase(name),
		problemCoefs: problemCoefs,
		bcCoefs:      bcCoefs,
		helper:       bc.NewPhysicalBoundaryHelper(),
	}
}

func (s *HelmholtzSolver) SetPoissonSpecifications(problemCoefs physics.PoissonSpecifications) {
	s.problemCoefs = problemCoefs
}

func (s *HelmholtzSolver) PoissonSpecifications() physics.PoissonSpecifications {
	return s.problemCoefs
}

func (s *HelmholtzSolver) SetPhysicalBcCoefs(bcCoefs []bc.Strategy) { s.bcCoefs = bcCoefs }

func (s *HelmholtzSolver) InitializeSolverState(x, b *grid.Vector) error {
	if s.initialized {
		s.DeallocateSolverState()
	}
	if err := s.checkVectors(x, b, grid.Side); err != nil {
		return err
	}
	if len(s.bcCoefs) != s.hierarchy.Dim() {
		return fmt.Errorf("%w: %s: %d boundary strategies for dimension %d",
			utils.ErrConfiguration, s.Name, len(s.bcCoefs), s.hierarchy.Dim())
	}
	if s.problemCoefs.CIsVariable() || s.problemCoefs.DIsVariable() {
		return fmt.Errorf("%w: %s: variable coefficients are not supported", utils.ErrConfiguration, s.Name)
	}
	if err := bc.SetupBcCoefObjects(s.bcCoefs, nil, x.Component(0), grid.InvalidField, s.homogeneous); err != nil {
		return err
	}
	defer bc.ResetBcCoefObjects(s.bcCoefs, nil)

	s.helper.CacheBcCoefData(s.hierarchy)
	s.systems = make([][]*levelSystem, s.hierarchy.NumLevels())
	s.fixed = make([][][]bool, s.hierarchy.NumLevels())
	for ln := s.coarsest; ln <= s.finest; ln++ {
		lvl := s.hierarchy.Level(ln)
		for axis := 0; axis < lvl.Domain.Dim(); axis++ {
			sys, fixed, err := s.assemble(lvl, axis)
			if err != nil {
				s.systems, s.fixed = nil, nil
				s.helper.ClearBcCoefData()
				return err
			}
			s.systems[ln] = append(s.systems[ln], sys)
			s.fixed[ln] = append(s.fixed[ln], fixed)
		}
	}
	s.initialized = true
	utils.Logger().Debug("helmholtz solver initialized", zap.String("name", s.Name),
		zap.Int("coarsest", s.coarsest), zap.Int("finest", s.finest))
	return nil
}

func (s *HelmholtzSolver) DeallocateSolverState() {
	if !s.initialized {
		return
	}
	s.systems, s.fixed = nil, nil
	s.helper.ClearBcCoefData()
	s.initialized = false
}

// SolveSystem solves for x with right hand side b. An uninitialized solver
// is initialized for this call only.
func (s *HelmholtzSolver) SolveSystem(x, b *grid.Vector) (bool, error) {
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
		err := s.helper.EnforceNormalVelocityBoundaryConditions(xIdx, grid.InvalidField, s.bcCoefs,
			s.solutionTime, s.homogeneous, ln, ln)
		if err != nil {
			return false, err
		}
		if err = s.solveLevel(s.hierarchy.Level(ln), xIdx, bIdx); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *HelmholtzSolver) solveLevel(lvl *grid.Level, xIdx, bIdx grid.FieldIndex) error {
	if err := bc.SetupBcCoefObjects(s.bcCoefs, nil, xIdx, grid.InvalidField, s.homogeneous); err != nil {
		return err
	}
	defer bc.ResetBcCoefObjects(s.bcCoefs, nil)

	d := s.problemCoefs.GetDConstant()
	for axis, sys := range s.systems[lvl.Number] {
		axis, sys := axis, sys
		for _, p := range lvl.Patches {
			sys.rhs.CopyBox(p.SideData(bIdx).Arrays[axis], p.Box.SideBox(axis))
		}
		err := s.boundaryTerms(lvl, axis, func(f grid.IntVector, t faceTerm) {
			switch {
			case t.fixed:
			case t.normal:
				sys.rhs.Set(f, sys.rhs.At(f)-2*d*t.c/t.h)
			default:
				sys.rhs.Set(f, sys.rhs.At(f)-d*t.c/(t.h*t.h))
			}
		})
		if err != nil {
			return err
		}
		fixed := s.fixed[lvl.Number][axis]
		for _, p := range lvl.Patches {
			xd := p.SideData(xIdx)
			p.Box.SideBox(axis).ForEach(func(f grid.IntVector) {
				if fixed[sys.row(f)] {
					sys.rhs.Set(f, xd.At(axis, f))
				}
			})
		}
		sol, err := sys.solve()
		if err != nil {
			return fmt.Errorf("%s: level %d axis %d: %w", s.Name, lvl.Number, axis, err)
		}
		for _, p := range lvl.Patches {
			xd := p.SideData(xIdx)
			p.Box.SideBox(axis).ForEach(func(f grid.IntVector) {
				xd.Set(axis, f, sol[sys.row(f)])
			})
		}
	}
	return nil
}

func (s *HelmholtzSolver) assemble(lvl *grid.Level, axis int) (*levelSystem, []bool, error) {
	var (
		box   = lvl.Domain.SideBox(axis)
		sys   = newLevelSystem(box)
		fixed = make([]bool, sys.size())
		d     = s.problemCoefs.GetDConstant()
		c     float64
		dim   = box.Dim()
		j     = make(grid.IntVector, dim)
	)
	if s.problemCoefs.CIsConstant() {
		c = s.problemCoefs.GetCConstant()
	}
	// Normal boundary faces have no neighbour outside box along axis, the
	// Neumann reflection supplies it below.
	box.ForEach(func(f grid.IntVector) {
		sys.add(f, f, c)
		for t := 0; t < dim; t++ {
			h2 := lvl.Dx[t] * lvl.Dx[t]
			for _, side := range []int{-1, 1} {
				copy(j, f)
				j[t] += side
				if !box.Contains(j) {
					continue
				}
				sys.add(f, j, d/h2)
				sys.add(f, f, -d/h2)
			}
		}
	})
	dirichletLike := false
	err := s.boundaryTerms(lvl, axis, func(f grid.IntVector, t faceTerm) {
		h2 := t.h * t.h
		switch {
		case t.fixed:
			fixed[sys.row(f)] = true
			dirichletLike = true
		case t.normal:
			sys.add(f, t.in, d/h2)
			sys.add(f, f, -d/h2)
		default:
			sys.add(f, f, d*(t.r-1)/h2)
			if math.Abs(t.r-1) > utils.Eps {
				dirichletLike = true
			}
		}
	})
	if err != nil {
		return nil, nil, err
	}
	box.ForEach(func(f grid.IntVector) {
		if fixed[sys.row(f)] {
			sys.identity(f)
		}
	})
	sys.singular = utils.EqualEps(c, 0) && !dirichletLike

	var shift float64
	for _, dx := range lvl.Dx {
		shift = math.Max(shift, math.Abs(d)/(dx*dx))
	}
	if err = sys.factorize(shift); err != nil {
		return nil, nil, fmt.Errorf("%s: level %d axis %d: %w", s.Name, lvl.Number, axis, err)
	}
	return sys, fixed, nil
}

// faceTerm is the contribution of one physical boundary to the equation of
// the face it is reported for.
type faceTerm struct {
	fixed  bool           // Dirichlet normal face, u = gamma
	normal bool           // Neumann normal face, ghost face = in + 2*h*gamma
	in     grid.IntVector // Inward neighbour of a Neumann normal face
	h      float64
	r, c   float64 // Tangential ghost = r*u + c, c holds gamma on normal faces
}

// boundaryTerms reports the boundary contributions to the faces normal to
// axis. Faces that touch more than one boundary are reported once per
// boundary.
func (s *HelmholtzSolver) boundaryTerms(lvl *grid.Level, axis int, fn func(f grid.IntVector, t faceTerm)) error {
	var (
		strategy  = s.bcCoefs[axis]
		zeroGamma = s.homogeneous && strategy.HomogeneousControl() == nil
	)
	gammaAt := func(coefs *bc.Coefficients, i grid.IntVector) float64 {
		if zeroGamma {
			return 0
		}
		return coefs.Gamma.At(i)
	}
	for _, p := range lvl.Patches {
		for _, bdry := range lvl.PhysicalCodim1Boxes()[p.ID] {
			bdry := bdry
			normal := bdry.NormalAxis()
			region := bdry
			if normal != axis {
				region.Box = grid.NewBox(bdry.Box.Lo, bdry.Box.Hi)
				if p.Box.Hi[axis] == lvl.Domain.Hi[axis] {
					region.Box.Hi[axis]++
				}
			}
			coefs := bc.NewCoefficients(region.Box)
			if err := strategy.SetBcCoefs(coefs, p, region, s.solutionTime); err != nil {
				return err
			}
			var err error
			region.Box.ForEach(func(g grid.IntVector) {
				if err != nil {
					return
				}
				alpha, beta := coefs.Alpha.At(g), coefs.Beta.At(g)
				if normal == axis {
					switch {
					case utils.EqualEps(alpha, 1) && utils.EqualEps(beta, 0):
						fn(g, faceTerm{fixed: true})
					case utils.EqualEps(beta, 1) && utils.EqualEps(alpha, 0):
						in := g.Copy()
						in[axis] -= int(bdry.OutwardSign())
						fn(g, faceTerm{normal: true, in: in, h: lvl.Dx[axis], c: gammaAt(coefs, g)})
					default:
						err = fmt.Errorf("%w: %s: mixed normal coefficients alpha=%g beta=%g at %v",
							utils.ErrInvariantViolation, s.Name, alpha, beta, g)
					}
					return
				}
				h := lvl.Dx[normal]
				r, c, e := ops.RobinGhostFactor(alpha, beta, gammaAt(coefs, g), h)
				if e != nil {
					err = fmt.Errorf("%s: level %d face %v: %w", s.Name, lvl.Number, g, e)
					return
				}
				fn(bdry.InteriorCell(g), faceTerm{h: h, r: r, c: c})
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
