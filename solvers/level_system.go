package solvers

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/utils"
)

// levelSystem is a dense operator whose unknowns are the indices of box, in
// box iteration order.
type levelSystem struct {
	box grid.Box
	a   *mat.Dense
	lu  mat.LU

	// rhs doubles as the index map from box to row
	rhs *grid.ArrayData

	// singular marks an operator with a constant nullspace, it is solved
	// for the zero mean solution
	singular bool
}

func newLevelSystem(box grid.Box) *levelSystem {
	n := box.NumCells()
	return &levelSystem{
		box: box,
		a:   mat.NewDense(n, n, nil),
		rhs: grid.NewArrayData(box),
	}
}

func (s *levelSystem) size() int { return len(s.rhs.Data) }

func (s *levelSystem) row(i grid.IntVector) int { return s.rhs.Offset(i) }

// add accumulates v into the coefficient of unknown j in the equation of i
func (s *levelSystem) add(i, j grid.IntVector, v float64) {
	r, c := s.row(i), s.row(j)
	s.a.Set(r, c, s.a.At(r, c)+v)
}

// identity replaces the equation of i by u(i) = rhs(i)
func (s *levelSystem) identity(i grid.IntVector) {
	r := s.row(i)
	for c := 0; c < s.size(); c++ {
		s.a.Set(r, c, 0)
	}
	s.a.Set(r, r, 1)
}

// factorize adds shift*e*e^T to singular operators and factors the result
func (s *levelSystem) factorize(shift float64) error {
	if s.singular {
		n := s.size()
		for r := 0; r < n; r++ {
			for c := 0; c < n; c++ {
				s.a.Set(r, c, s.a.At(r, c)+shift)
			}
		}
	}
	s.lu.Factorize(s.a)
	if cond := s.lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) {
		return fmt.Errorf("%w: level operator over %v is singular", utils.ErrConfiguration, s.box)
	}
	return nil
}

// solve solves against the gathered right hand side
func (s *levelSystem) solve() ([]float64, error) {
	n := s.size()
	b := append([]float64(nil), s.rhs.Data...)
	if s.singular {
		floats.AddConst(-floats.Sum(b)/float64(n), b)
	}
	var x mat.VecDense
	if err := s.lu.SolveVecTo(&x, false, mat.NewVecDense(n, b)); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
		utils.Logger().Warn("ill conditioned level operator",
			zap.Stringer("box", s.box), zap.Float64("condition", float64(cond)))
	}
	return x.RawVector().Data, nil
}
