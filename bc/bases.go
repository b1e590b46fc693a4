package bc

import (
	"fmt"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/physics"
	"github.com/notargets/StokesPC/utils"
)

type TractionBcType uint8

const (
	Traction       TractionBcType = iota // n·(-pI + mu(grad u + grad u^T)) = g
	PseudoTraction                       // n·(-pI + mu grad u) = g
)

func (t TractionBcType) String() string {
	if t == PseudoTraction {
		return "PSEUDO_TRACTION"
	}
	return "TRACTION"
}

// StokesBase gives a strategy field binding, a traction type and access to
// the Stokes problem coefficients. Embed it and call NewStokesBase.
type StokesBase struct {
	problemCoefs *physics.StokesSpecifications
	uTargetIdx   grid.FieldIndex
	pTargetIdx   grid.FieldIndex
	tractionType TractionBcType
}

func NewStokesBase() StokesBase {
	return StokesBase{
		uTargetIdx:   grid.InvalidField,
		pTargetIdx:   grid.InvalidField,
		tractionType: Traction,
	}
}

// SetStokesSpecifications attaches the problem coefficients, nil is refused
func (s *StokesBase) SetStokesSpecifications(problemCoefs *physics.StokesSpecifications) error {
	if problemCoefs == nil {
		return fmt.Errorf("%w: Stokes specifications must not be nil", utils.ErrConfiguration)
	}
	s.problemCoefs = problemCoefs
	return nil
}

func (s *StokesBase) StokesSpecifications() *physics.StokesSpecifications { return s.problemCoefs }

func (s *StokesBase) SetTargetVelocityIndex(idx grid.FieldIndex) { s.uTargetIdx = idx }
func (s *StokesBase) SetTargetPressureIndex(idx grid.FieldIndex) { s.pTargetIdx = idx }
func (s *StokesBase) ClearTargetVelocityIndex()                  { s.uTargetIdx = grid.InvalidField }
func (s *StokesBase) ClearTargetPressureIndex()                  { s.pTargetIdx = grid.InvalidField }
func (s *StokesBase) TargetVelocityIndex() grid.FieldIndex       { return s.uTargetIdx }
func (s *StokesBase) TargetPressureIndex() grid.FieldIndex       { return s.pTargetIdx }

func (s *StokesBase) SetTractionBcType(t TractionBcType) { s.tractionType = t }
func (s *StokesBase) TractionBcType() TractionBcType     { return s.tractionType }

func (s *StokesBase) FieldBinder() FieldBinder { return s }

// ExtendedBase gives a strategy homogeneous control and a target field used
// for extrapolation. Embed it and call NewExtendedBase.
type ExtendedBase struct {
	homogeneous bool
	targetIdx   grid.FieldIndex
}

func NewExtendedBase() ExtendedBase {
	return ExtendedBase{targetIdx: grid.InvalidField}
}

func (e *ExtendedBase) SetHomogeneousBc(homogeneous bool)           { e.homogeneous = homogeneous }
func (e *ExtendedBase) HomogeneousBc() bool                         { return e.homogeneous }
func (e *ExtendedBase) SetTargetPatchDataIndex(idx grid.FieldIndex) { e.targetIdx = idx }
func (e *ExtendedBase) ClearTargetPatchDataIndex()                  { e.targetIdx = grid.InvalidField }
func (e *ExtendedBase) TargetPatchDataIndex() grid.FieldIndex       { return e.targetIdx }

func (e *ExtendedBase) HomogeneousControl() HomogeneousController { return e }
