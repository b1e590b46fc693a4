package bc

import (
	"fmt"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/physics"
	"github.com/notargets/StokesPC/utils"
)

// VelocityCoefs turns the physical boundary specification of one velocity
// component into conditions on that component. Dirichlet locations (α = 1)
// pass through. Traction locations (β = 1, γ the prescribed traction) become
// Neumann conditions on the velocity:
//
//	normal component,     TRACTION:        ∂u/∂n = (g + p)/(2 mu)
//	normal component,     PSEUDO_TRACTION: ∂u/∂n = (g + p)/mu
//	tangential component:                  ∂u/∂n = g/mu
//
// where p is the pressure in the cell adjacent to the face, read only while
// a pressure field is bound and the condition is inhomogeneous.
type VelocityCoefs struct {
	StokesBase
	ExtendedBase
	comp    int
	bcCoefs []Strategy
}

// NewVelocityCoefs wraps bcCoefs, one physical strategy per component, for
// velocity component comp.
func NewVelocityCoefs(comp int, problemCoefs *physics.StokesSpecifications, bcCoefs []Strategy) (*VelocityCoefs, error) {
	if comp < 0 || comp >= len(bcCoefs) {
		return nil, fmt.Errorf("%w: component %d with %d physical strategies",
			utils.ErrConfiguration, comp, len(bcCoefs))
	}
	v := &VelocityCoefs{
		StokesBase:   NewStokesBase(),
		ExtendedBase: NewExtendedBase(),
		comp:         comp,
		bcCoefs:      bcCoefs,
	}
	if err := v.SetStokesSpecifications(problemCoefs); err != nil {
		return nil, err
	}
	return v, nil
}

// NewVelocityCoefsSet builds one VelocityCoefs per component sharing the
// same physical strategies and problem coefficients.
func NewVelocityCoefsSet(problemCoefs *physics.StokesSpecifications, bcCoefs []Strategy) ([]*VelocityCoefs, error) {
	set := make([]*VelocityCoefs, len(bcCoefs))
	for d := range bcCoefs {
		v, err := NewVelocityCoefs(d, problemCoefs, bcCoefs)
		if err != nil {
			return nil, err
		}
		set[d] = v
	}
	return set, nil
}

func (v *VelocityCoefs) Component() int { return v.comp }

func (v *VelocityCoefs) SetBcCoefs(coefs *Coefficients, patch *grid.Patch, region grid.BoundaryBox, fillTime float64) error {
	if v.problemCoefs == nil {
		return fmt.Errorf("%w: velocity component %d has no Stokes specifications",
			utils.ErrConfiguration, v.comp)
	}
	phys := v.bcCoefs[v.comp]
	if phys == nil {
		return fmt.Errorf("%w: velocity component %d has no physical strategy",
			utils.ErrConfiguration, v.comp)
	}
	if err := phys.SetBcCoefs(coefs, patch, region, fillTime); err != nil {
		return err
	}

	var (
		mu     = v.problemCoefs.Mu
		normal = region.NormalAxis() == v.comp
		pData  *grid.CellData
		err    error
	)
	if normal && !v.homogeneous && v.pTargetIdx != grid.InvalidField {
		if pData = patch.CellData(v.pTargetIdx); pData == nil {
			return fmt.Errorf("%w: pressure field %d not allocated on patch %d",
				utils.ErrConfiguration, v.pTargetIdx, patch.ID)
		}
	}
	coefs.Box.ForEach(func(i grid.IntVector) {
		if err != nil {
			return
		}
		var (
			beta  = coefs.Beta.At(i)
			gamma = coefs.Gamma.At(i)
		)
		if v.homogeneous {
			gamma = 0
		}
		if utils.EqualEps(beta, 1) {
			if mu == 0 {
				err = fmt.Errorf("%w: traction condition with zero viscosity", utils.ErrConfiguration)
				return
			}
			switch {
			case !normal:
				gamma /= mu
			default:
				if pData != nil {
					gamma += pData.At(region.InteriorCell(i))
				}
				if v.tractionType == Traction {
					gamma /= 2 * mu
				} else {
					gamma /= mu
				}
			}
		}
		coefs.Gamma.Set(i, gamma)
	})
	return err
}
