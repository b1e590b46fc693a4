package bc

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/utils"
)

// PhysicalBoundaryHelper imposes Dirichlet normal velocity values on the
// physical boundary of a staggered velocity field. The boundary boxes come
// from the hierarchy's cache.
type PhysicalBoundaryHelper struct {
	hierarchy *grid.Hierarchy
	codim1    []map[int][]grid.BoundaryBox
}

func NewPhysicalBoundaryHelper() *PhysicalBoundaryHelper {
	return &PhysicalBoundaryHelper{}
}

// CacheBcCoefData records the hierarchy and its boundary boxes. Call it
// again whenever the hierarchy is regridded.
func (h *PhysicalBoundaryHelper) CacheBcCoefData(hierarchy *grid.Hierarchy) {
	h.hierarchy = hierarchy
	h.codim1 = make([]map[int][]grid.BoundaryBox, hierarchy.NumLevels())
	for ln := range h.codim1 {
		h.codim1[ln] = hierarchy.PhysicalCodim1Boxes(ln)
	}
}

func (h *PhysicalBoundaryHelper) ClearBcCoefData() {
	h.hierarchy = nil
	h.codim1 = nil
}

func (h *PhysicalBoundaryHelper) Hierarchy() *grid.Hierarchy { return h.hierarchy }

// EnforceNormalVelocityBoundaryConditions overwrites the normal velocity on
// every Dirichlet boundary face of levels coarsest..finest with γ; -1 selects
// the coarsest or finest level of the hierarchy. Neumann faces are left
// alone. Strategies are bound to uIdx and pIdx for the duration of the call
// and released on every return path.
func (h *PhysicalBoundaryHelper) EnforceNormalVelocityBoundaryConditions(
	uIdx, pIdx grid.FieldIndex,
	uBcCoefs []Strategy,
	fillTime float64,
	homogeneous bool,
	coarsest, finest int,
) (err error) {
	if h.hierarchy == nil {
		return fmt.Errorf("%w: boundary helper has no hierarchy", utils.ErrConfiguration)
	}
	dim := h.hierarchy.Dim()
	if len(uBcCoefs) != dim {
		return fmt.Errorf("%w: need %d velocity boundary strategies, have %d",
			utils.ErrConfiguration, dim, len(uBcCoefs))
	}
	if coarsest == -1 {
		coarsest = 0
	}
	if finest == -1 {
		finest = h.hierarchy.FinestLevelNumber()
	}
	if coarsest < 0 || finest < coarsest || finest >= len(h.codim1) {
		return fmt.Errorf("%w: bad level range [%d, %d]", utils.ErrConfiguration, coarsest, finest)
	}

	if err = SetupBcCoefObjects(uBcCoefs, nil, uIdx, pIdx, homogeneous); err != nil {
		return err
	}
	defer ResetBcCoefObjects(uBcCoefs, nil)

	for ln := coarsest; ln <= finest; ln++ {
		lvl := h.hierarchy.Level(ln)
		var eg errgroup.Group
		for w := 0; w < lvl.NumWorkers(); w++ {
			w := w
			eg.Go(func() error {
				return h.enforceOnPatches(lvl, lvl.LocalPatches(w), uIdx, uBcCoefs, fillTime, homogeneous)
			})
		}
		if err = eg.Wait(); err != nil {
			return err
		}
	}
	utils.Logger().Debug("enforced normal velocity boundary conditions",
		zap.Int("u_idx", int(uIdx)),
		zap.Bool("homogeneous", homogeneous),
		zap.Int("coarsest", coarsest),
		zap.Int("finest", finest))
	return nil
}

func (h *PhysicalBoundaryHelper) enforceOnPatches(lvl *grid.Level, patches []*grid.Patch,
	uIdx grid.FieldIndex, uBcCoefs []Strategy, fillTime float64, homogeneous bool) error {
	for _, patch := range patches {
		patch := patch
		if !patch.TouchesRegularBoundary {
			continue
		}
		uData := patch.SideData(uIdx)
		if uData == nil {
			return fmt.Errorf("%w: velocity field %d not allocated on level %d patch %d",
				utils.ErrConfiguration, uIdx, lvl.Number, patch.ID)
		}
		for _, bdry := range h.codim1[lvl.Number][patch.ID] {
			bdry := bdry
			var (
				axis     = bdry.NormalAxis()
				strategy = uBcCoefs[axis]
				coefs    = NewCoefficients(bdry.Box)
			)
			if strategy == nil {
				return fmt.Errorf("%w: no boundary strategy for velocity component %d",
					utils.ErrConfiguration, axis)
			}
			if err := strategy.SetBcCoefs(coefs, patch, bdry, fillTime); err != nil {
				return err
			}
			zeroGamma := homogeneous && strategy.HomogeneousControl() == nil
			var err error
			bdry.Box.ForEach(func(i grid.IntVector) {
				if err != nil {
					return
				}
				alpha, beta := coefs.Alpha.At(i), coefs.Beta.At(i)
				if !utils.EqualEps(alpha+beta, 1) ||
					utils.EqualEps(alpha, 1) == utils.EqualEps(beta, 1) {
					err = fmt.Errorf("%w: level %d patch %d location %d face %v: alpha=%g beta=%g, "+
						"normal velocity conditions must be Dirichlet or Neumann",
						utils.ErrInvariantViolation, lvl.Number, patch.ID, bdry.LocationIndex, i, alpha, beta)
					return
				}
				if utils.EqualEps(alpha, 1) {
					gamma := coefs.Gamma.At(i)
					if zeroGamma {
						gamma = 0
					}
					uData.Set(axis, i, gamma)
				}
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// SetupBcCoefObjects prepares the strategies for one pass: homogeneous
// controllers forget their target and take the homogeneous flag, field
// binders are bound to the velocity and pressure fields. pBcCoef may be nil.
func SetupBcCoefObjects(uBcCoefs []Strategy, pBcCoef Strategy,
	uIdx, pIdx grid.FieldIndex, homogeneous bool) error {
	for d, s := range uBcCoefs {
		if s == nil {
			return fmt.Errorf("%w: no boundary strategy for velocity component %d",
				utils.ErrConfiguration, d)
		}
	}
	for _, s := range uBcCoefs {
		setupBcCoefObject(s, uIdx, pIdx, homogeneous)
	}
	if pBcCoef != nil {
		setupBcCoefObject(pBcCoef, uIdx, pIdx, homogeneous)
	}
	return nil
}

func setupBcCoefObject(s Strategy, uIdx, pIdx grid.FieldIndex, homogeneous bool) {
	if hc := s.HomogeneousControl(); hc != nil {
		hc.ClearTargetPatchDataIndex()
		hc.SetHomogeneousBc(homogeneous)
	}
	if fb := s.FieldBinder(); fb != nil {
		fb.SetTargetVelocityIndex(uIdx)
		fb.SetTargetPressureIndex(pIdx)
	}
}

// ResetBcCoefObjects releases the field bindings made by SetupBcCoefObjects
func ResetBcCoefObjects(uBcCoefs []Strategy, pBcCoef Strategy) {
	for _, s := range uBcCoefs {
		if s == nil {
			continue
		}
		resetBcCoefObject(s)
	}
	if pBcCoef != nil {
		resetBcCoefObject(pBcCoef)
	}
}

func resetBcCoefObject(s Strategy) {
	if fb := s.FieldBinder(); fb != nil {
		fb.ClearTargetVelocityIndex()
		fb.ClearTargetPressureIndex()
	}
}
