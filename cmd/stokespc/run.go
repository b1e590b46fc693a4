package main

import (
	"fmt"

	"github.com/notargets/StokesPC/bc"
	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/ops"
	"github.com/notargets/StokesPC/partitions"
	"github.com/notargets/StokesPC/physics"
	"github.com/notargets/StokesPC/solvers"
	"github.com/notargets/StokesPC/stokes"
)

// Report summarises one preconditioner application
type Report struct {
	MaxDivergence float64
	MaxVelocity   float64
	MeanPressure  float64
	MaxPressure   float64
	Nullspace     bool // Whether the constant pressure mode was removed
}

func (r Report) String() string {
	return fmt.Sprintf("max|div u| = %.3e  max|u| = %.6g  mean(p) = %.3e  max|p| = %.6g  nullspace = %t",
		r.MaxDivergence, r.MaxVelocity, r.MeanPressure, r.MaxPressure, r.Nullspace)
}

type caseFields struct {
	h            *grid.Hierarchy
	u, p, fu, fp grid.FieldIndex
	div          grid.FieldIndex
	x, b         *grid.Vector
}

// Run builds the grid and the solvers of cfg, applies the preconditioner to
// the configured forcing and measures the result.
func Run(cfg *Config) (Report, error) {
	var report Report
	f, err := newCaseFields(cfg)
	if err != nil {
		return report, err
	}
	pc, open, err := newPreconditioner(cfg, f.h.Registry())
	if err != nil {
		return report, err
	}
	report.Nullspace = !open

	if err = pc.InitializeSolverState(f.x, f.b); err != nil {
		return report, err
	}
	defer pc.DeallocateSolverState()
	if _, err = pc.SolveSystem(f.x, f.b); err != nil {
		return report, err
	}

	m, err := ops.NewHierarchyMathOps("report", f.h, 0, 0)
	if err != nil {
		return report, err
	}
	if err = m.Div(f.div, 1, f.u, true, 0, grid.InvalidField); err != nil {
		return report, err
	}
	cellOps := ops.NewCellDataOps(f.h, 0, 0)
	if report.MaxDivergence, err = cellOps.MaxNorm(f.div); err != nil {
		return report, err
	}
	if report.MeanPressure, err = cellOps.Mean(f.p); err != nil {
		return report, err
	}
	if report.MaxPressure, err = cellOps.MaxNorm(f.p); err != nil {
		return report, err
	}
	report.MaxVelocity, err = ops.NewSideDataOps(f.h, 0, 0).MaxNorm(f.u)
	return report, err
}

func newCaseFields(cfg *Config) (*caseFields, error) {
	strategy, err := partitions.ParseStrategy(cfg.Grid.Partition)
	if err != nil {
		return nil, err
	}
	r := grid.NewRegistry()
	h, err := grid.NewUniformHierarchy(r, cfg.Grid.XLo, cfg.Grid.XHi,
		grid.IntVector(cfg.Grid.Cells), grid.IntVector(cfg.Grid.Tile), cfg.Grid.Workers, strategy)
	if err != nil {
		return nil, err
	}
	f := &caseFields{h: h}
	for _, field := range []struct {
		idx  *grid.FieldIndex
		name string
		kind grid.Kind
	}{
		{&f.u, "u", grid.Side}, {&f.p, "p", grid.Cell},
		{&f.fu, "f_u", grid.Side}, {&f.fp, "f_p", grid.Cell},
		{&f.div, "div_u", grid.Cell},
	} {
		if *field.idx, err = r.Register(field.name, field.kind, 1); err != nil {
			return nil, err
		}
		if err = h.Level(0).AllocatePatchData(*field.idx); err != nil {
			return nil, err
		}
	}
	f.x = grid.NewVector("x", h, 0, 0).AddComponent(f.u).AddComponent(f.p)
	f.b = grid.NewVector("b", h, 0, 0).AddComponent(f.fu).AddComponent(f.fp)

	sideOps := ops.NewSideDataOps(h, 0, 0)
	cellOps := ops.NewCellDataOps(h, 0, 0)
	if err = sideOps.SetToScalar(f.u, 0); err != nil {
		return nil, err
	}
	if err = cellOps.SetToScalar(f.p, 0); err != nil {
		return nil, err
	}
	if err = cellOps.SetToScalar(f.fp, cfg.Forcing.P); err != nil {
		return nil, err
	}
	for _, patch := range h.Level(0).Patches {
		s := patch.SideData(f.fu)
		for axis := 0; axis < h.Dim(); axis++ {
			axis := axis
			var v float64
			if axis < len(cfg.Forcing.U) {
				v = cfg.Forcing.U[axis]
			}
			patch.Box.SideBox(axis).ForEach(func(i grid.IntVector) { s.Set(axis, i, v) })
		}
	}
	return f, nil
}

// newPreconditioner wires dense inner solvers to the boundary conditions of
// cfg. open reports that some boundary prescribes traction, which pins the
// pressure level.
func newPreconditioner(cfg *Config, r *grid.Registry) (*stokes.ProjectionPreconditioner, bool, error) {
	dim := cfg.Dim()
	physical, err := bc.BuildPhysicalCoefs(dim, cfg.Boundaries)
	if err != nil {
		return nil, false, err
	}
	problem := cfg.Physics
	velocity, err := bc.NewVelocityCoefsSet(&problem, physical)
	if err != nil {
		return nil, false, err
	}
	uBcCoefs := make([]bc.Strategy, dim)
	for d := range velocity {
		uBcCoefs[d] = velocity[d]
	}
	pBcCoef, open, err := bc.BuildPressureCoef(dim, cfg.Boundaries)
	if err != nil {
		return nil, false, err
	}

	pc, err := stokes.NewProjectionPreconditioner(cfg.Name, r)
	if err != nil {
		return nil, false, err
	}
	uProblem := physics.VelocityProblem("u", problem, cfg.Time.Dt)
	pProblem := physics.PressureProblem("p", problem, cfg.Time.Dt)
	pc.SetVelocitySubdomainSolver(solvers.NewHelmholtzSolver(cfg.Name+"::velocity", uProblem, nil))
	pc.SetPressureSubdomainSolver(solvers.NewPoissonSolver(cfg.Name+"::pressure", pProblem, nil))
	pc.SetVelocityPoissonSpecifications(uProblem)
	pc.SetPressurePoissonSpecifications(pProblem)
	pc.SetPhysicalBcCoefs(uBcCoefs, pBcCoef)
	newTime := cfg.Time.Time
	if cfg.Time.Dt > 0 {
		newTime += cfg.Time.Dt
	}
	pc.SetTimeInterval(cfg.Time.Time, newTime)
	pc.SetSolutionTime(newTime)
	pc.SetNullspaceCorrector(&ops.ConstantNullspace{Disabled: open})
	return pc, open, nil
}
