package bc

import (
	"errors"
	"testing"

	"github.com/notargets/StokesPC/grid"
	"github.com/notargets/StokesPC/physics"
	"github.com/notargets/StokesPC/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityQueries(t *testing.T) {
	problem := &physics.StokesSpecifications{Mu: 1}
	phys := locationCoefs(2, func(*LocationIndexCoefs) {})
	vel, err := NewVelocityCoefs(0, problem, phys)
	require.NoError(t, err)

	tests := []struct {
		name          string
		s             Strategy
		binder, homog bool
	}{
		{"location index", NewLocationIndexCoefs("u", 2), false, false},
		{"function", NewFunctionCoefs("u", 2), false, true},
		{"velocity", vel, true, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.binder, tt.s.FieldBinder() != nil)
			assert.Equal(t, tt.homog, tt.s.HomogeneousControl() != nil)
		})
	}
}

func TestStokesBaseRequiresSpecifications(t *testing.T) {
	base := NewStokesBase()
	err := base.SetStokesSpecifications(nil)
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
	assert.Nil(t, base.StokesSpecifications())

	_, err = NewVelocityCoefs(0, nil, locationCoefs(2, func(*LocationIndexCoefs) {}))
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
	_, err = NewVelocityCoefs(2, &physics.StokesSpecifications{Mu: 1}, locationCoefs(2, func(*LocationIndexCoefs) {}))
	assert.True(t, errors.Is(err, utils.ErrConfiguration))

	assert.Equal(t, Traction, base.TractionBcType())
	base.SetTractionBcType(PseudoTraction)
	assert.Equal(t, "PSEUDO_TRACTION", base.TractionBcType().String())
}

func TestVelocityCoefsTraction(t *testing.T) {
	f := newTestFields(t)
	problem := &physics.StokesSpecifications{Mu: 0.5}
	phys := locationCoefs(2, func(l *LocationIndexCoefs) {
		l.SetBoundarySlope(1, 3) // traction on the upper x side
		l.SetBoundaryValue(0, 2)
	})
	set, err := NewVelocityCoefsSet(problem, phys)
	require.NoError(t, err)

	var (
		patch = f.h.Level(0).Patch(1)
		upper = f.h.PhysicalCodim1Boxes(0)[1][0]
		lower = f.h.PhysicalCodim1Boxes(0)[0][0]
	)
	require.Equal(t, 1, upper.LocationIndex)
	require.Equal(t, 0, lower.LocationIndex)

	evaluate := func(s Strategy, p *grid.Patch, b grid.BoundaryBox) *Coefficients {
		c := NewCoefficients(b.Box)
		require.NoError(t, s.SetBcCoefs(c, p, b, 0))
		return c
	}

	// Pressure in the cells adjacent to the upper x side is 1 + 3 = 4
	tests := []struct {
		name        string
		traction    TractionBcType
		bind        bool
		homogeneous bool
		comp        int
		want        float64
	}{
		{"normal traction unbound", Traction, false, false, 0, 3 / (2 * 0.5)},
		{"normal traction bound", Traction, true, false, 0, (3 + 4) / (2 * 0.5)},
		{"normal pseudo traction", PseudoTraction, true, false, 0, (3 + 4) / 0.5},
		{"tangential", Traction, true, false, 1, 3 / 0.5},
		{"homogeneous ignores pressure", Traction, true, true, 0, 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := set[tt.comp]
			s.SetTractionBcType(tt.traction)
			s.SetHomogeneousBc(tt.homogeneous)
			if tt.bind {
				s.SetTargetPressureIndex(f.p)
				defer s.ClearTargetPressureIndex()
			}
			c := evaluate(s, patch, upper)
			c.Box.ForEach(func(i grid.IntVector) {
				assert.Equal(t, 0.0, c.Alpha.At(i))
				assert.Equal(t, 1.0, c.Beta.At(i))
				assert.InDelta(t, tt.want, c.Gamma.At(i), 1e-14)
			})
		})
	}

	set[0].SetHomogeneousBc(false)
	c := evaluate(set[0], f.h.Level(0).Patch(0), lower)
	assert.Equal(t, []float64{2, 2, 2, 2}, c.Gamma.Data)
	assert.Equal(t, []float64{1, 1, 1, 1}, c.Alpha.Data)
}

func TestVelocityCoefsZeroViscosityTraction(t *testing.T) {
	f := newTestFields(t)
	phys := locationCoefs(2, func(l *LocationIndexCoefs) { l.SetBoundarySlope(1, 1) })
	s, err := NewVelocityCoefs(0, &physics.StokesSpecifications{}, phys)
	require.NoError(t, err)
	b := f.h.PhysicalCodim1Boxes(0)[1][0]
	err = s.SetBcCoefs(NewCoefficients(b.Box), f.h.Level(0).Patch(1), b, 0)
	assert.True(t, errors.Is(err, utils.ErrConfiguration))
}

func TestParseKindAndLocations(t *testing.T) {
	for name, want := range map[string]Kind{
		"Wall":      KindDirichlet,
		" no_slip ": KindDirichlet,
		"OUTFLOW":   KindTraction,
		"symmetry":  KindNeumann,
	} {
		k, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, want, k, name)
	}
	_, err := ParseKind("periodic")
	assert.Error(t, err)

	assert.Equal(t, "y_hi", LocationName(3))
	loc, err := ParseLocation("Z_LO", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, loc)
	_, err = ParseLocation("z_lo", 2)
	assert.Error(t, err)
}

func TestBuildPhysicalCoefs(t *testing.T) {
	coefs, err := BuildPhysicalCoefs(2, map[string]LocationSpec{
		"y_hi": {Type: "dirichlet", Values: []float64{1}},
		"x_hi": {Type: "traction", Values: []float64{0.5, -0.5}},
	})
	require.NoError(t, err)
	require.Len(t, coefs, 2)

	ux := coefs[0].(*LocationIndexCoefs)
	uy := coefs[1].(*LocationIndexCoefs)
	a, b, g := ux.Coefs(3)
	assert.Equal(t, []float64{1, 0, 1}, []float64{a, b, g})
	a, b, g = uy.Coefs(3)
	assert.Equal(t, []float64{1, 0, 0}, []float64{a, b, g})
	a, b, g = uy.Coefs(1)
	assert.Equal(t, []float64{0, 1, -0.5}, []float64{a, b, g})
	a, b, g = ux.Coefs(0)
	assert.Equal(t, []float64{1, 0, 0}, []float64{a, b, g})

	_, err = BuildPhysicalCoefs(2, map[string]LocationSpec{"x_lo": {Type: "wall", Values: []float64{1, 2, 3}}})
	assert.Error(t, err)
	_, err = BuildPhysicalCoefs(2, map[string]LocationSpec{"x_lo": {Type: "robin"}})
	assert.Error(t, err)
}

func TestBuildPressureCoef(t *testing.T) {
	coef, open, err := BuildPressureCoef(2, map[string]LocationSpec{"x_lo": {Type: "wall"}})
	require.NoError(t, err)
	assert.False(t, open)
	for loc := 0; loc < 4; loc++ {
		a, b, g := coef.Coefs(loc)
		assert.Equal(t, []float64{0, 1, 0}, []float64{a, b, g}, LocationName(loc))
	}

	coef, open, err = BuildPressureCoef(2, map[string]LocationSpec{"x_hi": {Type: "outflow", Values: []float64{2}}})
	require.NoError(t, err)
	assert.True(t, open)
	a, b, g := coef.Coefs(1)
	assert.Equal(t, []float64{1, 0, 0}, []float64{a, b, g})

	_, _, err = BuildPressureCoef(2, map[string]LocationSpec{"w_lo": {Type: "wall"}})
	assert.Error(t, err)
}
