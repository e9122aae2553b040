package coupling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephansmit/pvpumpingsystem/internal/model"
	"github.com/stephansmit/pvpumpingsystem/internal/numeric"
	"github.com/stephansmit/pvpumpingsystem/internal/pipe"
)

func TestFixedPoint(t *testing.T) {
	t.Run("contraction converges", func(t *testing.T) {
		r := FixedPoint(0, func(x float64) float64 { return 10 + 0.5*x }, 1e-6, 100)
		assert.True(t, r.Converged)
		assert.InDelta(t, 20, r.Value, 1e-5)
		assert.Greater(t, r.Iterations, 1)
	})

	t.Run("constant converges in one step", func(t *testing.T) {
		r := FixedPoint(3, func(float64) float64 { return 3 }, 0.1, 50)
		assert.True(t, r.Converged)
		assert.Equal(t, 1, r.Iterations)
	})

	t.Run("oscillation exhausts the cap", func(t *testing.T) {
		r := FixedPoint(1, func(x float64) float64 { return -x }, 0.1, 7)
		assert.False(t, r.Converged)
		assert.Equal(t, 7, r.Iterations)
	})

	t.Run("nan stops", func(t *testing.T) {
		r := FixedPoint(1, func(float64) float64 { return math.NaN() }, 0.1, 50)
		assert.False(t, r.Converged)
		assert.True(t, math.IsNaN(r.Value))
		assert.Equal(t, 1, r.Iterations)
	})
}

func TestNew(t *testing.T) {
	p := newTestPump(t, headDependentCurrent)

	c, err := New(p, Options{Mode: ModeMPPT, Efficiency: 0.96, Price: 200})
	require.NoError(t, err)
	assert.Equal(t, ModeMPPT, c.Mode())

	c, err = New(p, Options{Mode: ModeDirect})
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, c.Mode())

	_, err = New(p, Options{Mode: ModeMPPT, Efficiency: 1.2})
	assert.Error(t, err)
	_, err = New(p, Options{Mode: "hybrid"})
	assert.Error(t, err)
	_, err = New(nil, Options{Mode: ModeDirect})
	assert.Error(t, err)
}

func TestMPPTResolve(t *testing.T) {
	p := newTestPump(t, headDependentCurrent)
	m := MPPT{Pump: p, Efficiency: 0.96}

	ch := char(600, 25)
	op := m.Resolve(ch, 10)
	available := ch.MPP().P * 0.96
	assert.Equal(t, model.StatusPumping, op.Status)
	assert.InDelta(t, lawFlow(available, 10), op.Flow, 1e-6)
	assert.InDelta(t, available, op.Power+op.PowerUnused, 1e-9)
	assert.Equal(t, ch.MPP().V, op.Voltage)

	weak := m.Resolve(char(100, 25), 10)
	assert.Equal(t, model.StatusIdle, weak.Status)
	assert.Zero(t, weak.Flow)
	assert.Greater(t, weak.PowerUnused, 0.0)
}

func TestDirectResolve(t *testing.T) {
	p := newTestPump(t, headDependentCurrent)
	d := Direct{Pump: p}

	for _, irr := range []float64{200, 400, 600, 800, 1000} {
		ch := char(irr, 25)
		op := d.Resolve(ch, 10)
		require.Equal(t, model.StatusPumping, op.Status, "irradiance %.0f", irr)
		assert.InDelta(t, p.Current(op.Voltage, 10), ch.Current(op.Voltage), 1e-4)
		vmin, vmax := p.VoltageRange(10)
		assert.GreaterOrEqual(t, op.Voltage, vmin)
		assert.LessOrEqual(t, op.Voltage, vmax)
		assert.InDelta(t, p.FlowFromVoltage(op.Voltage, 10), op.Flow, 1e-9)
		assert.LessOrEqual(t, op.Power, ch.MPP().P+1e-9)
	}

	t.Run("no crossing is idle", func(t *testing.T) {
		op := d.Resolve(char(50, 25), 10)
		assert.Equal(t, model.StatusIdle, op.Status)
		assert.Zero(t, op.Flow)
	})

	t.Run("array voltage below pump window", func(t *testing.T) {
		// enough power to run the pump but no intersection inside its window
		ch := pvgen1x2(800)
		op := d.Resolve(ch, 10)
		assert.False(t, op.Defined())
		assert.Equal(t, model.StatusUnresolved, op.Status)
		assert.True(t, math.IsNaN(op.Flow))
	})

	t.Run("weak array below pump window is idle", func(t *testing.T) {
		op := d.Resolve(pvgen1x2(100), 10)
		assert.Equal(t, model.StatusIdle, op.Status)
		assert.Zero(t, op.Flow)
	})

	t.Run("head above pump range", func(t *testing.T) {
		op := d.Resolve(char(800, 25), 35)
		assert.Zero(t, op.Flow)
		assert.Equal(t, 35.0, op.Head)
	})
}

func TestDirectPicksLargestFlowCrossing(t *testing.T) {
	p := newTestPump(t, valleyCurrent)
	d := Direct{Pump: p}
	ch := char3x2(800, 25)

	vmin, vmax := p.VoltageRange(10)
	mismatch := func(v float64) float64 { return ch.Current(v) - p.Current(v, 10) }
	brackets := numeric.SignChanges(mismatch, vmin, vmax, DefaultSamples)
	require.Len(t, brackets, 2)

	var roots, flows []float64
	for _, b := range brackets {
		v, err := numeric.Brent(mismatch, b.Lo, b.Hi, 1e-9, 200)
		require.NoError(t, err)
		roots = append(roots, v)
		flows = append(flows, p.FlowFromVoltage(v, 10))
	}
	// the low-voltage crossing draws near short-circuit current
	require.Greater(t, flows[0], flows[1])

	op := d.Resolve(ch, 10)
	require.Equal(t, model.StatusPumping, op.Status)
	assert.InDelta(t, roots[0], op.Voltage, 1e-4)
	assert.InDelta(t, flows[0], op.Flow, 1e-3)
	assert.InDelta(t, ch.Current(roots[0])*roots[0], op.Power, 1e-2)
}

func TestZeroPowerGivesZeroFlow(t *testing.T) {
	p := newTestPump(t, headDependentCurrent)
	pipes := pipe.Network{StaticHead: 10, Length: 30, Diameter: 0.05}
	dark := char(0, 10)

	for _, c := range []Coupling{MPPT{Pump: p, Efficiency: 0.96}, Direct{Pump: p}} {
		for _, friction := range []bool{true, false} {
			s, err := NewSolver(c, pipes, friction, 0, 0)
			require.NoError(t, err)
			op := s.Solve(dark)
			assert.Equal(t, 0.0, op.Flow, "%s friction=%v", c.Mode(), friction)
			assert.Equal(t, model.StatusIdle, op.Status)
			assert.Equal(t, 10.0, op.Head)
		}
	}
}

func TestFlowNeverNegative(t *testing.T) {
	p := newTestPump(t, headDependentCurrent)
	pipes := pipe.Network{StaticHead: 10, Length: 30, Diameter: 0.05}
	for _, c := range []Coupling{MPPT{Pump: p, Efficiency: 0.96}, Direct{Pump: p}} {
		s, err := NewSolver(c, pipes, true, 0.1, 50)
		require.NoError(t, err)
		for irr := 0.0; irr <= 1100; irr += 50 {
			for _, temp := range []float64{-10, 25, 60} {
				op := s.Solve(char(irr, temp))
				assert.False(t, op.Flow < 0, "%s irr=%.0f temp=%.0f", c.Mode(), irr, temp)
			}
		}
	}
}

func TestMPPTFlowNonDecreasingInPower(t *testing.T) {
	p := newTestPump(t, headDependentCurrent)
	s, err := NewSolver(MPPT{Pump: p, Efficiency: 0.96}, pipe.Network{StaticHead: 10, Diameter: 0.05}, false, 0, 0)
	require.NoError(t, err)

	prevP, prevQ := 0.0, 0.0
	for irr := 0.0; irr <= 1200; irr += 25 {
		ch := char(irr, 25)
		require.GreaterOrEqual(t, ch.MPP().P, prevP)
		q := s.Solve(ch).Flow
		assert.GreaterOrEqual(t, q, prevQ, "irradiance %.0f", irr)
		prevP, prevQ = ch.MPP().P, q
	}
}

func TestFrictionNeverIncreasesFlow(t *testing.T) {
	pipes := pipe.Network{StaticHead: 10, Length: 80, Diameter: 0.03, FittingsK: 3}

	cases := []struct {
		name     string
		coupling Coupling
	}{
		{"mppt", MPPT{Pump: newTestPump(t, headDependentCurrent), Efficiency: 0.96}},
		{"direct", Direct{Pump: newTestPump(t, headFreeCurrent)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			without, err := NewSolver(tc.coupling, pipes, false, 0, 0)
			require.NoError(t, err)
			with, err := NewSolver(tc.coupling, pipes, true, 0.01, 200)
			require.NoError(t, err)

			// available power stays below the pump's maximum at these heads
			for irr := 0.0; irr <= 700; irr += 25 {
				ch := char(irr, 25)
				a := without.Solve(ch)
				b := with.Solve(ch)
				if !b.Defined() {
					continue
				}
				assert.LessOrEqual(t, b.Flow, a.Flow+1e-9, "irradiance %.0f", irr)
				assert.GreaterOrEqual(t, b.Head, a.Head)
			}
		})
	}
}

func TestNonConvergenceIsUndefined(t *testing.T) {
	p := newTestPump(t, headDependentCurrent)
	// a very thin pipe: any flow pushes the head past the pump's range, no
	// flow brings it back to static head
	pipes := pipe.Network{StaticHead: 5, Length: 50, Diameter: 0.01}
	s, err := NewSolver(MPPT{Pump: p, Efficiency: 0.96}, pipes, true, 0.1, 50)
	require.NoError(t, err)

	op := s.Solve(char(700, 25))
	assert.False(t, op.Defined())
	assert.Equal(t, model.StatusUnresolved, op.Status)
	assert.True(t, math.IsNaN(op.Flow))
	assert.Equal(t, 50, op.Iterations)

	s.Friction = false
	assert.Greater(t, s.Solve(char(700, 25)).Flow, 0.0)
}

func TestSolverConvergesWithFriction(t *testing.T) {
	p := newTestPump(t, headDependentCurrent)
	pipes := pipe.Network{StaticHead: 10, Length: 30, Diameter: 0.05}
	s, err := NewSolver(MPPT{Pump: p, Efficiency: 0.96}, pipes, true, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultAtol, s.Atol)
	assert.Equal(t, DefaultMaxIter, s.MaxIter)

	op := s.Solve(char(800, 25))
	require.True(t, op.Defined())
	assert.Greater(t, op.Flow, 0.0)
	assert.InDelta(t, pipes.TotalHead(op.Flow), op.Head, s.Atol)
	assert.GreaterOrEqual(t, op.Iterations, 2)
}

func TestNewSolverValidation(t *testing.T) {
	p := newTestPump(t, headDependentCurrent)
	_, err := NewSolver(nil, pipe.Network{Diameter: 0.05}, true, 0, 0)
	assert.Error(t, err)
	_, err = NewSolver(MPPT{Pump: p, Efficiency: 1}, pipe.Network{}, true, 0, 0)
	assert.Error(t, err)
	_, err = NewSolver(MPPT{Pump: p, Efficiency: 1}, pipe.Network{Diameter: 0.05}, true, -1, 0)
	assert.Error(t, err)
}
