package simulation

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephansmit/pvpumpingsystem/internal/config"
	"github.com/stephansmit/pvpumpingsystem/internal/coupling"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/model"
)

func exampleConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join("..", "..", "examples", "config.yaml"))
	require.NoError(t, err)
	return cfg
}

func referenceConfig(t *testing.T, mode string, friction bool) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join("..", "..", "examples", "reference.yaml"))
	require.NoError(t, err)
	cfg.Coupling.Mode = mode
	cfg.Solver.Friction = &friction
	return cfg
}

// hourly flows in L/min of the reference system, zero outside 08:00-16:00
func daylight(values ...float64) []float64 {
	out := make([]float64, 24)
	copy(out[8:], values)
	return out
}

func run(t *testing.T, cfg *config.Config, workers int) *Result {
	t.Helper()
	sys, err := Setup(cfg, data.Files{})
	require.NoError(t, err)
	res, err := New(workers).Run(context.Background(), sys)
	require.NoError(t, err)
	return res
}

func TestRunMPPTWinterDay(t *testing.T) {
	res := run(t, exampleConfig(t), 4)

	require.Len(t, res.Ledger, 24)
	require.Len(t, res.Flow, 24)
	assert.Equal(t, coupling.ModeMPPT, res.Coupling)
	assert.Zero(t, res.Unresolved)

	peak := 0
	for i, q := range res.Flow {
		if i >= 8 && i <= 15 {
			assert.Greater(t, q, 0.0, "hour %d", i)
			assert.Equal(t, model.StatusPumping, res.Ledger[i].Status, "hour %d", i)
		} else {
			assert.Zero(t, q, "hour %d", i)
			assert.Equal(t, model.StatusIdle, res.Ledger[i].Status, "hour %d", i)
		}
		if q > res.Flow[peak] {
			peak = i
		}
	}
	assert.Equal(t, 11, peak)

	for i := 8; i <= 15; i++ {
		assert.GreaterOrEqual(t, res.Ledger[i].Head, 10.0)
		assert.Less(t, res.Ledger[i].Head, 10.5)
		assert.GreaterOrEqual(t, res.Ledger[i].Iterations, 1)
	}
	// at the peak the friction loss exceeds the tolerance, so the head moves
	assert.Greater(t, res.Ledger[11].Head, 10.0)
	assert.GreaterOrEqual(t, res.Ledger[11].Iterations, 2)
	assert.Equal(t, 10.0, res.Ledger[0].Head)
}

func TestRunReservoirBalance(t *testing.T) {
	res := run(t, exampleConfig(t), 2)

	for _, r := range res.Ledger {
		assert.GreaterOrEqual(t, r.VolumeEnd, 0.0)
		assert.LessOrEqual(t, r.VolumeEnd, 5000.0)
		assert.InDelta(t, r.VolumeStart+r.PumpedL-r.ConsumedL-r.OverflowL, r.VolumeEnd, 1e-6)
		assert.InDelta(t, r.DemandL, r.ConsumedL+r.DeficitL, 1e-9)
	}

	// empty tank during the 06:00 and 07:00 demand, full by mid-afternoon,
	// then three evening hours drawn off it
	assert.InDelta(t, 1800, res.TotalDeficit, 1e-6)
	assert.InDelta(t, 5000-3*900, res.FinalVolume, 1e-6)
	assert.Greater(t, res.TotalOverflow, 0.0)
	assert.InDelta(t, res.TotalPumped, res.Ledger[23].CumPumpedL, 1e-9)
	assert.InDelta(t, 1.0, res.SimulatedDays, 1e-12)
}

func TestRunFinancial(t *testing.T) {
	res := run(t, exampleConfig(t), 0)

	require.NotNil(t, res.Financial)
	assert.InDelta(t, 3565.56, res.Financial.InitialInvestment, 1e-6)
	assert.Equal(t, 30, res.Financial.HorizonYears)
	assert.InDelta(t, 17756.26, res.Financial.NPV, 17756.26*0.01)
	assert.Greater(t, res.Financial.LCOW, 0.0)
}

func TestRunUnpricedSkipsFinancial(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.PV.Array.LifespanYears = 0
	cfg.Pump.LifespanYears = 0
	cfg.Coupling.LifespanYears = 0

	res := run(t, cfg, 1)
	assert.Nil(t, res.Financial)
}

func TestRunIsDeterministic(t *testing.T) {
	a := run(t, exampleConfig(t), 1)
	b := run(t, exampleConfig(t), 8)

	require.Len(t, b.Flow, len(a.Flow))
	for i := range a.Flow {
		assert.Equal(t, math.Float64bits(a.Flow[i]), math.Float64bits(b.Flow[i]), "index %d", i)
		assert.Equal(t, math.Float64bits(a.Ledger[i].VolumeEnd), math.Float64bits(b.Ledger[i].VolumeEnd), "index %d", i)
	}
}

func TestRunStop(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Stop = 5

	res := run(t, cfg, 2)
	assert.Len(t, res.Ledger, 5)
}

func TestRunDirectCoupling(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Coupling.Mode = coupling.ModeDirect

	res := run(t, cfg, 4)
	assert.Equal(t, coupling.ModeDirect, res.Coupling)
	for i, q := range res.Flow {
		if math.IsNaN(q) {
			continue
		}
		assert.GreaterOrEqual(t, q, 0.0, "hour %d", i)
	}
	assert.Zero(t, res.Flow[0])
}

func TestRunUnresolvedStepsDoNotAbort(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Coupling.Mode = coupling.ModeDirect
	// a needle-thin pipe: any flow pushes the head past the pump's shutoff,
	// which stops the flow and drops the head back to static
	cfg.Pipes.Diameter = 0.008

	res := run(t, cfg, 4)
	require.Len(t, res.Ledger, 24)
	assert.GreaterOrEqual(t, res.Unresolved, 1)
	assert.Equal(t, model.StatusUnresolved, res.Ledger[11].Status)

	unresolved := 0
	for i, r := range res.Ledger {
		if r.Status == model.StatusUnresolved {
			unresolved++
			assert.True(t, math.IsNaN(r.Flow), "hour %d", i)
			assert.True(t, math.IsNaN(r.Head), "hour %d", i)
			assert.Zero(t, r.PumpedL, "hour %d", i)
			continue
		}
		assert.Zero(t, r.Flow, "hour %d", i)
	}
	assert.Equal(t, res.Unresolved, unresolved)
	assert.Zero(t, res.TotalPumped)
	assert.InDelta(t, 6*900, res.TotalDeficit, 1e-6)
}

func TestRunCancelled(t *testing.T) {
	sys, err := Setup(exampleConfig(t), data.Files{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(2).Run(ctx, sys)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Pipes.Diameter = -1
	cfg.Coupling.Mode = "belt"

	_, err := Setup(cfg, data.Files{})
	var verr *config.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.GreaterOrEqual(t, len(verr.Problems), 2)
}

func TestSetupFinanceFromComponents(t *testing.T) {
	sys, err := Setup(exampleConfig(t), nil)
	require.NoError(t, err)

	assert.True(t, sys.Priced)
	assert.InDelta(t, 1080, sys.Finance.PVPrice, 1e-9)
	assert.Equal(t, 200.0, sys.Finance.MPPTPrice)
	assert.Equal(t, 1097.04, sys.Finance.PumpPrice)
	assert.Equal(t, 14.0, sys.Finance.LifespanMPPT)
	assert.Len(t, sys.Timesteps, 24)
	assert.Equal(t, 15.0, sys.Timesteps[6].DemandLpm)
	assert.Zero(t, sys.Timesteps[12].DemandLpm)
}

func TestWriteLedgerCSV(t *testing.T) {
	cfg := exampleConfig(t)
	cfg.Coupling.Mode = coupling.ModeDirect
	cfg.Pipes.Diameter = 0.008
	res := run(t, cfg, 2)

	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, WriteLedgerCSV(path, res.Ledger))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 25)
	assert.Equal(t, "index", rows[0][0])
	assert.Equal(t, "flow_lpm", rows[0][11])
	// row 0 is the header, so hour 11 is row 12
	assert.Equal(t, "NaN", rows[12][11])
	assert.Equal(t, string(model.StatusUnresolved), rows[12][10])
	assert.Equal(t, "0.000000", rows[1][11])
}

func TestWriteOperatingPointsCSV(t *testing.T) {
	sys, err := Setup(exampleConfig(t), data.Files{})
	require.NoError(t, err)
	_, ops, err := New(2).Resolve(context.Background(), sys)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "op.csv")
	require.NoError(t, WriteOperatingPointsCSV(path, sys.Timesteps, ops))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 25)
	assert.Equal(t, string(model.StatusPumping), rows[12][2])
}

func TestReferenceMPPTFlows(t *testing.T) {
	cases := []struct {
		name     string
		friction bool
		want     []float64
	}{
		{"with friction", true, daylight(34.02, 52.98, 59.32, 61.18, 44.91, 42.06, 34.50, 17.52)},
		{"without friction", false, daylight(34.06, 53.02, 59.37, 61.22, 44.95, 42.10, 34.53, 17.53)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := run(t, referenceConfig(t, coupling.ModeMPPT, tc.friction), 4)
			require.Len(t, res.Flow, 24)
			assert.Zero(t, res.Unresolved)
			for i, want := range tc.want {
				assert.InDelta(t, want, res.Flow[i], 0.1*want, "hour %d", i)
			}
		})
	}
}

func TestReferenceDirectFlows(t *testing.T) {
	want := daylight(26.7413, 28.6602, 29.1504, 29.5732, 28.6143, 28.3941, 27.3603, math.NaN())

	res := run(t, referenceConfig(t, coupling.ModeDirect, true), 4)
	require.Len(t, res.Flow, 24)
	assert.Equal(t, 1, res.Unresolved)

	peak := 0
	for i, w := range want {
		if math.IsNaN(w) {
			assert.True(t, math.IsNaN(res.Flow[i]), "hour %d", i)
			assert.Equal(t, model.StatusUnresolved, res.Ledger[i].Status)
			assert.Zero(t, res.Ledger[i].PumpedL)
			continue
		}
		assert.InDelta(t, w, res.Flow[i], w, "hour %d", i)
		if res.Flow[i] > res.Flow[peak] {
			peak = i
		}
	}
	assert.Equal(t, 11, peak)
	assert.InDelta(t, 29.6, res.Flow[11], 1.5)
}

func TestReferenceDirectOperatingPoints(t *testing.T) {
	sys, err := Setup(referenceConfig(t, coupling.ModeDirect, false), data.Files{})
	require.NoError(t, err)
	_, ops, err := New(2).Resolve(context.Background(), sys)
	require.NoError(t, err)

	pump := sys.Coupling.(coupling.Direct).Pump
	want := []struct{ v, i float64 }{
		{78.30, 3.42},
		{77.24, 2.99},
		{76.74, 2.79},
		{75.85, 2.44},
	}
	for k, w := range want {
		op := ops[11+k]
		require.Equal(t, model.StatusPumping, op.Status, "hour %d", 11+k)
		assert.InDelta(t, w.v, op.Voltage, 0.3, "hour %d", 11+k)
		assert.InDelta(t, w.i, op.Current, 0.1, "hour %d", 11+k)
		assert.InDelta(t, pump.Current(op.Voltage, 10), op.Current, 1e-3, "hour %d", 11+k)
		assert.Equal(t, 10.0, op.Head)
	}

	// enough power for the pump, but the array current at the lowest pump
	// voltage is already short
	assert.Equal(t, model.StatusUnresolved, ops[15].Status)
	assert.True(t, math.IsNaN(ops[15].Voltage))
	assert.True(t, math.IsNaN(ops[15].Current))

	for i := 16; i <= 18; i++ {
		assert.Zero(t, ops[i].Flow, "hour %d", i)
		assert.Zero(t, ops[i].Current, "hour %d", i)
		assert.Equal(t, model.StatusIdle, ops[i].Status)
	}
}
