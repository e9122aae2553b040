package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/stephansmit/pvpumpingsystem/internal/finance"
	"github.com/stephansmit/pvpumpingsystem/internal/log"
	"github.com/stephansmit/pvpumpingsystem/internal/model"
	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

type Engine struct {
	// Workers bounds the parallel stage; <= 0 uses GOMAXPROCS.
	Workers int
}

func New(workers int) *Engine { return &Engine{Workers: workers} }

// Resolve computes the array characteristic and operating point of every
// timestep. Timesteps are independent, so they are solved in parallel and
// written back by index.
func (e *Engine) Resolve(ctx context.Context, sys *System) ([]pvgen.Characteristic, []model.OperatingPoint, error) {
	if sys == nil {
		return nil, nil, errors.New("system is nil")
	}
	n := len(sys.Records)
	if n == 0 {
		return nil, nil, pvgen.ErrNoWeather
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	chars := make([]pvgen.Characteristic, n)
	ops := make([]model.OperatingPoint, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sys.Records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chars[i] = sys.Generator.At(sys.Records[i])
			ops[i] = sys.Solver.Solve(chars[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return chars, ops, nil
}

// Run executes a simulation: the parallel operating-point stage, then the
// sequential reservoir balance, then the financial evaluation.
func (e *Engine) Run(ctx context.Context, sys *System) (*Result, error) {
	if sys == nil {
		return nil, errors.New("system is nil")
	}
	logger := log.Ctx(ctx).With(slog.String("coupling", sys.Coupling.Mode()))
	logger.Info("simulation started",
		slog.Int("timesteps", len(sys.Records)),
		slog.Bool("friction", sys.Solver.Friction),
	)

	chars, ops, err := e.Resolve(ctx, sys)
	if err != nil {
		return nil, err
	}

	tank, err := sys.Config.Reservoir.NewReservoir()
	if err != nil {
		return nil, fmt.Errorf("reservoir: %w", err)
	}

	res := &Result{
		Coupling:        sys.Coupling.Mode(),
		Ledger:          make([]LedgerRow, 0, len(ops)),
		Flow:            make([]float64, len(ops)),
		OperatingPoints: ops,
		Characteristics: chars,
	}
	for idx, op := range ops {
		ts := sys.Timesteps[idx]
		mins := ts.Minutes()
		if !op.Defined() {
			res.Unresolved++
			logger.Debug("operating point did not converge",
				slog.Int("index", idx),
				slog.Time("ts", ts.Start),
				slog.Int("iterations", op.Iterations),
			)
		}

		step := tank.Apply(op.Flow*mins, ts.DemandLpm*mins)
		res.TotalPumped += step.Pumped
		res.TotalDemand += ts.DemandLpm * mins
		res.TotalConsumed += step.Consumed
		res.TotalDeficit += step.Deficit
		res.TotalOverflow += step.Overflow
		res.SimulatedDays += mins / (24 * 60)
		res.Flow[idx] = op.Flow

		ch := chars[idx]
		res.Ledger = append(res.Ledger, LedgerRow{
			Index: idx,

			IntervalStart: ts.Start,
			IntervalEnd:   ts.Start.Add(ts.Duration),

			GHI:                 sys.Records[idx].GHI,
			POAGlobal:           ch.POA.Global(),
			EffectiveIrradiance: ch.EffectiveIrradiance,
			CellTemp:            ch.CellTemp,
			PVMaxPower:          ch.MPP().P,

			Status: op.Status,

			Flow:        op.Flow,
			Head:        op.Head,
			Voltage:     op.Voltage,
			Current:     op.Current,
			Power:       op.Power,
			PowerUnused: op.PowerUnused,
			Iterations:  op.Iterations,

			DemandL:   ts.DemandLpm * mins,
			PumpedL:   step.Pumped,
			ConsumedL: step.Consumed,

			VolumeStart: step.VolumeStart,
			VolumeEnd:   step.VolumeEnd,
			OverflowL:   step.Overflow,
			DeficitL:    step.Deficit,

			CumPumpedL: res.TotalPumped,
		})
	}
	res.FinalVolume = tank.State.VolumeL

	if sys.Priced {
		fin, err := finance.Evaluate(sys.Finance, res.TotalPumped, res.SimulatedDays)
		if err != nil {
			return nil, fmt.Errorf("financial: %w", err)
		}
		res.Financial = &fin
	}

	logger.Info("simulation finished",
		slog.Float64("pumped_l", res.TotalPumped),
		slog.Float64("deficit_l", res.TotalDeficit),
		slog.Int("unresolved", res.Unresolved),
	)
	return res, nil
}
