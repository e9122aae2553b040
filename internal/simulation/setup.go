// Package simulation wires the configured components into a run: it builds
// the system once, resolves every timestep's operating point, folds the
// pumped water through the reservoir and prices the installation.
package simulation

import (
	"fmt"

	"github.com/stephansmit/pvpumpingsystem/internal/config"
	"github.com/stephansmit/pvpumpingsystem/internal/coupling"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/finance"
	"github.com/stephansmit/pvpumpingsystem/internal/model"
	"github.com/stephansmit/pvpumpingsystem/internal/pump"
	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

// System is a fully built, immutable installation ready to simulate.
type System struct {
	Config *config.Config

	Site      model.Site
	Timesteps []model.Timestep
	Records   []model.WeatherRecord

	Array     *pvgen.Array
	Generator *pvgen.Generator
	Pump      *pump.Pump
	Coupling  coupling.Coupling
	Solver    *coupling.Solver

	Finance finance.Params
	// Priced is false when no lifespan is configured; the run then skips
	// the financial stage.
	Priced bool
}

// Setup validates the configuration and builds every component. All
// configuration errors surface here, never during a run.
func Setup(cfg *config.Config, src data.Source) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = data.Files{}
	}

	weather, err := src.Weather(cfg.WeatherFile, data.EPWOptions{CoerceYear: cfg.CoerceYear})
	if err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}
	records := weather.Head(cfg.Stop)

	array, err := pvgen.NewArray(cfg.PV.Module, cfg.PV.Array)
	if err != nil {
		return nil, fmt.Errorf("pv: %w", err)
	}
	gen, err := pvgen.NewGenerator(weather.Site, array)
	if err != nil {
		return nil, fmt.Errorf("site: %w", err)
	}
	p, err := pump.New(cfg.Pump)
	if err != nil {
		return nil, fmt.Errorf("pump: %w", err)
	}
	c, err := coupling.New(p, cfg.CouplingOptions())
	if err != nil {
		return nil, fmt.Errorf("coupling: %w", err)
	}
	solver, err := coupling.NewSolver(c, cfg.Pipes, cfg.Solver.FrictionEnabled(), cfg.Solver.Atol, cfg.Solver.MaxIter)
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	consumption, err := cfg.Consumption.ToModel()
	if err != nil {
		return nil, fmt.Errorf("consumption: %w", err)
	}

	sys := &System{
		Config:    cfg,
		Site:      weather.Site,
		Timesteps: model.BuildTimesteps(records, consumption),
		Records:   records,
		Array:     array,
		Generator: gen,
		Pump:      p,
		Coupling:  c,
		Solver:    solver,
		Finance:   financeParams(cfg, array, p, c),
	}
	if sys.Finance.Horizon() >= 1 {
		if err := sys.Finance.Validate(); err != nil {
			return nil, fmt.Errorf("financial: %w", err)
		}
		sys.Priced = true
	}
	return sys, nil
}

func financeParams(cfg *config.Config, array *pvgen.Array, p *pump.Pump, c coupling.Coupling) finance.Params {
	fp := finance.Params{
		PVPrice:           array.Price(),
		PumpPrice:         p.Price(),
		ReservoirPrice:    cfg.Reservoir.Price,
		LabourCoefficient: cfg.Financial.LabourCoefficient,
		DiscountRate:      cfg.Financial.DiscountRate,
		Opex:              cfg.Financial.Opex,
		LifespanPV:        array.Params.LifespanYears,
		LifespanPump:      p.Spec.LifespanYears,
		LifespanReservoir: cfg.Reservoir.LifespanYears,
	}
	if m, ok := c.(coupling.MPPT); ok {
		fp.MPPTPrice = m.Price
		fp.LifespanMPPT = m.LifespanYears
	}
	return fp
}
