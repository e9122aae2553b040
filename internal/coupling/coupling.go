// Package coupling finds the operating point where the PV array, the pump and
// the pipe network agree: the electrical match between array and pump at a
// head, and the head that the resulting flow produces in the pipes.
package coupling

import (
	"errors"
	"fmt"
	"math"

	"github.com/stephansmit/pvpumpingsystem/internal/model"
	"github.com/stephansmit/pvpumpingsystem/internal/numeric"
	"github.com/stephansmit/pvpumpingsystem/internal/pump"
	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

const (
	ModeMPPT   = "mppt"
	ModeDirect = "direct"

	DefaultSamples = 100
	voltageTol     = 1e-6
	brentIter      = 100
)

// Coupling matches an array characteristic with the pump at a given head.
// The set of implementations is closed: MPPT and Direct.
type Coupling interface {
	Resolve(ch pvgen.Characteristic, head float64) model.OperatingPoint
	Mode() string
	coupling()
}

// Modes lists the supported coupling modes.
func Modes() []string { return []string{ModeMPPT, ModeDirect} }

// MPPT couples through a maximum power point tracking converter: the pump
// receives the array's maximum power times the converter efficiency.
type MPPT struct {
	Pump          *pump.Pump
	Efficiency    float64
	Price         float64
	LifespanYears float64
}

func (MPPT) coupling()    {}
func (MPPT) Mode() string { return ModeMPPT }

// Resolve reports the array side at its MPP; Power is what the pump draws.
func (m MPPT) Resolve(ch pvgen.Characteristic, head float64) model.OperatingPoint {
	mpp := ch.MPP()
	available := mpp.P * m.Efficiency
	if !(available > 0) {
		return model.ZeroPoint(head, 0)
	}
	r := m.Pump.FlowFromPower(available, head)
	if r.Flow <= 0 {
		return model.ZeroPoint(head, available)
	}
	return model.OperatingPoint{
		Flow:        r.Flow,
		Head:        head,
		Voltage:     mpp.V,
		Current:     mpp.I,
		Power:       r.PowerUsed,
		PowerUnused: r.PowerUnused,
		Status:      model.StatusPumping,
	}
}

// Direct wires the pump straight to the array: the operating voltage is where
// the array I-V curve crosses the pump's current curve.
type Direct struct {
	Pump *pump.Pump
	// Samples is the number of intervals scanned for crossings.
	Samples int
}

func (Direct) coupling()    {}
func (Direct) Mode() string { return ModeDirect }

// Resolve scans the pump's voltage window at head for crossings and keeps the
// one with the largest flow. Without a crossing the pump is idle, unless the
// array holds enough power for the pump but its current at the lowest pump
// voltage already falls short: then no intersection exists inside the window
// and the point is undefined.
func (d Direct) Resolve(ch pvgen.Characteristic, head float64) model.OperatingPoint {
	available := ch.MPP().P
	if ch.Dark() {
		return model.ZeroPoint(head, 0)
	}
	if head > d.Pump.MaxHead() {
		return model.ZeroPoint(head, available)
	}
	samples := d.Samples
	if samples < 1 {
		samples = DefaultSamples
	}

	vmin, vmax := d.Pump.VoltageRange(head)
	mismatch := func(v float64) float64 {
		return ch.Current(v) - d.Pump.Current(v, head)
	}

	bestV, bestQ := math.NaN(), 0.0
	for _, b := range numeric.SignChanges(mismatch, vmin, vmax, samples) {
		v := b.Lo
		if !b.Exact {
			var err error
			v, err = numeric.Brent(mismatch, b.Lo, b.Hi, voltageTol, brentIter)
			if err != nil {
				continue
			}
		}
		if q := d.Pump.FlowFromVoltage(v, head); q > bestQ {
			bestV, bestQ = v, q
		}
	}
	if bestQ <= 0 {
		if mismatch(vmin) < 0 && available >= d.Pump.Envelope().At(head).PMin {
			return model.UndefinedPoint(0)
		}
		return model.ZeroPoint(head, available)
	}

	i := ch.Current(bestV)
	p := bestV * i
	return model.OperatingPoint{
		Flow:        bestQ,
		Head:        head,
		Voltage:     bestV,
		Current:     i,
		Power:       p,
		PowerUnused: math.Max(available-p, 0),
		Status:      model.StatusPumping,
	}
}

// Options configures New.
type Options struct {
	Mode          string
	Efficiency    float64
	Price         float64
	LifespanYears float64
	Samples       int
}

// New builds a coupling for a fitted pump.
func New(p *pump.Pump, opts Options) (Coupling, error) {
	if p == nil {
		return nil, errors.New("pump is nil")
	}
	switch opts.Mode {
	case ModeMPPT, "":
		if !(opts.Efficiency > 0 && opts.Efficiency <= 1) {
			return nil, fmt.Errorf("mppt efficiency %.3f must be within (0, 1]", opts.Efficiency)
		}
		if opts.Price < 0 {
			return nil, errors.New("mppt price must be >= 0")
		}
		return MPPT{Pump: p, Efficiency: opts.Efficiency, Price: opts.Price, LifespanYears: opts.LifespanYears}, nil
	case ModeDirect:
		if !p.SupportsDirect() {
			return nil, fmt.Errorf("pump %q has no current data, direct coupling needs I(V, H)", p.Name())
		}
		if opts.Samples < 0 {
			return nil, errors.New("samples must be >= 0")
		}
		return Direct{Pump: p, Samples: opts.Samples}, nil
	default:
		return nil, fmt.Errorf("unknown coupling mode %q", opts.Mode)
	}
}
