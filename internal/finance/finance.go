// Package finance derives the lifecycle economics of an installation: the
// initial investment, the yearly cash flows with component replacements and
// their net present value.
package finance

import (
	"errors"
	"math"
)

// Params are unit costs (in a single currency) and lifespans in years.
// A zero lifespan means the component outlives the installation.
type Params struct {
	PVPrice        float64 `json:"pv_price" yaml:"pv_price"`
	MPPTPrice      float64 `json:"mppt_price" yaml:"mppt_price"`
	PumpPrice      float64 `json:"pump_price" yaml:"pump_price"`
	ReservoirPrice float64 `json:"reservoir_price" yaml:"reservoir_price"`

	// LabourCoefficient is the installation labour as a fraction of
	// equipment cost.
	LabourCoefficient float64 `json:"labour_coefficient" yaml:"labour_coefficient"`
	DiscountRate      float64 `json:"discount_rate" yaml:"discount_rate"`
	// Opex is the yearly operating expense.
	Opex float64 `json:"opex" yaml:"opex"`

	LifespanPV        float64 `json:"lifespan_pv" yaml:"lifespan_pv"`
	LifespanMPPT      float64 `json:"lifespan_mppt" yaml:"lifespan_mppt"`
	LifespanPump      float64 `json:"lifespan_pump" yaml:"lifespan_pump"`
	LifespanReservoir float64 `json:"lifespan_reservoir" yaml:"lifespan_reservoir"`
}

func (p Params) Validate() error {
	for _, v := range []float64{p.PVPrice, p.MPPTPrice, p.PumpPrice, p.ReservoirPrice, p.LabourCoefficient, p.Opex} {
		if math.IsNaN(v) || v < 0 {
			return errors.New("prices, labour coefficient and opex must be >= 0")
		}
	}
	for _, v := range []float64{p.LifespanPV, p.LifespanMPPT, p.LifespanPump, p.LifespanReservoir} {
		if math.IsNaN(v) || v < 0 {
			return errors.New("lifespans must be >= 0")
		}
	}
	if p.DiscountRate <= -1 {
		return errors.New("discount_rate must be > -1")
	}
	if p.Horizon() < 1 {
		return errors.New("at least one lifespan must be >= 1 year")
	}
	return nil
}

// Horizon returns the evaluation period in whole years: the longest lifespan.
func (p Params) Horizon() int {
	l := math.Max(math.Max(p.LifespanPV, p.LifespanMPPT), math.Max(p.LifespanPump, p.LifespanReservoir))
	return int(math.Ceil(l))
}

// InitialInvestment is the equipment cost plus labour.
func (p Params) InitialInvestment() float64 {
	return (p.PVPrice + p.MPPTPrice + p.PumpPrice + p.ReservoirPrice) * (1 + p.LabourCoefficient)
}

// CashFlows returns the outflow of each year 0..N-1. Year 0 carries the
// investment; opex is paid at the start of every year; a component is
// replaced, labour included, at each multiple of its lifespan before the
// horizon.
func (p Params) CashFlows() []float64 {
	n := p.Horizon()
	if n < 1 {
		return nil
	}
	flows := make([]float64, n)
	flows[0] = p.InitialInvestment()
	for t := range flows {
		flows[t] += p.Opex
	}
	labour := 1 + p.LabourCoefficient
	for _, c := range []struct{ price, life float64 }{
		{p.PVPrice, p.LifespanPV},
		{p.MPPTPrice, p.LifespanMPPT},
		{p.PumpPrice, p.LifespanPump},
		{p.ReservoirPrice, p.LifespanReservoir},
	} {
		if c.life <= 0 || c.price == 0 {
			continue
		}
		for k := 1; ; k++ {
			year := int(math.Round(float64(k) * c.life))
			if year >= n {
				break
			}
			flows[year] += c.price * labour
		}
	}
	return flows
}

// NPV discounts yearly flows (year 0 undiscounted) at rate.
func NPV(rate float64, flows []float64) float64 {
	total := 0.0
	f := 1.0
	for _, v := range flows {
		total += v / f
		f *= 1 + rate
	}
	return total
}

// Result is the financial summary of an installation.
type Result struct {
	InitialInvestment float64   `json:"initial_investment"`
	NPV               float64   `json:"npv"`
	HorizonYears      int       `json:"horizon_years"`
	CashFlows         []float64 `json:"cash_flows"`
	// LifetimeVolumeM3 is the simulated volume extrapolated to the horizon.
	LifetimeVolumeM3 float64 `json:"lifetime_volume_m3"`
	// LCOW is the levelised cost of water per m³; 0 when nothing is pumped.
	LCOW float64 `json:"lcow"`
}

// Evaluate computes the financial result for a simulated volume (L) over a
// simulated duration (days).
func Evaluate(p Params, volumeL, simulatedDays float64) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	flows := p.CashFlows()
	r := Result{
		InitialInvestment: p.InitialInvestment(),
		NPV:               NPV(p.DiscountRate, flows),
		HorizonYears:      len(flows),
		CashFlows:         flows,
	}
	if simulatedDays > 0 && volumeL > 0 && !math.IsNaN(volumeL) {
		r.LifetimeVolumeM3 = volumeL / 1000 * 365 / simulatedDays * float64(r.HorizonYears)
		r.LCOW = r.NPV / r.LifetimeVolumeM3
	}
	return r, nil
}
