// Package analysis reduces simulation results to the figures used to compare
// and size installations.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/stephansmit/pvpumpingsystem/internal/finance"
	"github.com/stephansmit/pvpumpingsystem/internal/model"
	"github.com/stephansmit/pvpumpingsystem/internal/simulation"
)

// Summary is a run-level digest of a simulation.
// Volumes are in L, flows in L/min, energies in Wh.
type Summary struct {
	Coupling string `json:"coupling"`

	Timesteps    int     `json:"timesteps"`
	PumpingSteps int     `json:"pumping_steps"`
	PumpingHours float64 `json:"pumping_hours"`
	Unresolved   int     `json:"unresolved"`

	TotalPumpedL   float64 `json:"total_pumped_l"`
	TotalDemandL   float64 `json:"total_demand_l"`
	TotalDeficitL  float64 `json:"total_deficit_l"`
	TotalOverflowL float64 `json:"total_overflow_l"`
	FinalVolumeL   float64 `json:"final_volume_l"`

	// Flow statistics over the pumping timesteps only.
	PeakFlow float64 `json:"peak_flow_lpm"`
	MeanFlow float64 `json:"mean_flow_lpm"`
	P50Flow  float64 `json:"p50_flow_lpm"`
	P95Flow  float64 `json:"p95_flow_lpm"`

	// LLP is the loss of load probability: unserved over demanded volume.
	LLP float64 `json:"llp"`

	PVEnergyWh        float64 `json:"pv_energy_wh"`
	PumpEnergyWh      float64 `json:"pump_energy_wh"`
	HydraulicEnergyWh float64 `json:"hydraulic_energy_wh"`
	// PumpEfficiency is hydraulic over electrical energy at the pump.
	PumpEfficiency float64 `json:"pump_efficiency"`
	// SystemEfficiency is hydraulic energy over the array's maximum output.
	SystemEfficiency float64 `json:"system_efficiency"`

	Financial *finance.Result `json:"financial,omitempty"`
}

func Summarize(res *simulation.Result) Summary {
	s := Summary{}
	if res == nil {
		return s
	}
	s.Coupling = res.Coupling
	s.Timesteps = len(res.Ledger)
	s.Unresolved = res.Unresolved
	s.TotalPumpedL = res.TotalPumped
	s.TotalDemandL = res.TotalDemand
	s.TotalDeficitL = res.TotalDeficit
	s.TotalOverflowL = res.TotalOverflow
	s.FinalVolumeL = res.FinalVolume
	s.Financial = res.Financial
	if s.TotalDemandL > 0 {
		s.LLP = s.TotalDeficitL / s.TotalDemandL
	}

	flows := make([]float64, 0, len(res.Ledger))
	for _, r := range res.Ledger {
		hours := r.IntervalEnd.Sub(r.IntervalStart).Hours()
		if r.PVMaxPower > 0 {
			s.PVEnergyWh += r.PVMaxPower * hours
		}
		if r.Status != model.StatusPumping {
			continue
		}
		s.PumpingSteps++
		s.PumpingHours += hours
		flows = append(flows, r.Flow)
		s.PumpEnergyWh += r.Power * hours
		s.HydraulicEnergyWh += model.WaterDensity * model.Gravity * r.Flow / 60000 * r.Head * hours
	}

	if len(flows) > 0 {
		sort.Float64s(flows)
		s.PeakFlow = floats.Max(flows)
		s.MeanFlow = stat.Mean(flows, nil)
		s.P50Flow = stat.Quantile(0.5, stat.LinInterp, flows, nil)
		s.P95Flow = stat.Quantile(0.95, stat.LinInterp, flows, nil)
	}
	s.PumpEfficiency = ratio(s.HydraulicEnergyWh, s.PumpEnergyWh)
	s.SystemEfficiency = ratio(s.HydraulicEnergyWh, s.PVEnergyWh)
	return s
}

func ratio(num, den float64) float64 {
	if den <= 0 || math.IsNaN(num) {
		return 0
	}
	return num / den
}
