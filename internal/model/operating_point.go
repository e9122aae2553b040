package model

import "math"

// OperatingPoint is the self-consistent state of PV array, pump and pipes for
// one timestep. Flow is in L/min, head in m, electrical values in V, A and W.
type OperatingPoint struct {
	Flow    float64 `json:"flow_lpm"`
	Head    float64 `json:"head_m"`
	Voltage float64 `json:"voltage_v"`
	Current float64 `json:"current_a"`
	// Power is the electrical power drawn by the pump.
	Power float64 `json:"power_w"`
	// PowerUnused is available power the pump could not absorb.
	PowerUnused float64 `json:"power_unused_w"`

	Iterations int    `json:"iterations"`
	Status     Status `json:"status"`
}

// ZeroPoint is the idle operating point at the given head: no flow, no draw.
func ZeroPoint(head, available float64) OperatingPoint {
	return OperatingPoint{
		Head:        head,
		PowerUnused: available,
		Status:      StatusIdle,
	}
}

// UndefinedPoint marks a timestep for which no stable operating point exists.
func UndefinedPoint(iterations int) OperatingPoint {
	nan := math.NaN()
	return OperatingPoint{
		Flow:       nan,
		Head:       nan,
		Voltage:    nan,
		Current:    nan,
		Power:      nan,
		Iterations: iterations,
		Status:     StatusUnresolved,
	}
}

// Defined reports whether the point carries numbers rather than the NaN sentinel.
func (p OperatingPoint) Defined() bool {
	return p.Status != StatusUnresolved && !math.IsNaN(p.Flow)
}

// HydraulicPower returns rho*g*Q*H in W.
func (p OperatingPoint) HydraulicPower() float64 {
	if !p.Defined() || p.Flow <= 0 {
		return 0
	}
	return WaterDensity * Gravity * p.Flow / 60000 * p.Head
}

const (
	// WaterDensity in kg/m³.
	WaterDensity = 1000.0
	// Gravity in m/s².
	Gravity = 9.81
)
