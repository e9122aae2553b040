package pvgen

import "math"

const (
	RackingOpenRack      = "open_rack"
	RackingCloseMount    = "close_mount"
	RackingInsulatedBack = "insulated_back"
)

// tempModel holds Sandia (SAPM) cell temperature coefficients for glass/cell/
// polymer modules.
type tempModel struct {
	a, b, deltaT float64
}

var racking = map[string]tempModel{
	RackingOpenRack:      {a: -3.56, b: -0.075, deltaT: 3},
	RackingCloseMount:    {a: -2.98, b: -0.0471, deltaT: 1},
	RackingInsulatedBack: {a: -2.81, b: -0.0455, deltaT: 0},
}

// RackingModels lists the supported mounting configurations.
func RackingModels() []string {
	return []string{RackingOpenRack, RackingCloseMount, RackingInsulatedBack}
}

// cellTemperature returns the cell temperature in °C for an in-plane
// irradiance in W/m², ambient temperature in °C and wind speed in m/s.
func (m tempModel) cellTemperature(poa, tempAir, wind float64) float64 {
	if poa <= 0 {
		return tempAir
	}
	module := poa*math.Exp(m.a+m.b*wind) + tempAir
	return module + poa/1000*m.deltaT
}
