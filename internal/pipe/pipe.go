// Package pipe computes the head lost to friction in the delivery pipe.
package pipe

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	gravity = 9.81
	// kinematic viscosity of water at about 20 °C, m²/s
	viscosity = 1.0e-6

	reLaminar   = 2000.0
	reTurbulent = 4000.0
)

// roughness holds absolute roughness in m: {optimistic, pessimistic}.
var roughness = map[string][2]float64{
	"plastic":    {1.5e-6, 7e-6},
	"copper":     {1.5e-6, 1e-5},
	"steel":      {4.5e-5, 9e-5},
	"galvanized": {1.5e-4, 2.6e-4},
	"concrete":   {3e-4, 3e-3},
	"cast_iron":  {2.6e-4, 8e-4},
}

// Materials returns the supported pipe materials, sorted.
func Materials() []string {
	out := make([]string, 0, len(roughness))
	for m := range roughness {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Network is a single delivery pipe between the well and the reservoir.
// Lengths and heads are in m.
type Network struct {
	StaticHead float64 `json:"static_head" yaml:"static_head"`
	Length     float64 `json:"length" yaml:"length"`
	Diameter   float64 `json:"diameter" yaml:"diameter"`
	Material   string  `json:"material" yaml:"material"`
	// Optimism selects the low end of the material's roughness range.
	Optimism bool `json:"optimism" yaml:"optimism"`
	// FittingsK is the summed minor loss coefficient of elbows and valves.
	FittingsK float64 `json:"fittings_k" yaml:"fittings_k"`
}

// Validate checks the network and fills in the default material.
func (n *Network) Validate() error {
	if n.Material == "" {
		n.Material = "plastic"
	}
	if _, ok := roughness[n.Material]; !ok {
		return fmt.Errorf("unknown pipe material %q", n.Material)
	}
	switch {
	case math.IsNaN(n.StaticHead) || n.StaticHead < 0:
		return errors.New("static_head must be >= 0")
	case n.Length < 0:
		return errors.New("pipe length must be >= 0")
	case n.Diameter <= 0:
		return errors.New("pipe diameter must be > 0")
	case n.FittingsK < 0:
		return errors.New("fittings_k must be >= 0")
	}
	return nil
}

// Roughness returns the absolute roughness used, in m.
func (n Network) Roughness() float64 {
	r, ok := roughness[n.Material]
	if !ok {
		r = roughness["plastic"]
	}
	if n.Optimism {
		return r[0]
	}
	return r[1]
}

// Velocity returns the mean velocity in m/s for a flow in L/min.
func (n Network) Velocity(flowLpm float64) float64 {
	area := math.Pi * n.Diameter * n.Diameter / 4
	return flowLpm / 60000 / area
}

// FrictionFactor returns the Darcy friction factor at Reynolds number re.
func (n Network) FrictionFactor(re float64) float64 {
	switch {
	case re <= 0:
		return 0
	case re < reLaminar:
		return 64 / re
	case re > reTurbulent:
		return swameeJain(re, n.Roughness()/n.Diameter)
	}
	w := (re - reLaminar) / (reTurbulent - reLaminar)
	return (1-w)*64/re + w*swameeJain(re, n.Roughness()/n.Diameter)
}

func swameeJain(re, relRough float64) float64 {
	l := math.Log10(relRough/3.7 + 5.74/math.Pow(re, 0.9))
	return 0.25 / (l * l)
}

// FrictionHead returns the head lost in the pipe and fittings at a flow in
// L/min: Darcy-Weisbach plus minor losses. It is 0 for no flow.
func (n Network) FrictionHead(flowLpm float64) float64 {
	if math.IsNaN(flowLpm) || flowLpm <= 0 {
		return 0
	}
	v := n.Velocity(flowLpm)
	re := v * n.Diameter / viscosity
	dyn := v * v / (2 * gravity)
	return n.FrictionFactor(re)*n.Length/n.Diameter*dyn + n.FittingsK*dyn
}

// TotalHead is the static head plus friction.
func (n Network) TotalHead(flowLpm float64) float64 {
	return n.StaticHead + n.FrictionHead(flowLpm)
}
