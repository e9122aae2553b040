package pvgen

import (
	"errors"
	"fmt"
	"math"
)

// ModuleParams holds a module's datasheet values and its single-diode
// reference parameters (De Soto / CEC form, at 1000 W/m² and 25 °C).
type ModuleParams struct {
	Name         string `json:"name" yaml:"name"`
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer"`

	// STC is the nameplate power in W.
	STC   float64 `json:"stc" yaml:"stc"`
	Cells int     `json:"cells_in_series" yaml:"cells_in_series"`
	Area  float64 `json:"area_m2,omitempty" yaml:"area_m2"`

	VOC       float64 `json:"v_oc" yaml:"v_oc"`
	ISC       float64 `json:"i_sc" yaml:"i_sc"`
	VMP       float64 `json:"v_mp" yaml:"v_mp"`
	IMP       float64 `json:"i_mp" yaml:"i_mp"`
	GammaPmax float64 `json:"gamma_pmax,omitempty" yaml:"gamma_pmax"`

	// AlphaSC is the short-circuit current temperature coefficient in A/°C.
	AlphaSC float64 `json:"alpha_sc" yaml:"alpha_sc"`
	ILRef   float64 `json:"i_l_ref" yaml:"i_l_ref"`
	IORef   float64 `json:"i_o_ref" yaml:"i_o_ref"`
	// ARef is the modified ideality factor n·Ns·Vth at reference conditions.
	ARef   float64 `json:"a_ref" yaml:"a_ref"`
	RS     float64 `json:"r_s" yaml:"r_s"`
	RShRef float64 `json:"r_sh_ref" yaml:"r_sh_ref"`
}

// Validate checks that the diode parameters are usable.
func (m ModuleParams) Validate() error {
	switch {
	case m.STC <= 0:
		return errors.New("module stc must be > 0")
	case m.ILRef <= 0:
		return errors.New("module i_l_ref must be > 0")
	case m.IORef <= 0:
		return errors.New("module i_o_ref must be > 0")
	case m.ARef <= 0:
		return errors.New("module a_ref must be > 0")
	case m.RS < 0:
		return errors.New("module r_s must be >= 0")
	case m.RShRef <= 0:
		return errors.New("module r_sh_ref must be > 0")
	}
	return nil
}

// Glass describes the module cover for the physical incidence angle model.
type Glass struct {
	// K is the extinction coefficient in 1/m.
	K float64 `json:"k" yaml:"k"`
	// L is the glazing thickness in m.
	L float64 `json:"l" yaml:"l"`
	// N is the refractive index.
	N float64 `json:"n" yaml:"n"`
}

// DefaultGlass is standard 2 mm low-iron module glass.
var DefaultGlass = Glass{K: 4, L: 0.002, N: 1.526}

// ArrayParams describes the mounting, wiring and cost of the PV array.
type ArrayParams struct {
	// Tilt from horizontal and Azimuth clockwise from north, in degrees.
	Tilt    float64 `json:"tilt" yaml:"tilt"`
	Azimuth float64 `json:"azimuth" yaml:"azimuth"`
	Albedo  float64 `json:"albedo" yaml:"albedo"`

	ModulesPerString int `json:"modules_per_string" yaml:"modules_per_string"`
	Strings          int `json:"strings" yaml:"strings"`

	Glass   Glass  `json:"glass" yaml:"glass"`
	Racking string `json:"racking" yaml:"racking"`
	// LossFraction is the DC wiring/mismatch loss applied to array current.
	LossFraction float64 `json:"loss_fraction" yaml:"loss_fraction"`

	PricePerWatt  float64 `json:"price_per_watt" yaml:"price_per_watt"`
	LifespanYears float64 `json:"lifespan_years" yaml:"lifespan_years"`
}

// Array is a module type wired into strings.
type Array struct {
	Module ModuleParams
	Params ArrayParams

	temp tempModel
}

// NewArray validates the wiring and resolves the racking model.
func NewArray(module ModuleParams, params ArrayParams) (*Array, error) {
	if err := module.Validate(); err != nil {
		return nil, err
	}
	p := params
	if p.ModulesPerString < 1 || p.Strings < 1 {
		return nil, errors.New("modules_per_string and strings must be >= 1")
	}
	if p.Tilt < 0 || p.Tilt > 90 {
		return nil, fmt.Errorf("tilt %.1f out of range [0, 90]", p.Tilt)
	}
	if p.Albedo < 0 || p.Albedo > 1 {
		return nil, errors.New("albedo must be within [0, 1]")
	}
	if p.LossFraction < 0 || p.LossFraction >= 1 {
		return nil, errors.New("loss_fraction must be within [0, 1)")
	}
	if p.PricePerWatt < 0 {
		return nil, errors.New("price_per_watt must be >= 0")
	}
	if p.Glass == (Glass{}) {
		p.Glass = DefaultGlass
	}
	if p.Glass.N <= 1 || p.Glass.K < 0 || p.Glass.L < 0 {
		return nil, errors.New("glass needs n > 1 and non-negative k, l")
	}
	if p.Racking == "" {
		p.Racking = RackingOpenRack
	}
	tm, ok := racking[p.Racking]
	if !ok {
		return nil, fmt.Errorf("unknown racking model %q", p.Racking)
	}
	return &Array{Module: module, Params: p, temp: tm}, nil
}

// Modules returns the number of modules in the array.
func (a *Array) Modules() int {
	return a.Params.ModulesPerString * a.Params.Strings
}

// STCPower returns the nameplate array power in W.
func (a *Array) STCPower() float64 {
	return a.Module.STC * float64(a.Modules())
}

// Price returns the installed price of the modules.
func (a *Array) Price() float64 {
	return a.STCPower() * a.Params.PricePerWatt
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
