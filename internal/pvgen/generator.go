// Package pvgen models a PV array from weather to its per-timestep I-V
// characteristic: solar position, transposition onto the array plane,
// incidence angle losses, cell temperature and the single-diode model.
package pvgen

import (
	"errors"
	"math"

	"github.com/stephansmit/pvpumpingsystem/internal/model"
)

// ErrNoWeather is returned when a simulation is given no weather records.
var ErrNoWeather = errors.New("no weather records")

// Generator evaluates an array at a site.
type Generator struct {
	Site  model.Site
	Array *Array
}

func NewGenerator(site model.Site, array *Array) (*Generator, error) {
	if array == nil {
		return nil, errors.New("array is nil")
	}
	if site.Latitude < -90 || site.Latitude > 90 {
		return nil, errors.New("site latitude out of range")
	}
	if site.Longitude < -180 || site.Longitude > 180 {
		return nil, errors.New("site longitude out of range")
	}
	return &Generator{Site: site, Array: array}, nil
}

// At computes the array characteristic for one weather record. Solar geometry
// is evaluated at the middle of the interval.
func (g *Generator) At(rec model.WeatherRecord) Characteristic {
	p := g.Array.Params
	mid := rec.Midpoint()
	sun := Sun(mid, g.Site.Latitude, g.Site.Longitude)

	extra := rec.ExtraDNI
	if extra <= 0 {
		extra = ExtraterrestrialDNI(mid)
	}
	poa := HayDavies(p.Tilt, p.Azimuth, p.Albedo, sun, rec.GHI, rec.DNI, rec.DHI, extra)

	eff := poa.Beam*p.Glass.IAM(poa.AOI) + poa.SkyDiffuse + poa.GroundDiffuse
	if math.IsNaN(eff) || eff < 0 {
		eff = 0
	}
	cellTemp := g.Array.temp.cellTemperature(poa.Global(), rec.TempAir, rec.WindSpeed)

	c := NewCharacteristic(rec.Start, DeSoto(g.Array.Module, eff, cellTemp),
		p.ModulesPerString, p.Strings, p.LossFraction)
	c.POA = poa
	c.EffectiveIrradiance = eff
	c.CellTemp = cellTemp
	return c
}
