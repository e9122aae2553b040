package pvgen

import "math"

// POA is the irradiance on the plane of the array, in W/m².
type POA struct {
	// AOI is the angle of incidence of the beam, in degrees.
	AOI           float64
	Beam          float64
	SkyDiffuse    float64
	GroundDiffuse float64
}

// Global is the total in-plane irradiance.
func (p POA) Global() float64 {
	return p.Beam + p.SkyDiffuse + p.GroundDiffuse
}

// AOI returns the angle between the sun vector and the surface normal, in
// degrees.
func AOI(tilt, surfaceAzimuth float64, sun SolarPosition) float64 {
	z := deg2rad(sun.Zenith)
	tr := deg2rad(tilt)
	c := math.Cos(z)*math.Cos(tr) +
		math.Sin(z)*math.Sin(tr)*math.Cos(deg2rad(sun.Azimuth-surfaceAzimuth))
	c = math.Max(-1, math.Min(1, c))
	return rad2deg(math.Acos(c))
}

// HayDavies transposes horizontal irradiance components onto a tilted plane.
// The anisotropy index splits sky diffuse into a circumsolar part that
// follows the beam geometry and an isotropic remainder.
func HayDavies(tilt, surfaceAzimuth, albedo float64, sun SolarPosition, ghi, dni, dhi, dniExtra float64) POA {
	aoi := AOI(tilt, surfaceAzimuth, sun)
	cosAOI := math.Max(math.Cos(deg2rad(aoi)), 0)
	cosZen := math.Max(math.Cos(deg2rad(sun.Zenith)), 0.01745)
	cosTilt := math.Cos(deg2rad(tilt))

	p := POA{AOI: aoi}
	if sun.Zenith >= 90 {
		// sun below the horizon: only diffuse light reaches the plane
		p.SkyDiffuse = math.Max(dhi, 0) * (1 + cosTilt) / 2
		p.GroundDiffuse = math.Max(ghi, 0) * albedo * (1 - cosTilt) / 2
		return p
	}

	ai := 0.0
	if dniExtra > 0 {
		ai = math.Max(0, math.Min(1, dni/dniExtra))
	}
	rb := cosAOI / cosZen

	p.Beam = math.Max(dni, 0) * cosAOI
	p.SkyDiffuse = math.Max(dhi, 0) * (ai*rb + (1-ai)*(1+cosTilt)/2)
	p.GroundDiffuse = math.Max(ghi, 0) * albedo * (1 - cosTilt) / 2
	return p
}

// IAM returns the physical incidence angle modifier of the cover glass: the
// Fresnel transmittance with absorption, normalised to normal incidence.
func (g Glass) IAM(aoi float64) float64 {
	if aoi >= 90 || aoi <= -90 {
		return 0
	}
	aoi = math.Abs(aoi)
	if aoi < 1e-6 {
		return 1
	}
	return g.transmittance(deg2rad(aoi)) / g.transmittance0()
}

func (g Glass) transmittance(theta float64) float64 {
	thetaR := math.Asin(math.Sin(theta) / g.N)
	sPol := math.Pow(math.Sin(thetaR-theta), 2) / math.Pow(math.Sin(thetaR+theta), 2)
	pPol := math.Pow(math.Tan(thetaR-theta), 2) / math.Pow(math.Tan(thetaR+theta), 2)
	return math.Exp(-g.K*g.L/math.Cos(thetaR)) * (1 - (sPol+pPol)/2)
}

func (g Glass) transmittance0() float64 {
	r := (g.N - 1) / (g.N + 1)
	return math.Exp(-g.K*g.L) * (1 - r*r)
}
