package pvgen

import (
	"math"
	"time"
)

// SolarPosition is the apparent position of the sun, in degrees.
type SolarPosition struct {
	Zenith float64
	// Azimuth is measured clockwise from north.
	Azimuth float64
}

// Elevation returns 90 - zenith.
func (s SolarPosition) Elevation() float64 { return 90 - s.Zenith }

func julianDay(t time.Time) float64 {
	return 2440587.5 + float64(t.UnixNano())/86400e9
}

func fixAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// Sun computes the solar position at t (any zone) for a site using the NOAA
// spreadsheet algorithm. Refraction is ignored.
func Sun(t time.Time, latitude, longitude float64) SolarPosition {
	T := (julianDay(t) - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := 357.52911 + T*(35999.05029-0.0001537*T)
	e := 0.016708634 - T*(0.000042037+0.0000001267*T)
	Mr := deg2rad(M)
	C := math.Sin(Mr)*(1.914602-T*(0.004817+0.000014*T)) +
		math.Sin(2*Mr)*(0.019993-0.000101*T) +
		math.Sin(3*Mr)*0.000289
	trueLong := L0 + C
	omega := 125.04 - 1934.136*T
	lambda := trueLong - 0.00569 - 0.00478*math.Sin(deg2rad(omega))

	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	eps := eps0 + 0.00256*math.Cos(deg2rad(omega))
	decl := math.Asin(math.Sin(deg2rad(eps)) * math.Sin(deg2rad(lambda)))

	y := math.Pow(math.Tan(deg2rad(eps)/2), 2)
	L0r := deg2rad(L0)
	eot := 4 * rad2deg(y*math.Sin(2*L0r)-
		2*e*math.Sin(Mr)+
		4*e*y*math.Sin(Mr)*math.Cos(2*L0r)-
		0.5*y*y*math.Sin(4*L0r)-
		1.25*e*e*math.Sin(2*Mr))

	u := t.UTC()
	utcMin := float64(u.Hour()*60+u.Minute()) + float64(u.Second())/60 + float64(u.Nanosecond())/6e10
	tst := math.Mod(utcMin+eot+4*longitude, 1440)
	if tst < 0 {
		tst += 1440
	}
	ha := tst/4 - 180

	lat := deg2rad(latitude)
	cosZ := math.Sin(lat)*math.Sin(decl) + math.Cos(lat)*math.Cos(decl)*math.Cos(deg2rad(ha))
	cosZ = math.Max(-1, math.Min(1, cosZ))
	zen := math.Acos(cosZ)

	var az float64
	denom := math.Cos(lat) * math.Sin(zen)
	if math.Abs(denom) < 1e-9 {
		az = 180
		if latitude < 0 {
			az = 0
		}
	} else {
		cosAz := (math.Sin(lat)*math.Cos(zen) - math.Sin(decl)) / denom
		cosAz = math.Max(-1, math.Min(1, cosAz))
		a := rad2deg(math.Acos(cosAz))
		if ha > 0 {
			az = fixAngle(a + 180)
		} else {
			az = fixAngle(540 - a)
		}
	}
	return SolarPosition{Zenith: rad2deg(zen), Azimuth: az}
}

// ExtraterrestrialDNI returns the normal irradiance at the top of the
// atmosphere for the day of year (Spencer, 1971).
func ExtraterrestrialDNI(t time.Time) float64 {
	b := 2 * math.Pi * float64(t.YearDay()-1) / 365
	r := 1.00011 + 0.034221*math.Cos(b) + 0.00128*math.Sin(b) +
		0.000719*math.Cos(2*b) + 0.000077*math.Sin(2*b)
	return 1366.1 * r
}
