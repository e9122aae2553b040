package model

import "time"

// Site is the location metadata carried by a weather file.
type Site struct {
	Name      string  `json:"name" yaml:"name"`
	Country   string  `json:"country" yaml:"country"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	// TZOffsetHours is the fixed offset of local standard time from UTC.
	TZOffsetHours float64 `json:"tz_offset_hours" yaml:"tz_offset_hours"`
	AltitudeM     float64 `json:"altitude_m" yaml:"altitude_m"`
}

// Location returns a fixed-offset zone for the site's standard time.
func (s Site) Location() *time.Location {
	return time.FixedZone("LST", int(s.TZOffsetHours*3600))
}

// WeatherRecord is one interval of meteorological data.
// Irradiance in W/m², temperature in °C, wind speed in m/s.
type WeatherRecord struct {
	// Start is the beginning of the interval the record averages over.
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`

	GHI float64 `json:"ghi"`
	DNI float64 `json:"dni"`
	DHI float64 `json:"dhi"`

	// ExtraDNI is the extraterrestrial normal irradiance; zero when the
	// source does not carry it.
	ExtraDNI float64 `json:"extra_dni"`

	TempAir   float64 `json:"temp_air"`
	WindSpeed float64 `json:"wind_speed"`
}

// Midpoint returns the centre of the interval, where solar geometry is evaluated.
func (r WeatherRecord) Midpoint() time.Time {
	return r.Start.Add(r.Duration / 2)
}

// DurationMinutes returns the interval length in minutes.
func (r WeatherRecord) DurationMinutes() float64 {
	return r.Duration.Minutes()
}

// Weather is a site plus its chronologically ordered records.
type Weather struct {
	Site    Site            `json:"site"`
	Records []WeatherRecord `json:"records"`
}

// Head returns a copy of the first n records (all of them when n <= 0).
func (w *Weather) Head(n int) []WeatherRecord {
	if w == nil {
		return nil
	}
	if n <= 0 || n > len(w.Records) {
		n = len(w.Records)
	}
	out := make([]WeatherRecord, n)
	copy(out, w.Records[:n])
	return out
}
