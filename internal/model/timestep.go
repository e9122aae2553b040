package model

import "time"

// Timestep is the per-interval input of a run: when it happens, how long it
// lasts, and the water demanded over it.
type Timestep struct {
	Index    int
	Start    time.Time
	Duration time.Duration
	// DemandLpm is the consumption flow in L/min averaged over the interval.
	DemandLpm float64
}

// Minutes returns the interval length in minutes.
func (t Timestep) Minutes() float64 {
	return t.Duration.Minutes()
}

// BuildTimesteps pairs weather intervals with the consumption profile.
func BuildTimesteps(records []WeatherRecord, c Consumption) []Timestep {
	out := make([]Timestep, len(records))
	for i, r := range records {
		out[i] = Timestep{
			Index:     i,
			Start:     r.Start,
			Duration:  r.Duration,
			DemandLpm: c.FlowAt(r.Start),
		}
	}
	return out
}
