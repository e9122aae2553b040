package model

import (
	"errors"
	"math"
)

// ReservoirParams defines the storage tank.
// Units:
// - CapacityL: litres (+Inf for an unbounded tank)
// - Price: $ (installed)
// - LifespanYears: years, 0 when the tank outlives the system
type ReservoirParams struct {
	CapacityL     float64
	Price         float64
	LifespanYears float64
}

// ReservoirState captures mutable state.
type ReservoirState struct {
	// VolumeL is the stored volume in litres.
	VolumeL float64
}

// Reservoir is a convenience wrapper bundling params + state.
type Reservoir struct {
	Params ReservoirParams
	State  ReservoirState
}

func NewReservoir(params ReservoirParams, initialVolumeL float64) (*Reservoir, error) {
	r := &Reservoir{
		Params: params,
		State:  ReservoirState{VolumeL: initialVolumeL},
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reservoir) Validate() error {
	p := r.Params
	if math.IsNaN(p.CapacityL) || p.CapacityL <= 0 {
		return errors.New("CapacityL must be > 0")
	}
	if math.IsNaN(r.State.VolumeL) || math.IsInf(r.State.VolumeL, 0) {
		return errors.New("initial volume must be finite")
	}
	if r.State.VolumeL < 0 || r.State.VolumeL > p.CapacityL {
		return errors.New("initial volume must be within [0, CapacityL]")
	}
	if p.Price < 0 {
		return errors.New("Price must be >= 0")
	}
	if p.LifespanYears < 0 {
		return errors.New("LifespanYears must be >= 0")
	}
	return nil
}

// ReservoirStep captures what happened to the tank in one interval. All
// volumes are in litres.
type ReservoirStep struct {
	VolumeStart float64
	VolumeEnd   float64
	Pumped      float64
	Consumed    float64 // demand actually served
	Overflow    float64 // pumped water discarded because the tank was full
	Deficit     float64 // demand that could not be served
}

// Apply folds one interval into the tank state, enforcing:
// - storage floors at 0 (unserved demand becomes Deficit)
// - storage ceils at CapacityL (excess becomes Overflow)
//
// A NaN pumped volume (unresolved timestep) counts as nothing pumped.
func (r *Reservoir) Apply(pumpedL, demandL float64) ReservoirStep {
	if math.IsNaN(pumpedL) || pumpedL < 0 {
		pumpedL = 0
	}
	if math.IsNaN(demandL) || demandL < 0 {
		demandL = 0
	}
	step := ReservoirStep{
		VolumeStart: r.State.VolumeL,
		Pumped:      pumpedL,
		Consumed:    demandL,
	}

	v := r.State.VolumeL + pumpedL - demandL
	if v < 0 {
		step.Deficit = -v
		step.Consumed = demandL + v
		v = 0
	}
	if v > r.Params.CapacityL {
		step.Overflow = v - r.Params.CapacityL
		v = r.Params.CapacityL
	}
	r.State.VolumeL = v
	step.VolumeEnd = v
	return step
}

// InitialVolume resolves a starting level: "empty", "full" or a fraction of
// the capacity in [0, 1].
func InitialVolume(capacityL float64, level string, fraction float64) (float64, error) {
	switch level {
	case "", "empty":
		return 0, nil
	case "full":
		if math.IsInf(capacityL, 1) {
			return 0, errors.New("an unbounded reservoir cannot start full")
		}
		return capacityL, nil
	case "fraction":
		if fraction < 0 || fraction > 1 {
			return 0, errors.New("initial fraction must be within [0, 1]")
		}
		if math.IsInf(capacityL, 1) {
			if fraction == 0 {
				return 0, nil
			}
			return 0, errors.New("an unbounded reservoir needs an explicit volume, not a fraction")
		}
		return capacityL * fraction, nil
	default:
		return 0, errors.New("initial level must be one of empty, full, fraction")
	}
}
