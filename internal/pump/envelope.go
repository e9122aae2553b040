package pump

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Limits is the operating window of the pump at one head.
type Limits struct {
	VMin float64 `json:"v_min"`
	VMax float64 `json:"v_max"`
	PMin float64 `json:"p_min"`
	PMax float64 `json:"p_max"`
}

// Envelope interpolates the per-head operating window between the heads
// present in the data. Outside the data range the nearest head is used.
type Envelope struct {
	heads []float64

	vmin, vmax, pmin, pmax interp.PiecewiseLinear
}

const headKey = 1e6

func newEnvelope(points []Point) (*Envelope, error) {
	byHead := map[int64]*Limits{}
	for _, p := range points {
		key := int64(math.Round(p.Head * headKey))
		l, ok := byHead[key]
		if !ok {
			l = &Limits{VMin: math.Inf(1), VMax: math.Inf(-1), PMin: math.Inf(1), PMax: math.Inf(-1)}
			byHead[key] = l
		}
		l.VMin = math.Min(l.VMin, p.Voltage)
		l.VMax = math.Max(l.VMax, p.Voltage)
		l.PMin = math.Min(l.PMin, p.Power)
		l.PMax = math.Max(l.PMax, p.Power)
	}
	if len(byHead) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 distinct heads, got %d", ErrInsufficientData, len(byHead))
	}

	keys := make([]int64, 0, len(byHead))
	for k := range byHead {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	e := &Envelope{}
	var vmin, vmax, pmin, pmax []float64
	for _, k := range keys {
		l := byHead[k]
		e.heads = append(e.heads, float64(k)/headKey)
		vmin = append(vmin, l.VMin)
		vmax = append(vmax, l.VMax)
		pmin = append(pmin, l.PMin)
		pmax = append(pmax, l.PMax)
	}
	for _, f := range []struct {
		pl *interp.PiecewiseLinear
		ys []float64
	}{{&e.vmin, vmin}, {&e.vmax, vmax}, {&e.pmin, pmin}, {&e.pmax, pmax}} {
		if err := f.pl.Fit(e.heads, f.ys); err != nil {
			return nil, fmt.Errorf("envelope: %w", err)
		}
	}
	return e, nil
}

// At returns the interpolated limits at head h.
func (e *Envelope) At(h float64) Limits {
	h = math.Max(e.heads[0], math.Min(h, e.heads[len(e.heads)-1]))
	return Limits{
		VMin: e.vmin.Predict(h),
		VMax: e.vmax.Predict(h),
		PMin: e.pmin.Predict(h),
		PMax: e.pmax.Predict(h),
	}
}

// Heads returns the distinct data heads in increasing order.
func (e *Envelope) Heads() []float64 {
	return append([]float64(nil), e.heads...)
}

