// Package pump turns a tabulated pump performance file into continuous
// models: flow from electrical power and head, current from voltage and head,
// and the operating envelope outside of which the pump stays idle.
package pump

import (
	"errors"
	"fmt"
	"math"

	"github.com/stephansmit/pvpumpingsystem/internal/model"
)

// ErrInsufficientData is returned when a table cannot support the fit.
var ErrInsufficientData = errors.New("insufficient pump data")

const (
	MethodArab       = "arab"
	MethodPolynomial = "polynomial"
)

// Point is one row of a performance table. Flow is in L/min, head in m.
// Power may be omitted when current is given.
type Point struct {
	Voltage float64 `json:"voltage" yaml:"voltage"`
	Head    float64 `json:"head" yaml:"head"`
	Flow    float64 `json:"flow" yaml:"flow"`
	Current float64 `json:"current,omitempty" yaml:"current"`
	Power   float64 `json:"power,omitempty" yaml:"power"`
}

// Spec is a pump as described by its data file.
type Spec struct {
	Name          string  `json:"name" yaml:"name"`
	Manufacturer  string  `json:"manufacturer,omitempty" yaml:"manufacturer"`
	Price         float64 `json:"price" yaml:"price"`
	LifespanYears float64 `json:"lifespan_years,omitempty" yaml:"lifespan_years"`
	Method        string  `json:"method,omitempty" yaml:"method"`
	Points        []Point `json:"points" yaml:"points"`
}

// Pump is a fitted pump model. It is immutable and safe for concurrent use.
type Pump struct {
	Spec Spec

	flow    *surface // Q(P, H)
	current *surface // I(V, H), nil without current data
	env     *Envelope
	hmax    float64
}

// New fits the flow, current and envelope models of a pump table.
func New(spec Spec) (*Pump, error) {
	if spec.Price < 0 {
		return nil, errors.New("pump price must be >= 0")
	}
	if spec.Method == "" {
		spec.Method = MethodArab
	}
	dp, dh := 3, 3
	switch spec.Method {
	case MethodArab:
	case MethodPolynomial:
		dp, dh = 2, 2
	default:
		return nil, fmt.Errorf("unknown pump modeling method %q", spec.Method)
	}

	points := make([]Point, 0, len(spec.Points))
	withCurrent := len(spec.Points) > 0
	for i, p := range spec.Points {
		if p.Voltage <= 0 || p.Head < 0 || p.Flow < 0 {
			return nil, fmt.Errorf("point %d: voltage must be > 0, head and flow >= 0", i)
		}
		if p.Current <= 0 {
			withCurrent = false
		}
		if p.Power <= 0 {
			if p.Current <= 0 {
				return nil, fmt.Errorf("point %d: needs current or power", i)
			}
			p.Power = p.Voltage * p.Current
		}
		points = append(points, p)
	}
	spec.Points = points

	env, err := newEnvelope(points)
	if err != nil {
		return nil, err
	}
	if heads := len(env.heads); heads <= dh {
		return nil, fmt.Errorf("%w: %s fit needs more than %d distinct heads, got %d", ErrInsufficientData, spec.Method, dh, heads)
	}

	n := len(points)
	pw, hd, q, v, c := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, p := range points {
		pw[i], hd[i], q[i], v[i], c[i] = p.Power, p.Head, p.Flow, p.Voltage, p.Current
	}

	out := &Pump{Spec: spec, env: env, hmax: env.heads[len(env.heads)-1]}
	if out.flow, err = fitSurface(pw, hd, q, dp, dh); err != nil {
		return nil, fmt.Errorf("flow fit: %w", err)
	}
	if withCurrent {
		if out.current, err = fitSurface(v, hd, c, 2, 2); err != nil {
			return nil, fmt.Errorf("current fit: %w", err)
		}
	}
	return out, nil
}

// Name returns the pump's model name.
func (p *Pump) Name() string { return p.Spec.Name }

// Price returns the pump price.
func (p *Pump) Price() float64 { return p.Spec.Price }

// MaxHead returns the highest head in the data; above it the pump is idle.
func (p *Pump) MaxHead() float64 { return p.hmax }

// Envelope exposes the operating window.
func (p *Pump) Envelope() *Envelope { return p.env }

// SupportsDirect reports whether the table carries current, which direct
// coupling needs.
func (p *Pump) SupportsDirect() bool { return p.current != nil }

// FlowRMSE is the root mean square residual of the flow fit in L/min.
func (p *Pump) FlowRMSE() float64 { return p.flow.rmse }

// Response is the pump's reaction to an available electrical power.
type Response struct {
	Flow        float64
	PowerUsed   float64
	PowerUnused float64
	Status      model.Status
}

// FlowFromPower returns the flow at power pw (W) and head h (m). Below the
// minimum power of the envelope, or above the maximum head, the pump is idle;
// above the maximum power the surplus is reported as unused.
func (p *Pump) FlowFromPower(pw, h float64) Response {
	if math.IsNaN(pw) || pw <= 0 {
		return Response{Status: model.StatusIdle}
	}
	idle := Response{PowerUnused: pw, Status: model.StatusIdle}
	if math.IsNaN(h) || h > p.hmax {
		return idle
	}
	h = math.Max(h, 0)
	lim := p.env.At(h)
	if pw < lim.PMin {
		return idle
	}
	used := math.Min(pw, lim.PMax)
	q := p.flow.eval(used, h)
	if !(q > 0) {
		return idle
	}
	return Response{
		Flow:        q,
		PowerUsed:   used,
		PowerUnused: pw - used,
		Status:      model.StatusPumping,
	}
}

// VoltageRange returns the voltage window at head h.
func (p *Pump) VoltageRange(h float64) (float64, float64) {
	lim := p.env.At(math.Max(h, 0))
	return lim.VMin, lim.VMax
}

// Current returns the current drawn at voltage v and head h, or 0 when the
// table carries no current.
func (p *Pump) Current(v, h float64) float64 {
	if p.current == nil {
		return 0
	}
	return math.Max(p.current.eval(v, math.Max(h, 0)), 0)
}

// FlowFromVoltage returns the flow at voltage v and head h, using the power
// implied by the current model. Outside the voltage window or above the
// maximum head the flow is 0.
func (p *Pump) FlowFromVoltage(v, h float64) float64 {
	if p.current == nil || math.IsNaN(h) || h > p.hmax {
		return 0
	}
	vmin, vmax := p.VoltageRange(h)
	if v < vmin || v > vmax {
		return 0
	}
	h = math.Max(h, 0)
	q := p.flow.eval(v*p.Current(v, h), h)
	return math.Max(q, 0)
}
