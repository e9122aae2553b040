package pvgen

import (
	"math"
	"time"

	"github.com/stephansmit/pvpumpingsystem/internal/numeric"
)

const (
	boltzmannEV = 8.617332478e-5
	egRef       = 1.121
	dEgdT       = -0.0002677
	irradRef    = 1000.0
	tempRefK    = 298.15

	currentTol = 1e-9
	voltageTol = 1e-6
	solverIter = 200
)

// DiodeParams are the five single-diode parameters of one module at
// operating conditions.
type DiodeParams struct {
	IL  float64 `json:"i_l"`
	I0  float64 `json:"i_0"`
	RS  float64 `json:"r_s"`
	RSh float64 `json:"r_sh"`
	// NNsVth is the modified ideality factor.
	NNsVth float64 `json:"nnsvth"`
}

// DeSoto translates reference parameters to operating conditions given the
// effective irradiance (W/m²) and cell temperature (°C).
func DeSoto(m ModuleParams, effIrradiance, cellTemp float64) DiodeParams {
	if effIrradiance <= 0 {
		return DiodeParams{RS: m.RS, RSh: math.Inf(1), NNsVth: m.ARef}
	}
	tk := cellTemp + 273.15
	eg := egRef * (1 + dEgdT*(tk-tempRefK))
	ratio := effIrradiance / irradRef
	return DiodeParams{
		IL: ratio * (m.ILRef + m.AlphaSC*(tk-tempRefK)),
		I0: m.IORef * math.Pow(tk/tempRefK, 3) *
			math.Exp(egRef/(boltzmannEV*tempRefK)-eg/(boltzmannEV*tk)),
		RS:     m.RS,
		RSh:    m.RShRef / ratio,
		NNsVth: m.ARef * tk / tempRefK,
	}
}

// current solves the implicit single-diode equation for the module current at
// module voltage v. It returns 0 at or above open circuit.
func (d DiodeParams) current(v float64) float64 {
	if d.IL <= 0 {
		return 0
	}
	v = math.Max(v, 0)
	g := func(i float64) float64 {
		vd := v + i*d.RS
		return d.IL - d.I0*math.Expm1(vd/d.NNsVth) - vd/d.RSh - i
	}
	if g(0) <= 0 {
		return 0
	}
	i, err := numeric.Brent(g, 0, d.IL, currentTol, solverIter)
	if err != nil {
		return 0
	}
	return math.Max(i, 0)
}

// voc returns the module open-circuit voltage.
func (d DiodeParams) voc() float64 {
	if d.IL <= 0 {
		return 0
	}
	f := func(v float64) float64 {
		return d.IL - d.I0*math.Expm1(v/d.NNsVth) - v/d.RSh
	}
	hi := d.NNsVth * math.Log1p(d.IL/d.I0)
	v, err := numeric.Brent(f, 0, hi, voltageTol, solverIter)
	if err != nil {
		return 0
	}
	return v
}

// MPP is the maximum power point of an array characteristic.
type MPP struct {
	V float64 `json:"v"`
	I float64 `json:"i"`
	P float64 `json:"p"`
}

// IVPoint is one sample of an I-V curve.
type IVPoint struct {
	V float64 `json:"v"`
	I float64 `json:"i"`
}

// Characteristic is the electrical behaviour of the whole array during one
// timestep. A zero-irradiance characteristic yields 0 everywhere.
type Characteristic struct {
	Time time.Time `json:"time"`

	POA                 POA     `json:"poa"`
	EffectiveIrradiance float64 `json:"effective_irradiance"`
	CellTemp            float64 `json:"cell_temp"`

	Diode    DiodeParams `json:"diode"`
	Series   int         `json:"modules_per_string"`
	Parallel int         `json:"strings"`
	Loss     float64     `json:"loss_fraction"`

	voc float64
	mpp MPP
}

// NewCharacteristic builds an array characteristic from module diode
// parameters and the array wiring; Voc and the MPP are computed once.
func NewCharacteristic(t time.Time, d DiodeParams, series, parallel int, loss float64) Characteristic {
	c := Characteristic{
		Time:     t,
		Diode:    d,
		Series:   series,
		Parallel: parallel,
		Loss:     loss,
	}
	c.voc = d.voc() * float64(series)
	if c.voc > 0 {
		v, p := numeric.GoldenMax(func(v float64) float64 { return v * c.Current(v) }, 0, c.voc, voltageTol, solverIter)
		if p > 0 {
			c.mpp = MPP{V: v, I: p / v, P: p}
		}
	}
	return c
}

// Current returns the array current in A at array voltage v.
func (c Characteristic) Current(v float64) float64 {
	if c.voc <= 0 || v >= c.voc || c.Series < 1 {
		return 0
	}
	return c.Diode.current(v/float64(c.Series)) * float64(c.Parallel) * (1 - c.Loss)
}

// Power returns v·I(v).
func (c Characteristic) Power(v float64) float64 {
	return v * c.Current(v)
}

// Voc returns the array open-circuit voltage.
func (c Characteristic) Voc() float64 { return c.voc }

// MPP returns the array maximum power point.
func (c Characteristic) MPP() MPP { return c.mpp }

// Dark reports whether the array produces no power.
func (c Characteristic) Dark() bool { return c.mpp.P <= 0 }

// IVCurve samples n+1 evenly spaced points from short circuit to open
// circuit.
func (c Characteristic) IVCurve(n int) []IVPoint {
	if n < 1 || c.voc <= 0 {
		return nil
	}
	out := make([]IVPoint, n+1)
	for i := 0; i <= n; i++ {
		v := c.voc * float64(i) / float64(n)
		out[i] = IVPoint{V: v, I: c.Current(v)}
	}
	return out
}
