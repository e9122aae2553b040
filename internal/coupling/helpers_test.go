package coupling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stephansmit/pvpumpingsystem/internal/pump"
	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

var ku270 = pvgen.ModuleParams{
	Name:    "Kyocera KU270-6MCA",
	STC:     270,
	Cells:   60,
	AlphaSC: 0.005724,
	ILRef:   9.552,
	IORef:   2.797e-10,
	ARef:    1.58,
	RS:      0.38,
	RShRef:  300,
}

func lawFlow(p, h float64) float64 {
	return -5 + 0.16*p - 1.1*h + 0.001*p*h - 0.00006*p*p
}

func headDependentCurrent(v, h float64) float64 { return 0.4 + 0.03*v + 0.03*h }
func headFreeCurrent(v, _ float64) float64      { return 0.4 + 0.03*v }

// valleyCurrent draws least near 100 V, so a 3x2 array crosses it twice.
func valleyCurrent(v, h float64) float64 { return 4 + 0.01*(v-100)*(v-100) + 0.03*h }

func newTestPump(t *testing.T, current func(v, h float64) float64) *pump.Pump {
	t.Helper()
	s := pump.Spec{Name: "synthetic", Price: 1097.04}
	for h := 0.0; h <= 30; h += 5 {
		for v := 60.0; v <= 150; v += 15 {
			i := current(v, h)
			q := lawFlow(v*i, h)
			if q <= 0 {
				continue
			}
			s.Points = append(s.Points, pump.Point{Voltage: v, Head: h, Flow: q, Current: i})
		}
	}
	p, err := pump.New(s)
	require.NoError(t, err)
	return p
}

// char builds a 2x2 KU270 array characteristic.
func char(irradiance, cellTemp float64) pvgen.Characteristic {
	return pvgen.NewCharacteristic(time.Time{}, pvgen.DeSoto(ku270, irradiance, cellTemp), 2, 2, 0)
}

// char3x2 builds a 3-series, 2-string KU270 array characteristic.
func char3x2(irradiance, cellTemp float64) pvgen.Characteristic {
	return pvgen.NewCharacteristic(time.Time{}, pvgen.DeSoto(ku270, irradiance, cellTemp), 3, 2, 0)
}

// pvgen1x2 is a single-module-per-string array whose voltage cannot reach
// the pump's window.
func pvgen1x2(irradiance float64) pvgen.Characteristic {
	return pvgen.NewCharacteristic(time.Time{}, pvgen.DeSoto(ku270, irradiance, 25), 1, 2, 0)
}
