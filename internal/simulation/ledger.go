package simulation

import (
	"time"

	"github.com/stephansmit/pvpumpingsystem/internal/finance"
	"github.com/stephansmit/pvpumpingsystem/internal/model"
	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

// LedgerRow is one row of per-timestep output.
// This is the primary artifact for "what happened" in a simulation.
// Volumes are in L, flows in L/min.
type LedgerRow struct {
	Index int

	IntervalStart time.Time
	IntervalEnd   time.Time

	GHI                 float64
	POAGlobal           float64
	EffectiveIrradiance float64
	CellTemp            float64
	PVMaxPower          float64

	Status model.Status

	Flow        float64
	Head        float64
	Voltage     float64
	Current     float64
	Power       float64
	PowerUnused float64
	Iterations  int

	DemandL   float64
	PumpedL   float64
	ConsumedL float64

	VolumeStart float64
	VolumeEnd   float64
	OverflowL   float64
	DeficitL    float64

	CumPumpedL float64
}

type Result struct {
	Coupling string

	Ledger          []LedgerRow
	Flow            []float64
	OperatingPoints []model.OperatingPoint
	Characteristics []pvgen.Characteristic

	SimulatedDays float64
	FinalVolume   float64
	TotalPumped   float64
	TotalDemand   float64
	TotalConsumed float64
	TotalDeficit  float64
	TotalOverflow float64
	Unresolved    int

	// Financial is nil when the system carries no lifespans.
	Financial *finance.Result
}
