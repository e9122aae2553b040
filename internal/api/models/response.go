package models

import (
	"math"
	"time"

	"github.com/stephansmit/pvpumpingsystem/internal/analysis"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/simulation"
)

// SimulateResponse represents the response from a simulation run
type SimulateResponse struct {
	ID      string           `json:"id,omitempty"`
	Status  string           `json:"status"`
	Window  TimeWindow       `json:"window"`
	Summary analysis.Summary `json:"summary"`
	Ledger  []LedgerRow      `json:"ledger,omitempty"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LedgerRow represents one timestep in the simulation ledger. Values that
// are undefined for unresolved timesteps are null.
type LedgerRow struct {
	Index               int       `json:"index"`
	IntervalStart       time.Time `json:"interval_start"`
	IntervalEnd         time.Time `json:"interval_end"`
	GHI                 float64   `json:"ghi"`
	POAGlobal           float64   `json:"poa_global"`
	EffectiveIrradiance float64   `json:"effective_irradiance"`
	CellTemp            float64   `json:"cell_temp"`
	PVMaxPower          float64   `json:"pv_max_power_w"`
	Status              string    `json:"status"` // "PUMPING", "IDLE", "UNRESOLVED"
	Flow                *float64  `json:"flow_lpm"`
	Head                *float64  `json:"head_m"`
	Voltage             *float64  `json:"voltage_v"`
	Current             *float64  `json:"current_a"`
	Power               *float64  `json:"power_w"`
	PowerUnused         *float64  `json:"power_unused_w"`
	Iterations          int       `json:"iterations"`
	DemandL             float64   `json:"demand_l"`
	PumpedL             float64   `json:"pumped_l"`
	ConsumedL           float64   `json:"consumed_l"`
	VolumeStart         float64   `json:"volume_start_l"`
	VolumeEnd           float64   `json:"volume_end_l"`
	OverflowL           float64   `json:"overflow_l"`
	DeficitL            float64   `json:"deficit_l"`
	CumPumpedL          float64   `json:"cum_pumped_l"`
}

// Number returns nil for values JSON cannot carry (NaN, ±Inf).
func Number(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func NewLedger(rows []simulation.LedgerRow) []LedgerRow {
	out := make([]LedgerRow, len(rows))
	for i, r := range rows {
		out[i] = LedgerRow{
			Index:               r.Index,
			IntervalStart:       r.IntervalStart,
			IntervalEnd:         r.IntervalEnd,
			GHI:                 r.GHI,
			POAGlobal:           r.POAGlobal,
			EffectiveIrradiance: r.EffectiveIrradiance,
			CellTemp:            r.CellTemp,
			PVMaxPower:          r.PVMaxPower,
			Status:              string(r.Status),
			Flow:                Number(r.Flow),
			Head:                Number(r.Head),
			Voltage:             Number(r.Voltage),
			Current:             Number(r.Current),
			Power:               Number(r.Power),
			PowerUnused:         Number(r.PowerUnused),
			Iterations:          r.Iterations,
			DemandL:             r.DemandL,
			PumpedL:             r.PumpedL,
			ConsumedL:           r.ConsumedL,
			VolumeStart:         r.VolumeStart,
			VolumeEnd:           r.VolumeEnd,
			OverflowL:           r.OverflowL,
			DeficitL:            r.DeficitL,
			CumPumpedL:          r.CumPumpedL,
		}
	}
	return out
}

// NewWindow spans the first to the last ledger interval.
func NewWindow(rows []simulation.LedgerRow) TimeWindow {
	if len(rows) == 0 {
		return TimeWindow{}
	}
	return TimeWindow{Start: rows[0].IntervalStart, End: rows[len(rows)-1].IntervalEnd}
}

// CompareResponse represents the response from a comparison
type CompareResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string            `json:"name"`
	Summary *analysis.Summary `json:"summary,omitempty"`
	Error   *ErrorDetail      `json:"error,omitempty"`
}

// RankResponse represents the response from ranking pumps
type RankResponse struct {
	MaxLLP   float64   `json:"max_llp"`
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked pump
type Ranking struct {
	Rank         int      `json:"rank"`
	Pump         string   `json:"pump"`
	Feasible     bool     `json:"feasible"`
	LLP          float64  `json:"llp"`
	TotalPumpedL float64  `json:"total_pumped_l"`
	NPV          *float64 `json:"npv"`
	LCOW         *float64 `json:"lcow"`
	Error        string   `json:"error,omitempty"`
}

func NewRankings(cands []analysis.Candidate) []Ranking {
	out := make([]Ranking, len(cands))
	for i, c := range cands {
		r := Ranking{
			Rank:         i + 1,
			Pump:         c.Pump,
			Feasible:     c.Feasible,
			LLP:          c.Summary.LLP,
			TotalPumpedL: c.Summary.TotalPumpedL,
			Error:        c.Error,
		}
		if f := c.Summary.Financial; f != nil {
			r.NPV = Number(f.NPV)
			r.LCOW = Number(f.LCOW)
		}
		out[i] = r
	}
	return out
}

// CatalogResponse lists one kind of input file
type CatalogResponse struct {
	Dir       string       `json:"dir"`
	UpdatedAt string       `json:"updated_at"`
	Count     int          `json:"count"`
	Entries   []data.Entry `json:"entries"`
}

// CouplingInfo represents information about a coupling mode
type CouplingInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a coupling parameter
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "float", "int", "string"
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
