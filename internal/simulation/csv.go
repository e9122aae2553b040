package simulation

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/stephansmit/pvpumpingsystem/internal/model"
)

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	return writeFile(path, func(w io.Writer) error { return WriteLedger(w, ledger) })
}

// WriteLedger streams the ledger as CSV. Unresolved values are written as NaN.
func WriteLedger(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{
		"index",
		"interval_start_local",
		"interval_end_local",
		"interval_start_utc",
		"interval_end_utc",
		"ghi",
		"poa_global",
		"effective_irradiance",
		"cell_temp",
		"pv_max_power_w",
		"status",
		"flow_lpm",
		"head_m",
		"voltage_v",
		"current_a",
		"power_w",
		"power_unused_w",
		"iterations",
		"demand_l",
		"pumped_l",
		"consumed_l",
		"volume_start_l",
		"volume_end_l",
		"overflow_l",
		"deficit_l",
		"cum_pumped_l",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.IntervalStart),
			fmtTime(r.IntervalEnd),
			fmtTime(r.IntervalStart.UTC()),
			fmtTime(r.IntervalEnd.UTC()),
			fmtFloat(r.GHI),
			fmtFloat(r.POAGlobal),
			fmtFloat(r.EffectiveIrradiance),
			fmtFloat(r.CellTemp),
			fmtFloat(r.PVMaxPower),
			string(r.Status),
			fmtFloat(r.Flow),
			fmtFloat(r.Head),
			fmtFloat(r.Voltage),
			fmtFloat(r.Current),
			fmtFloat(r.Power),
			fmtFloat(r.PowerUnused),
			strconv.Itoa(r.Iterations),
			fmtFloat(r.DemandL),
			fmtFloat(r.PumpedL),
			fmtFloat(r.ConsumedL),
			fmtFloat(r.VolumeStart),
			fmtFloat(r.VolumeEnd),
			fmtFloat(r.OverflowL),
			fmtFloat(r.DeficitL),
			fmtFloat(r.CumPumpedL),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func WriteOperatingPointsCSV(path string, steps []model.Timestep, ops []model.OperatingPoint) error {
	return writeFile(path, func(w io.Writer) error { return WriteOperatingPoints(w, steps, ops) })
}

// WriteOperatingPoints streams one row per timestep; steps and ops are
// paired by index.
func WriteOperatingPoints(out io.Writer, steps []model.Timestep, ops []model.OperatingPoint) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{"index", "interval_start_local", "status", "flow_lpm", "head_m", "voltage_v", "current_a", "power_w", "power_unused_w", "iterations"}
	if err := w.Write(header); err != nil {
		return err
	}
	for i, op := range ops {
		start := ""
		if i < len(steps) {
			start = fmtTime(steps[i].Start)
		}
		row := []string{
			strconv.Itoa(i),
			start,
			string(op.Status),
			fmtFloat(op.Flow),
			fmtFloat(op.Head),
			fmtFloat(op.Voltage),
			fmtFloat(op.Current),
			fmtFloat(op.Power),
			fmtFloat(op.PowerUnused),
			strconv.Itoa(op.Iterations),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
