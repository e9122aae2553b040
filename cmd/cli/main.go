package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/stephansmit/pvpumpingsystem/internal/analysis"
	"github.com/stephansmit/pvpumpingsystem/internal/config"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/log"
	"github.com/stephansmit/pvpumpingsystem/internal/pump"
	"github.com/stephansmit/pvpumpingsystem/internal/simulation"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "simulate":
		err = cmdSimulate(ctx, os.Args[2:])
	case "opoint":
		err = cmdOpoint(ctx, os.Args[2:])
	case "rank":
		err = cmdRank(ctx, os.Args[2:])
	case "list":
		err = cmdList(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli simulate --config examples/config.yaml --out results/ledger.csv [--opoints results/opoints.csv]")
	fmt.Println("  cli opoint   --config examples/config.yaml --out results/opoints.csv")
	fmt.Println("  cli rank     --config examples/config.yaml --pumps examples/pumps --max-llp 0.1")
	fmt.Println("  cli list     --data-dir examples [--write catalog.json]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - simulate writes one ledger row per timestep; unresolved operating points are NaN")
	fmt.Println("  - opoint resolves each timestep at the static head only (no pipe friction)")
	fmt.Println("  - rank runs the installation once per pump and sorts by NPV among pumps meeting the LLP")
}

// runFlags are shared by the sub-commands that run simulations.
type runFlags struct {
	cfgPath    string
	stop       int
	coupling   string
	noFriction bool
	workers    int
	logLevel   string
}

func (r *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&r.cfgPath, "config", "c", "", "Path to YAML config")
	fs.IntVarP(&r.stop, "stop", "n", 0, "Limit to the first N timesteps (0=as configured)")
	fs.StringVar(&r.coupling, "coupling", "", "Override the coupling mode (mppt or direct)")
	fs.BoolVar(&r.noFriction, "no-friction", false, "Ignore pipe friction and solve at the static head")
	fs.IntVar(&r.workers, "workers", 0, "Parallel workers for the operating-point stage (0=GOMAXPROCS)")
	fs.StringVar(&r.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

// load reads the configuration and applies the command-line overrides.
func (r *runFlags) load() (*config.Config, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(r.logLevel)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	log.SetDefaultLogLevel(lvl)

	if r.cfgPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.LoadUnchecked(r.cfgPath, data.Files{})
	if err != nil {
		return nil, err
	}
	if r.stop > 0 {
		cfg.Stop = r.stop
	}
	if r.coupling != "" {
		cfg.Coupling.Mode = r.coupling
	}
	if r.noFriction {
		off := false
		cfg.Solver.Friction = &off
	}
	if r.workers > 0 {
		cfg.Solver.Workers = r.workers
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func cmdSimulate(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("simulate", pflag.ExitOnError)
	var rf runFlags
	rf.register(fs)
	outPath := fs.StringP("out", "o", "results/ledger.csv", "Output ledger CSV path")
	opPath := fs.String("opoints", "", "Optional: also write the operating points CSV")
	_ = fs.Parse(args)

	cfg, err := rf.load()
	if err != nil {
		return err
	}
	sys, err := simulation.Setup(cfg, data.Files{})
	if err != nil {
		return err
	}
	res, err := simulation.New(cfg.Solver.Workers).Run(ctx, sys)
	if err != nil {
		return err
	}

	if err := writeCSV(*outPath, func(p string) error { return simulation.WriteLedgerCSV(p, res.Ledger) }); err != nil {
		return err
	}
	fmt.Printf("Wrote %d rows to %s\n", len(res.Ledger), *outPath)
	if *opPath != "" {
		if err := writeCSV(*opPath, func(p string) error {
			return simulation.WriteOperatingPointsCSV(p, sys.Timesteps, res.OperatingPoints)
		}); err != nil {
			return err
		}
		fmt.Printf("Wrote %d operating points to %s\n", len(res.OperatingPoints), *opPath)
	}

	printSummary(analysis.Summarize(res))
	return nil
}

func cmdOpoint(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("opoint", pflag.ExitOnError)
	var rf runFlags
	rf.register(fs)
	outPath := fs.StringP("out", "o", "results/opoints.csv", "Output CSV path")
	_ = fs.Parse(args)

	rf.noFriction = true
	cfg, err := rf.load()
	if err != nil {
		return err
	}
	sys, err := simulation.Setup(cfg, data.Files{})
	if err != nil {
		return err
	}
	_, ops, err := simulation.New(cfg.Solver.Workers).Resolve(ctx, sys)
	if err != nil {
		return err
	}
	if err := writeCSV(*outPath, func(p string) error {
		return simulation.WriteOperatingPointsCSV(p, sys.Timesteps, ops)
	}); err != nil {
		return err
	}
	fmt.Printf("Wrote %d operating points at %.2f m static head to %s\n", len(ops), cfg.Pipes.StaticHead, *outPath)
	return nil
}

func cmdRank(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("rank", pflag.ExitOnError)
	var rf runFlags
	rf.register(fs)
	pumpsDir := fs.String("pumps", filepath.Join(data.DefaultDataDir(), data.KindPump), "Directory of pump files")
	maxLLP := fs.Float64("max-llp", 0.05, "Highest acceptable loss of load probability")
	_ = fs.Parse(args)

	cfg, err := rf.load()
	if err != nil {
		return err
	}
	specs, failed, err := loadPumps(*pumpsDir)
	if err != nil {
		return err
	}
	cands, err := analysis.EvaluatePumps(ctx, simulation.New(cfg.Solver.Workers), cfg, specs, data.Files{})
	if err != nil {
		return err
	}
	ranked := analysis.RankPumps(append(cands, failed...), *maxLLP)

	fmt.Printf("%-4s %-28s %-8s %-8s %-12s %-12s %-10s\n", "rank", "pump", "ok", "llp", "pumped_m3", "npv$", "lcow$/m3")
	for i, c := range ranked {
		if c.Error != "" {
			fmt.Printf("%-4d %-28s %-8s %s\n", i+1, c.Pump, "error", c.Error)
			continue
		}
		lcow := math.NaN()
		if c.Summary.Financial != nil {
			lcow = c.Summary.Financial.LCOW
		}
		fmt.Printf(
			"%-4d %-28s %-8t %-8.3f %-12.2f %-12.2f %-10.3f\n",
			i+1,
			c.Pump,
			c.Feasible,
			c.Summary.LLP,
			c.Summary.TotalPumpedL/1000,
			c.NPV(),
			lcow,
		)
	}
	return nil
}

func cmdList(args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ExitOnError)
	dir := fs.String("data-dir", data.DefaultDataDir(), "Data directory with pumps/, modules/ and weather/")
	write := fs.String("write", "", "Optional: save the catalog as JSON")
	_ = fs.Parse(args)

	cat, err := data.ScanCatalog(*dir, data.Files{})
	if err != nil {
		return err
	}
	for _, group := range []struct {
		title   string
		entries []data.Entry
	}{
		{"pumps", cat.Pumps},
		{"modules", cat.Modules},
		{"weather", cat.Weather},
	} {
		fmt.Printf("%s (%d)\n", group.title, len(group.entries))
		for _, e := range group.entries {
			detail := e.Name
			if e.Error != "" {
				detail = "error: " + e.Error
			}
			fmt.Printf("  %-32s %s\n", e.ID, detail)
		}
	}
	if *write != "" {
		if err := data.SaveCatalog(cat, *write); err != nil {
			return err
		}
		fmt.Printf("Wrote catalog to %s\n", *write)
	}
	return nil
}

// loadPumps reads every pump file in dir; unreadable ones become failed
// candidates so they still show up in the ranking.
func loadPumps(dir string) ([]pump.Spec, []analysis.Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	var specs []pump.Spec
	var failed []analysis.Candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".txt", ".tsv":
		default:
			continue
		}
		s, err := data.LoadPump(filepath.Join(dir, e.Name()))
		if err != nil {
			failed = append(failed, analysis.Candidate{Pump: e.Name(), Error: err.Error()})
			continue
		}
		specs = append(specs, s)
	}
	if len(specs)+len(failed) == 0 {
		return nil, nil, fmt.Errorf("no pump files in %s", dir)
	}
	return specs, failed, nil
}

func writeCSV(path string, write func(string) error) error {
	// ensure output dir exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return write(path)
}

func printSummary(s analysis.Summary) {
	fmt.Printf("Coupling=%s timesteps=%d pumping=%d unresolved=%d\n", s.Coupling, s.Timesteps, s.PumpingSteps, s.Unresolved)
	fmt.Printf("Pumped=%.1f L demand=%.1f L deficit=%.1f L overflow=%.1f L final=%.1f L\n",
		s.TotalPumpedL, s.TotalDemandL, s.TotalDeficitL, s.TotalOverflowL, s.FinalVolumeL)
	fmt.Printf("Flow peak=%.2f p50=%.2f p95=%.2f L/min  LLP=%.3f\n", s.PeakFlow, s.P50Flow, s.P95Flow, s.LLP)
	fmt.Printf("Efficiency pump=%.3f system=%.3f\n", s.PumpEfficiency, s.SystemEfficiency)
	if f := s.Financial; f != nil {
		fmt.Printf("Investment=$%.2f NPV=$%.2f over %d years  LCOW=$%.3f/m3\n", f.InitialInvestment, f.NPV, f.HorizonYears, f.LCOW)
	}
}
