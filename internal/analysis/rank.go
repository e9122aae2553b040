package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/stephansmit/pvpumpingsystem/internal/config"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/log"
	"github.com/stephansmit/pvpumpingsystem/internal/pump"
	"github.com/stephansmit/pvpumpingsystem/internal/simulation"
)

// Candidate is one pump evaluated in the same installation.
type Candidate struct {
	Pump    string  `json:"pump"`
	Summary Summary `json:"summary"`
	// Feasible is set by RankPumps: the candidate meets the LLP ceiling.
	Feasible bool   `json:"feasible"`
	Error    string `json:"error,omitempty"`
}

// NPV returns the candidate's net present cost, +Inf when it was not priced.
func (c Candidate) NPV() float64 {
	if c.Summary.Financial == nil {
		return math.Inf(1)
	}
	return c.Summary.Financial.NPV
}

// EvaluatePumps runs the base configuration once per pump. A pump that cannot
// be set up (for example direct coupling without current data) is kept as a
// candidate carrying its error.
func EvaluatePumps(ctx context.Context, engine *simulation.Engine, base *config.Config, pumps []pump.Spec, src data.Source) ([]Candidate, error) {
	out := make([]Candidate, 0, len(pumps))
	for _, spec := range pumps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg := base.Clone()
		cfg.Pump = spec
		if cfg.Pump.LifespanYears == 0 {
			cfg.Pump.LifespanYears = base.Pump.LifespanYears
		}
		c := Candidate{Pump: spec.Name}

		sys, err := simulation.Setup(cfg, src)
		if err != nil {
			c.Error = err.Error()
			out = append(out, c)
			log.Ctx(ctx).Warn("pump skipped", slog.String("pump", spec.Name), slog.Any("error", err))
			continue
		}
		res, err := engine.Run(ctx, sys)
		if err != nil {
			return nil, fmt.Errorf("pump %s: %w", spec.Name, err)
		}
		c.Summary = Summarize(res)
		out = append(out, c)
	}
	return out, nil
}

// RankPumps marks candidates with LLP <= maxLLP feasible and sorts them by
// NPV ascending. Infeasible candidates follow, by LLP ascending; failed ones
// come last.
func RankPumps(candidates []Candidate, maxLLP float64) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].Feasible = out[i].Error == "" && out[i].Summary.LLP <= maxLLP
	}
	group := func(c Candidate) int {
		switch {
		case c.Feasible:
			return 0
		case c.Error == "":
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		gi, gj := group(out[i]), group(out[j])
		if gi != gj {
			return gi < gj
		}
		switch gi {
		case 0:
			return out[i].NPV() < out[j].NPV()
		case 1:
			return out[i].Summary.LLP < out[j].Summary.LLP
		default:
			return out[i].Pump < out[j].Pump
		}
	})
	return out
}
