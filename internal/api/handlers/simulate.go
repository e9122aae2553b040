package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/stephansmit/pvpumpingsystem/internal/analysis"
	"github.com/stephansmit/pvpumpingsystem/internal/api/models"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/log"
	"github.com/stephansmit/pvpumpingsystem/internal/simulation"
)

// SimulationHandler handles simulation requests
type SimulationHandler struct {
	env *Env
	// runs keeps finished ledgers by run id; nil disables retrieval.
	runs *data.Cache[[]simulation.LedgerRow]
}

// NewSimulationHandler creates a handler keeping ledgers for ledgerTTL
func NewSimulationHandler(env *Env, ledgerTTL time.Duration) *SimulationHandler {
	return &SimulationHandler{
		env:  env,
		runs: data.NewCache[[]simulation.LedgerRow](ledgerTTL),
	}
}

// Runs exposes the ledger cache so the server can prune it.
func (h *SimulationHandler) Runs() *data.Cache[[]simulation.LedgerRow] {
	return h.runs
}

// Simulate handles POST /api/v1/simulate
func (h *SimulationHandler) Simulate(c *gin.Context) {
	var req models.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	doc, baseDir, err := h.env.document(req.Config, req.ConfigFile)
	if err != nil {
		writeConfigError(c, err)
		return
	}
	sys, err := h.env.setup(doc, baseDir, req.Options)
	if err != nil {
		writeConfigError(c, err)
		return
	}
	res, ok := h.run(c, sys)
	if !ok {
		return
	}

	resp := models.SimulateResponse{
		Status:  "completed",
		Window:  models.NewWindow(res.Ledger),
		Summary: analysis.Summarize(res),
	}
	if h.runs != nil {
		resp.ID = uuid.NewString()
		h.runs.Set(resp.ID, res.Ledger)
	}
	if req.Options.IncludeLedger {
		resp.Ledger = models.NewLedger(res.Ledger)
	}
	c.JSON(http.StatusOK, resp)
}

// GetLedger handles GET /api/v1/simulate/:id/ledger
// format=csv streams the ledger as CSV instead of JSON.
func (h *SimulationHandler) GetLedger(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ID", "id must be a UUID", nil)
		return
	}
	ledger, ok := h.runs.Get(id)
	if !ok {
		h.env.Metrics.CacheMiss()
		writeError(c, http.StatusNotFound, "NOT_FOUND", "no ledger for this id; it may have expired", nil)
		return
	}
	h.env.Metrics.CacheHit()

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="`+id+`.csv"`)
		c.Status(http.StatusOK)
		if err := simulation.WriteLedger(c.Writer, ledger); err != nil {
			log.Ctx(c.Request.Context()).Error("failed to write ledger", slog.Any("error", err))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"count":  len(ledger),
		"ledger": models.NewLedger(ledger),
	})
}

// Compare handles POST /api/v1/simulate/compare
// Each variation is merged over the base document and run independently.
func (h *SimulationHandler) Compare(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	doc, baseDir, err := h.env.document(req.Base, req.BaseFile)
	if err != nil {
		writeConfigError(c, err)
		return
	}
	var base map[string]any
	if err := yaml.Unmarshal(doc, &base); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}

	comparison := make([]models.ComparisonResult, 0, len(req.Variations))
	for _, v := range req.Variations {
		out := models.ComparisonResult{Name: v.Name}
		merged, err := yaml.Marshal(mergeDocs(base, v.Config))
		if err == nil {
			var sys *simulation.System
			if sys, err = h.env.setup(merged, baseDir, req.Options); err == nil {
				res, ok := h.run(c, sys)
				if !ok {
					return
				}
				s := analysis.Summarize(res)
				out.Summary = &s
			}
		}
		if err != nil {
			_, detail := configErrorDetail(err)
			out.Error = &detail
		}
		comparison = append(comparison, out)
	}

	c.JSON(http.StatusOK, models.CompareResponse{Comparison: comparison})
}

// run executes a simulation, writing the error response itself on failure.
func (h *SimulationHandler) run(c *gin.Context, sys *simulation.System) (*simulation.Result, bool) {
	start := time.Now()
	res, err := h.env.Engine.Run(c.Request.Context(), sys)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "SIMULATION_ERROR", err.Error(), nil)
		return nil, false
	}
	h.env.Metrics.Simulation(res.Coupling, time.Since(start), res.Unresolved)
	return res, true
}

// mergeDocs overlays override on base; nested mappings merge key by key,
// anything else replaces. Neither input is modified.
func mergeDocs(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if om, ok := v.(map[string]any); ok {
			if bm, ok := out[k].(map[string]any); ok {
				out[k] = mergeDocs(bm, om)
				continue
			}
		}
		out[k] = v
	}
	return out
}
