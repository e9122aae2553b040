package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stephansmit/pvpumpingsystem/internal/analysis"
	"github.com/stephansmit/pvpumpingsystem/internal/api/models"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/pump"
)

// RankHandler handles pump sizing requests
type RankHandler struct {
	env *Env
}

func NewRankHandler(env *Env) *RankHandler {
	return &RankHandler{env: env}
}

// RankPumps handles POST /api/v1/rank
func (h *RankHandler) RankPumps(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	if req.MaxLLP < 0 || req.MaxLLP > 1 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "max_llp must be within [0, 1]", nil)
		return
	}

	doc, baseDir, err := h.env.document(req.Config, req.ConfigFile)
	if err != nil {
		writeConfigError(c, err)
		return
	}
	base, err := h.env.buildConfig(doc, baseDir, req.Options)
	if err != nil {
		writeConfigError(c, err)
		return
	}

	specs, failed, err := h.pumps(req.Pumps)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_PUMPS", err.Error(), nil)
		return
	}
	cands, err := analysis.EvaluatePumps(c.Request.Context(), h.env.Engine, base, specs, h.env.Source)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "SIMULATION_ERROR", err.Error(), nil)
		return
	}
	ranked := analysis.RankPumps(append(cands, failed...), req.MaxLLP)

	c.JSON(http.StatusOK, models.RankResponse{
		MaxLLP:   req.MaxLLP,
		Rankings: models.NewRankings(ranked),
	})
}

// pumps loads the requested pump ids, or every pump in the catalog. Files
// that cannot be read come back as failed candidates.
func (h *RankHandler) pumps(ids []string) ([]pump.Spec, []analysis.Candidate, error) {
	cat, err := data.ScanCatalog(h.env.DataDir, h.env.Source)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]data.Entry, len(cat.Pumps))
	for _, e := range cat.Pumps {
		byID[e.ID] = e
	}
	if len(ids) == 0 {
		for _, e := range cat.Pumps {
			ids = append(ids, e.ID)
		}
	}

	var specs []pump.Spec
	var failed []analysis.Candidate
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("unknown pump %q", id)
		}
		if e.Error != "" {
			failed = append(failed, analysis.Candidate{Pump: id, Error: e.Error})
			continue
		}
		s, err := h.env.Source.Pump(e.Path)
		if err != nil {
			failed = append(failed, analysis.Candidate{Pump: id, Error: err.Error()})
			continue
		}
		specs = append(specs, s)
	}
	if len(specs)+len(failed) == 0 {
		return nil, nil, fmt.Errorf("no pumps under %s", h.env.DataDir)
	}
	return specs, failed, nil
}
