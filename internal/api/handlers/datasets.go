package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stephansmit/pvpumpingsystem/internal/api/models"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
)

// DataHandler lists the input files available under the data directory
type DataHandler struct {
	env *Env
}

func NewDataHandler(env *Env) *DataHandler {
	return &DataHandler{env: env}
}

// ListPumps handles GET /api/v1/pumps
func (h *DataHandler) ListPumps(c *gin.Context) { h.list(c, data.KindPump) }

// ListModules handles GET /api/v1/modules
func (h *DataHandler) ListModules(c *gin.Context) { h.list(c, data.KindModule) }

// ListWeather handles GET /api/v1/weather
func (h *DataHandler) ListWeather(c *gin.Context) { h.list(c, data.KindWeather) }

func (h *DataHandler) list(c *gin.Context, kind string) {
	cat, err := data.ScanCatalog(h.env.DataDir, h.env.Source)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "CATALOG_ERROR", fmt.Sprintf("Failed to scan data directory: %v", err), nil)
		return
	}
	var entries []data.Entry
	switch kind {
	case data.KindPump:
		entries = cat.Pumps
	case data.KindModule:
		entries = cat.Modules
	case data.KindWeather:
		entries = cat.Weather
	}
	if entries == nil {
		entries = []data.Entry{}
	}
	c.JSON(http.StatusOK, models.CatalogResponse{
		Dir:       cat.Dir,
		UpdatedAt: cat.UpdatedAt,
		Count:     len(entries),
		Entries:   entries,
	})
}
