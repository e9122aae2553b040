package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stephansmit/pvpumpingsystem/internal/api/models"
	"github.com/stephansmit/pvpumpingsystem/internal/config"
	"github.com/stephansmit/pvpumpingsystem/internal/coupling"
)

var couplings = []models.CouplingInfo{
	{
		Name:        coupling.ModeMPPT,
		Description: "The array feeds the pump through a maximum power point tracker. The pump receives the array's maximum power times the converter efficiency.",
		Parameters: []models.ParameterInfo{
			{
				Name:        "efficiency",
				Type:        "float",
				Description: "Converter efficiency in (0, 1]",
				Default:     config.DefaultMPPTEfficiency,
			},
			{
				Name:        "price",
				Type:        "float",
				Description: "Installed price of the converter",
			},
			{
				Name:        "lifespan_years",
				Type:        "float",
				Description: "Converter lifespan, used for replacements",
			},
		},
	},
	{
		Name:        coupling.ModeDirect,
		Description: "The pump is wired straight to the array and runs where the array I-V curve crosses the pump's current draw. Needs current data in the pump table.",
		Parameters: []models.ParameterInfo{
			{
				Name:        "samples",
				Type:        "int",
				Description: "Intervals scanned over the pump's voltage window when looking for crossings",
				Default:     coupling.DefaultSamples,
			},
		},
	},
}

// ListCouplings handles GET /api/v1/couplings
func ListCouplings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"couplings": couplings})
}
