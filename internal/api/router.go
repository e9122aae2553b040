// Package api exposes simulations over HTTP.
package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stephansmit/pvpumpingsystem/internal/api/handlers"
	"github.com/stephansmit/pvpumpingsystem/internal/api/middleware"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/simulation"
)

// Options configures NewRouter.
type Options struct {
	DataDir     string
	StaticDir   string
	CORSOrigins []string
	// CacheTTL bounds how long input files and ledgers are kept; <= 0
	// disables both caches.
	CacheTTL time.Duration
	Workers  int
	Metrics  *middleware.Metrics
}

// Server is the routed gin engine plus the caches a caller may want to prune.
type Server struct {
	Router *gin.Engine
	Loader *data.Loader
	Ledger *data.Cache[[]simulation.LedgerRow]
}

func NewRouter(opts Options) *Server {
	if opts.DataDir == "" {
		opts.DataDir = data.DefaultDataDir()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics(nil)
	}
	loader := data.NewLoader(opts.CacheTTL)
	env := &handlers.Env{
		DataDir: opts.DataDir,
		Source:  loader,
		Engine:  simulation.New(opts.Workers),
		Metrics: opts.Metrics,
	}

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(opts.CORSOrigins))
	router.Use(opts.Metrics.Middleware())

	simulationHandler := handlers.NewSimulationHandler(env, opts.CacheTTL)
	dataHandler := handlers.NewDataHandler(env)
	rankHandler := handlers.NewRankHandler(env)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/simulate", simulationHandler.Simulate)
		api.GET("/simulate/:id/ledger", simulationHandler.GetLedger)
		api.POST("/simulate/compare", simulationHandler.Compare)

		api.GET("/pumps", dataHandler.ListPumps)
		api.GET("/modules", dataHandler.ListModules)
		api.GET("/weather", dataHandler.ListWeather)
		api.GET("/couplings", handlers.ListCouplings)

		api.POST("/rank", rankHandler.RankPumps)
	}

	serveStatic(router, opts.StaticDir)

	return &Server{Router: router, Loader: loader, Ledger: simulationHandler.Runs()}
}

// Janitor prunes the input and ledger caches every interval until ctx is done.
func (s *Server) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Loader.Prune()
			s.Ledger.Prune()
		}
	}
}

// serveStatic serves a built web client, with index.html for every non-API
// route.
func serveStatic(router *gin.Engine, dir string) {
	if dir == "" {
		return
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return
	}
	router.Static("/assets", filepath.Join(dir, "assets"))
	router.StaticFile("/favicon.ico", filepath.Join(dir, "favicon.ico"))
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	})
}
