package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/stephansmit/pvpumpingsystem/internal/api/middleware"
	"github.com/stephansmit/pvpumpingsystem/internal/api/models"
	"github.com/stephansmit/pvpumpingsystem/internal/config"
	"github.com/stephansmit/pvpumpingsystem/internal/coupling"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/simulation"
)

// Env is what every handler shares: where input files live, how they are
// read, and the engine that runs simulations.
type Env struct {
	DataDir string
	Source  data.Source
	Engine  *simulation.Engine
	Metrics *middleware.Metrics
}

var (
	errMissingConfig = errors.New("config or config_file is required")
	errOutsideData   = errors.New("must name a file inside the data directory")
)

// dataPath joins a client-supplied name under the data directory, never
// above it.
func (e *Env) dataPath(name string) string {
	return filepath.Join(e.DataDir, filepath.Clean("/"+name))
}

// document returns the raw configuration from an inline document or a file
// under the data directory, with the directory its file references resolve
// against. A JSON string is taken as YAML text.
func (e *Env) document(raw json.RawMessage, file string) ([]byte, string, error) {
	if len(raw) > 0 && string(raw) != "null" {
		if raw[0] == '"' {
			var text string
			if err := json.Unmarshal(raw, &text); err != nil {
				return nil, "", err
			}
			return []byte(text), e.DataDir, nil
		}
		return raw, e.DataDir, nil
	}
	if file == "" {
		return nil, "", errMissingConfig
	}
	path := e.dataPath(file)
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("config_file: %w", err)
	}
	return doc, filepath.Dir(path), nil
}

// confine rewrites the document's file references to absolute paths under
// the data directory. Absolute references and references that climb out of
// it are rejected without echoing the path.
func (e *Env) confine(cfg *config.Config, baseDir string) error {
	root, err := filepath.Abs(e.DataDir)
	if err != nil {
		return err
	}
	for _, ref := range cfg.FileRefs() {
		name := *ref.Path
		if name == "" {
			continue
		}
		if filepath.IsAbs(name) {
			return fmt.Errorf("%s: %w", ref.Field, errOutsideData)
		}
		abs, err := filepath.Abs(filepath.Join(baseDir, name))
		if err != nil {
			return fmt.Errorf("%s: %w", ref.Field, err)
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || !filepath.IsLocal(rel) {
			return fmt.Errorf("%s: %w", ref.Field, errOutsideData)
		}
		*ref.Path = abs
	}
	return nil
}

// buildConfig parses a document, applies the request options and defaults.
// Validation is left to simulation.Setup.
func (e *Env) buildConfig(doc []byte, baseDir string, opts models.SimulateOptions) (*config.Config, error) {
	cfg, err := config.Decode(doc)
	if err != nil {
		return nil, err
	}
	if err := e.confine(cfg, baseDir); err != nil {
		return nil, err
	}
	if err := cfg.Resolve(baseDir, e.Source); err != nil {
		return nil, err
	}
	applyOptions(cfg, opts)
	cfg.ApplyDefaults()
	return cfg, nil
}

func applyOptions(cfg *config.Config, opts models.SimulateOptions) {
	if opts.Stop > 0 {
		cfg.Stop = opts.Stop
	}
	if opts.Coupling != "" {
		cfg.Coupling.Mode = opts.Coupling
		if opts.Coupling == coupling.ModeDirect {
			cfg.Coupling.Efficiency = 0
		}
	}
	if opts.NoFriction {
		off := false
		cfg.Solver.Friction = &off
	}
}

func writeError(c *gin.Context, status int, code, message string, details map[string]any) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// configErrorDetail classifies errors raised while building a system.
func configErrorDetail(err error) (int, models.ErrorDetail) {
	var verr *config.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, models.ErrorDetail{
			Code:    "INVALID_CONFIG",
			Message: err.Error(),
			Details: map[string]any{"problems": verr.Problems},
		}
	case errors.Is(err, errMissingConfig):
		return http.StatusBadRequest, models.ErrorDetail{Code: "MISSING_CONFIG", Message: err.Error()}
	default:
		return http.StatusBadRequest, models.ErrorDetail{Code: "INVALID_INPUT", Message: err.Error()}
	}
}

func writeConfigError(c *gin.Context, err error) {
	status, detail := configErrorDetail(err)
	c.JSON(status, models.ErrorResponse{Error: detail})
}

// setup builds a validated system from a document.
func (e *Env) setup(doc []byte, baseDir string, opts models.SimulateOptions) (*simulation.System, error) {
	cfg, err := e.buildConfig(doc, baseDir, opts)
	if err != nil {
		return nil, err
	}
	sys, err := simulation.Setup(cfg, e.Source)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	return sys, nil
}
