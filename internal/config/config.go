package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stephansmit/pvpumpingsystem/internal/coupling"
	"github.com/stephansmit/pvpumpingsystem/internal/data"
	"github.com/stephansmit/pvpumpingsystem/internal/model"
	"github.com/stephansmit/pvpumpingsystem/internal/pipe"
	"github.com/stephansmit/pvpumpingsystem/internal/pump"
	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

const DefaultMPPTEfficiency = 0.96

// Config is the on-disk configuration shape (YAML).
type Config struct {
	WeatherFile string `yaml:"weather_file" json:"weather_file"`
	// CoerceYear rewrites weather timestamps to one year (typical years).
	CoerceYear int `yaml:"coerce_year" json:"coerce_year,omitempty"`
	// Stop is the number of timesteps to simulate; 0 runs the whole file.
	Stop int `yaml:"stop" json:"stop,omitempty"`

	PV PVConfig `yaml:"pv" json:"pv"`

	// Optional: load the pump table from a separate file (e.g. examples/pumps/*.yaml).
	// Non-zero fields of Pump override what the file provides.
	PumpFile string    `yaml:"pump_file" json:"pump_file,omitempty"`
	Pump     pump.Spec `yaml:"pump" json:"pump"`

	Coupling    CouplingConfig    `yaml:"coupling" json:"coupling"`
	Pipes       pipe.Network      `yaml:"pipes" json:"pipes"`
	Solver      SolverConfig      `yaml:"solver" json:"solver"`
	Reservoir   ReservoirConfig   `yaml:"reservoir" json:"reservoir"`
	Consumption ConsumptionConfig `yaml:"consumption" json:"consumption"`
	Financial   FinancialConfig   `yaml:"financial" json:"financial"`
}

type PVConfig struct {
	// Optional: module parameters file (YAML) or database (CSV, pick with ModuleName).
	// Non-zero fields of Module override the file.
	ModuleFile string             `yaml:"module_file" json:"module_file,omitempty"`
	ModuleName string             `yaml:"module_name" json:"module_name,omitempty"`
	Module     pvgen.ModuleParams `yaml:"module" json:"module"`
	Array      pvgen.ArrayParams  `yaml:"array" json:"array"`
}

type CouplingConfig struct {
	Mode          string  `yaml:"mode" json:"mode"`
	Efficiency    float64 `yaml:"efficiency" json:"efficiency,omitempty"`
	Price         float64 `yaml:"price" json:"price,omitempty"`
	LifespanYears float64 `yaml:"lifespan_years" json:"lifespan_years,omitempty"`
	Samples       int     `yaml:"samples" json:"samples,omitempty"`
}

type SolverConfig struct {
	// Friction defaults to true.
	Friction *bool   `yaml:"friction" json:"friction,omitempty"`
	Atol     float64 `yaml:"atol" json:"atol,omitempty"`
	MaxIter  int     `yaml:"max_iter" json:"max_iter,omitempty"`
	// Workers bounds the parallel per-timestep stage; <= 0 uses GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers,omitempty"`
}

// FrictionEnabled reports whether pipe friction takes part in the head.
func (s SolverConfig) FrictionEnabled() bool {
	return s.Friction == nil || *s.Friction
}

type ReservoirConfig struct {
	// CapacityL of 0 means an unbounded tank.
	CapacityL     float64 `yaml:"capacity_l" json:"capacity_l,omitempty"`
	Price         float64 `yaml:"price" json:"price,omitempty"`
	LifespanYears float64 `yaml:"lifespan_years" json:"lifespan_years,omitempty"`
	// Initial is one of empty (default), full, fraction.
	Initial         string  `yaml:"initial" json:"initial,omitempty"`
	InitialFraction float64 `yaml:"initial_fraction" json:"initial_fraction,omitempty"`
}

func (r ReservoirConfig) ToModelParams() model.ReservoirParams {
	capacity := r.CapacityL
	if capacity == 0 {
		capacity = math.Inf(1)
	}
	return model.ReservoirParams{
		CapacityL:     capacity,
		Price:         r.Price,
		LifespanYears: r.LifespanYears,
	}
}

// NewReservoir builds the tank at its initial level.
func (r ReservoirConfig) NewReservoir() (*model.Reservoir, error) {
	params := r.ToModelParams()
	v, err := model.InitialVolume(params.CapacityL, r.Initial, r.InitialFraction)
	if err != nil {
		return nil, err
	}
	return model.NewReservoir(params, v)
}

type ConsumptionConfig struct {
	ConstantLpm float64        `yaml:"constant_lpm" json:"constant_lpm,omitempty"`
	Hourly      []float64      `yaml:"hourly" json:"hourly,omitempty"`
	Windows     []model.Window `yaml:"windows" json:"windows,omitempty"`
}

func (c ConsumptionConfig) ToModel() (model.Consumption, error) {
	return model.NewConsumption(c.ConstantLpm, c.Hourly, c.Windows)
}

type FinancialConfig struct {
	LabourCoefficient float64 `yaml:"labour_coefficient" json:"labour_coefficient"`
	DiscountRate      float64 `yaml:"discount_rate" json:"discount_rate"`
	Opex              float64 `yaml:"opex" json:"opex"`
}

// ValidationError collects every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(field string, err error) {
	e.Problems = append(e.Problems, fmt.Sprintf("%s: %v", field, err))
}

// Load reads, merges, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	return LoadFrom(path, data.Files{})
}

// LoadFrom is Load with referenced files read through src.
func LoadFrom(path string, src data.Source) (*Config, error) {
	c, err := LoadUnchecked(path, src)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string, src data.Source) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw, filepath.Dir(path), src)
}

// Parse decodes a YAML (or JSON) document whose relative file references are
// resolved against baseDir, then loads and merges the module and pump files.
func Parse(raw []byte, baseDir string, src data.Source) (*Config, error) {
	c, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	if err := c.Resolve(baseDir, src); err != nil {
		return nil, err
	}
	return c, nil
}

// Decode parses a YAML (or JSON) document without reading the files it
// references.
func Decode(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &c, nil
}

// FileRef is a file reference held by a configuration.
type FileRef struct {
	Field string
	Path  *string
}

// FileRefs returns the configuration's file references, set or not.
func (c *Config) FileRefs() []FileRef {
	return []FileRef{
		{Field: "weather_file", Path: &c.WeatherFile},
		{Field: "pump_file", Path: &c.PumpFile},
		{Field: "pv.module_file", Path: &c.PV.ModuleFile},
	}
}

// Resolve makes the file references relative to baseDir, then loads and
// merges the module and pump files.
func (c *Config) Resolve(baseDir string, src data.Source) error {
	for _, ref := range c.FileRefs() {
		*ref.Path = resolvePath(baseDir, *ref.Path)
	}

	if c.PV.ModuleFile != "" {
		loaded, err := src.Module(c.PV.ModuleFile, c.PV.ModuleName)
		if err != nil {
			return err
		}
		c.PV.Module = MergeModule(loaded, c.PV.Module)
	}
	if c.PumpFile != "" {
		loaded, err := src.Pump(c.PumpFile)
		if err != nil {
			return err
		}
		c.Pump = MergePump(loaded, c.Pump)
	}
	return nil
}

// resolvePath prefers interpreting relative paths as relative to the config
// file directory, but falls back to the provided path (relative to cwd) if
// that doesn't exist.
func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	cand := filepath.Join(baseDir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// ApplyDefaults fills in values a concise configuration leaves out.
func (c *Config) ApplyDefaults() {
	if c.Coupling.Mode == "" {
		c.Coupling.Mode = coupling.ModeMPPT
	}
	if c.Coupling.Mode == coupling.ModeMPPT && c.Coupling.Efficiency == 0 {
		c.Coupling.Efficiency = DefaultMPPTEfficiency
	}
	if c.Coupling.Samples == 0 {
		c.Coupling.Samples = coupling.DefaultSamples
	}
	if c.Solver.Atol == 0 {
		c.Solver.Atol = coupling.DefaultAtol
	}
	if c.Solver.MaxIter == 0 {
		c.Solver.MaxIter = coupling.DefaultMaxIter
	}
	if c.Pipes.Material == "" {
		c.Pipes.Material = "plastic"
	}
}

// Validate checks every section and reports all problems at once as a
// *ValidationError. Model constructors do the detailed checks.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	verr := &ValidationError{}

	if c.WeatherFile == "" {
		verr.add("weather_file", errors.New("is required"))
	}
	if c.Stop < 0 {
		verr.add("stop", errors.New("must be >= 0"))
	}
	if _, err := pvgen.NewArray(c.PV.Module, c.PV.Array); err != nil {
		verr.add("pv", err)
	}

	p, err := pump.New(c.Pump)
	if err != nil {
		verr.add("pump", err)
	} else if _, err := coupling.New(p, c.CouplingOptions()); err != nil {
		verr.add("coupling", err)
	}
	if c.Coupling.LifespanYears < 0 {
		verr.add("coupling.lifespan_years", errors.New("must be >= 0"))
	}
	if c.Pump.LifespanYears < 0 {
		verr.add("pump.lifespan_years", errors.New("must be >= 0"))
	}

	pipes := c.Pipes
	if err := pipes.Validate(); err != nil {
		verr.add("pipes", err)
	}
	if c.Solver.Atol < 0 || c.Solver.MaxIter < 0 {
		verr.add("solver", errors.New("atol and max_iter must be >= 0"))
	}
	if c.Reservoir.CapacityL < 0 {
		verr.add("reservoir.capacity_l", errors.New("must be >= 0"))
	} else if _, err := c.Reservoir.NewReservoir(); err != nil {
		verr.add("reservoir", err)
	}
	if _, err := c.Consumption.ToModel(); err != nil {
		verr.add("consumption", err)
	}
	f := c.Financial
	if f.LabourCoefficient < 0 || f.Opex < 0 {
		verr.add("financial", errors.New("labour_coefficient and opex must be >= 0"))
	}
	if f.DiscountRate <= -1 {
		verr.add("financial.discount_rate", errors.New("must be > -1"))
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

// CouplingOptions converts the coupling section.
func (c *Config) CouplingOptions() coupling.Options {
	return coupling.Options{
		Mode:          c.Coupling.Mode,
		Efficiency:    c.Coupling.Efficiency,
		Price:         c.Coupling.Price,
		LifespanYears: c.Coupling.LifespanYears,
		Samples:       c.Coupling.Samples,
	}
}

// Clone returns a deep copy, so variations can be derived from a base
// configuration without aliasing its slices.
func (c *Config) Clone() *Config {
	out := *c
	out.Pump.Points = append([]pump.Point(nil), c.Pump.Points...)
	out.Consumption.Hourly = append([]float64(nil), c.Consumption.Hourly...)
	out.Consumption.Windows = append([]model.Window(nil), c.Consumption.Windows...)
	if c.Solver.Friction != nil {
		f := *c.Solver.Friction
		out.Solver.Friction = &f
	}
	return &out
}
