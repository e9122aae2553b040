package data

import (
	"fmt"
	"strconv"
	"time"

	"github.com/stephansmit/pvpumpingsystem/internal/model"
	"github.com/stephansmit/pvpumpingsystem/internal/pump"
	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

// Files loads inputs straight from disk.
type Files struct{}

func (Files) Weather(path string, opts EPWOptions) (*model.Weather, error) {
	return LoadEPW(path, opts)
}

func (Files) Pump(path string) (pump.Spec, error) { return LoadPump(path) }

func (Files) Module(path, name string) (pvgen.ModuleParams, error) {
	return LoadModule(path, name)
}

// Loader memoises parsed input files, keyed by path and modification time.
// It is safe for concurrent use.
type Loader struct {
	weather *Cache[*model.Weather]
	pumps   *Cache[pump.Spec]
	modules *Cache[pvgen.ModuleParams]
}

// NewLoader returns a Loader whose entries expire after ttl; ttl <= 0 turns
// it into a plain Files loader.
func NewLoader(ttl time.Duration) *Loader {
	return &Loader{
		weather: NewCache[*model.Weather](ttl),
		pumps:   NewCache[pump.Spec](ttl),
		modules: NewCache[pvgen.ModuleParams](ttl),
	}
}

// Weather returns the parsed weather file. Callers must not modify the
// returned records.
func (l *Loader) Weather(path string, opts EPWOptions) (*model.Weather, error) {
	key, err := FileKey(path, strconv.Itoa(opts.CoerceYear))
	if err != nil {
		return nil, fmt.Errorf("failed to open weather file: %w", err)
	}
	if w, ok := l.weather.Get(key); ok {
		return w, nil
	}
	w, err := LoadEPW(path, opts)
	if err != nil {
		return nil, err
	}
	l.weather.Set(key, w)
	return w, nil
}

func (l *Loader) Pump(path string) (pump.Spec, error) {
	key, err := FileKey(path)
	if err != nil {
		return pump.Spec{}, fmt.Errorf("failed to read pump file: %w", err)
	}
	if s, ok := l.pumps.Get(key); ok {
		return copySpec(s), nil
	}
	s, err := LoadPump(path)
	if err != nil {
		return s, err
	}
	l.pumps.Set(key, copySpec(s))
	return s, nil
}

func (l *Loader) Module(path, name string) (pvgen.ModuleParams, error) {
	key, err := FileKey(path, name)
	if err != nil {
		return pvgen.ModuleParams{}, fmt.Errorf("failed to read module file: %w", err)
	}
	if m, ok := l.modules.Get(key); ok {
		return m, nil
	}
	m, err := LoadModule(path, name)
	if err != nil {
		return m, err
	}
	l.modules.Set(key, m)
	return m, nil
}

// Prune drops expired entries from every cache.
func (l *Loader) Prune() {
	l.weather.Prune()
	l.pumps.Prune()
	l.modules.Prune()
}

func copySpec(s pump.Spec) pump.Spec {
	s.Points = append([]pump.Point(nil), s.Points...)
	return s
}

// Source provides parsed input files.
type Source interface {
	Weather(path string, opts EPWOptions) (*model.Weather, error)
	Pump(path string) (pump.Spec, error)
	Module(path, name string) (pvgen.ModuleParams, error)
}
