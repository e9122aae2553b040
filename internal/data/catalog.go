package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Dataset kinds, also the sub-directory names under a data directory.
const (
	KindPump    = "pumps"
	KindModule  = "modules"
	KindWeather = "weather"
)

// Entry is one input file available under a data directory.
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	Path string `json:"path"`

	// Pump entries
	Price  float64 `json:"price,omitempty"`
	Points int     `json:"points,omitempty"`

	// Module entries
	STC float64 `json:"stc,omitempty"`

	// Weather entries
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Records   int     `json:"records,omitempty"`

	Error string `json:"error,omitempty"`
}

// Catalog lists the pumps, modules and weather files of a data directory.
type Catalog struct {
	Dir       string  `json:"dir"`
	UpdatedAt string  `json:"updated_at"` // ISO 8601 timestamp
	Pumps     []Entry `json:"pumps"`
	Modules   []Entry `json:"modules"`
	Weather   []Entry `json:"weather"`
}

var kindExt = map[string][]string{
	KindPump:    {".yaml", ".yml", ".txt", ".tsv"},
	KindModule:  {".yaml", ".yml", ".csv"},
	KindWeather: {".epw"},
}

// ScanCatalog walks dir/pumps, dir/modules and dir/weather through src.
// Files that fail to load are listed with their error rather than aborting
// the scan.
func ScanCatalog(dir string, src Source) (*Catalog, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	c := &Catalog{Dir: dir, UpdatedAt: time.Now().UTC().Format(time.RFC3339)}

	for _, kind := range []string{KindPump, KindModule, KindWeather} {
		paths, err := listFiles(filepath.Join(dir, kind), kindExt[kind])
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			e := Entry{
				ID:   strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)),
				Kind: kind,
				Path: p,
			}
			switch kind {
			case KindPump:
				if s, err := src.Pump(p); err != nil {
					e.Error = err.Error()
				} else {
					e.Name, e.Price, e.Points = s.Name, s.Price, len(s.Points)
				}
				c.Pumps = append(c.Pumps, e)
			case KindModule:
				if strings.EqualFold(filepath.Ext(p), ".csv") {
					mods, err := LoadModuleDatabase(p)
					if err != nil {
						e.Error = err.Error()
						c.Modules = append(c.Modules, e)
						continue
					}
					for _, m := range mods {
						me := e
						me.ID = e.ID + "/" + m.Name
						me.Name, me.STC = m.Name, m.STC
						c.Modules = append(c.Modules, me)
					}
					continue
				}
				if m, err := src.Module(p, ""); err != nil {
					e.Error = err.Error()
				} else {
					e.Name, e.STC = m.Name, m.STC
				}
				c.Modules = append(c.Modules, e)
			case KindWeather:
				if w, err := src.Weather(p, EPWOptions{}); err != nil {
					e.Error = err.Error()
				} else {
					e.Name = w.Site.Name
					e.Latitude, e.Longitude = w.Site.Latitude, w.Site.Longitude
					e.Records = len(w.Records)
				}
				c.Weather = append(c.Weather, e)
			}
		}
	}
	return c, nil
}

func listFiles(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var out []string
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		for _, e := range exts {
			if ext == e {
				out = append(out, filepath.Join(dir, de.Name()))
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// SaveCatalog writes a catalog as indented JSON.
func SaveCatalog(c *Catalog, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	return nil
}

// DefaultDataDir returns the data directory from DATA_DIR, or ./examples.
func DefaultDataDir() string {
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		return dir
	}
	return "./examples"
}
