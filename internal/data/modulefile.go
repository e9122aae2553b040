package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stephansmit/pvpumpingsystem/internal/pvgen"
)

// LoadModule reads PV module parameters. A YAML file holds one module; a CSV
// file is a module database with one module per row, from which name
// selects (name may be empty when the database has a single row).
func LoadModule(path, name string) (pvgen.ModuleParams, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return pvgen.ModuleParams{}, fmt.Errorf("failed to read module file: %w", err)
		}
		var m pvgen.ModuleParams
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return m, fmt.Errorf("failed to parse module file %s: %w", path, err)
		}
		if name != "" && m.Name != name {
			return m, fmt.Errorf("module file %s holds %q, not %q", path, m.Name, name)
		}
		return m, nil
	case ".csv":
		mods, err := LoadModuleDatabase(path)
		if err != nil {
			return pvgen.ModuleParams{}, err
		}
		if name == "" {
			if len(mods) != 1 {
				return pvgen.ModuleParams{}, fmt.Errorf("module database %s has %d modules, a module name is required", path, len(mods))
			}
			return mods[0], nil
		}
		for _, m := range mods {
			if m.Name == name {
				return m, nil
			}
		}
		return pvgen.ModuleParams{}, fmt.Errorf("module %q not found in %s", name, path)
	default:
		return pvgen.ModuleParams{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadModuleDatabase reads every module of a CSV database. Columns are
// matched by the YAML names of the parameters; unknown columns are ignored.
func LoadModuleDatabase(path string) ([]pvgen.ModuleParams, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open module database: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse module database %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("module database %s is empty", path)
	}

	fields := moduleFields()
	header := rows[0]
	out := make([]pvgen.ModuleParams, 0, len(rows)-1)
	for n, row := range rows[1:] {
		var m pvgen.ModuleParams
		v := reflect.ValueOf(&m).Elem()
		for i, col := range header {
			idx, ok := fields[strings.TrimSpace(col)]
			if !ok || i >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			fv := v.Field(idx)
			switch fv.Kind() {
			case reflect.String:
				fv.SetString(cell)
			case reflect.Int:
				x, err := strconv.Atoi(cell)
				if err != nil {
					return nil, fmt.Errorf("row %d %s: %w", n+1, col, err)
				}
				fv.SetInt(int64(x))
			case reflect.Float64:
				x, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("row %d %s: %w", n+1, col, err)
				}
				fv.SetFloat(x)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// moduleFields maps YAML tag names to struct field indices.
func moduleFields() map[string]int {
	t := reflect.TypeOf(pvgen.ModuleParams{})
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if tag != "" && tag != "-" {
			out[tag] = i
		}
	}
	return out
}
