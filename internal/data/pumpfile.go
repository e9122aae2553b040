package data

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stephansmit/pvpumpingsystem/internal/pump"
)

// LoadPump reads a pump performance file: YAML (.yaml, .yml) or a
// tab-separated table (.txt, .tsv).
func LoadPump(path string) (pump.Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return pump.Spec{}, fmt.Errorf("failed to read pump file: %w", err)
	}
	var spec pump.Spec
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return pump.Spec{}, fmt.Errorf("failed to parse pump file %s: %w", path, err)
		}
	case ".txt", ".tsv":
		spec, err = ParsePumpTable(strings.NewReader(string(raw)))
		if err != nil {
			return pump.Spec{}, fmt.Errorf("failed to parse pump file %s: %w", path, err)
		}
	default:
		return pump.Spec{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return spec, nil
}

// ParsePumpTable reads the tabular pump format: "# key: value" metadata
// lines (name, manufacturer, price, lifespan_years, method), then a header
// row naming the columns (voltage, head, flow, current, power) and one row
// per measured point.
func ParsePumpTable(r io.Reader) (pump.Spec, error) {
	var spec pump.Spec
	var body strings.Builder
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := applyPumpMeta(&spec, strings.TrimSpace(strings.TrimPrefix(line, "#"))); err != nil {
				return spec, err
			}
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return spec, err
	}

	cr := csv.NewReader(strings.NewReader(body.String()))
	cr.Comma = '\t'
	rows, err := cr.ReadAll()
	if err != nil {
		return spec, err
	}
	if len(rows) < 2 {
		return spec, fmt.Errorf("%w: table has no data rows", pump.ErrInsufficientData)
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, need := range []string{"voltage", "head", "flow"} {
		if _, ok := cols[need]; !ok {
			return spec, fmt.Errorf("missing %q column", need)
		}
	}
	get := func(row []string, name string) (float64, error) {
		i, ok := cols[name]
		if !ok || i >= len(row) || strings.TrimSpace(row[i]) == "" {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	}
	for n, row := range rows[1:] {
		var p pump.Point
		for _, f := range []struct {
			name string
			dst  *float64
		}{{"voltage", &p.Voltage}, {"head", &p.Head}, {"flow", &p.Flow}, {"current", &p.Current}, {"power", &p.Power}} {
			v, err := get(row, f.name)
			if err != nil {
				return spec, fmt.Errorf("row %d %s: %w", n+1, f.name, err)
			}
			*f.dst = v
		}
		spec.Points = append(spec.Points, p)
	}
	return spec, nil
}

func applyPumpMeta(spec *pump.Spec, line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	switch key {
	case "name":
		spec.Name = value
	case "manufacturer":
		spec.Manufacturer = value
	case "method":
		spec.Method = value
	case "price", "lifespan_years":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("metadata %s: %w", key, err)
		}
		if key == "price" {
			spec.Price = v
		} else {
			spec.LifespanYears = v
		}
	}
	return nil
}
