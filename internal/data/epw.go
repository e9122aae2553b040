package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stephansmit/pvpumpingsystem/internal/model"
)

// ErrUnsupportedFormat is returned for files whose extension no loader
// handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// EPW column indices (0-based) of the fields the simulation uses.
const (
	epwYear      = 0
	epwMonth     = 1
	epwDay       = 2
	epwHour      = 3
	epwTempAir   = 6
	epwExtraDNI  = 11
	epwGHI       = 13
	epwDNI       = 14
	epwDHI       = 15
	epwWindSpeed = 21

	epwHeaderLines = 8
	epwMinFields   = 22
)

// EPWOptions tunes how records are timestamped.
type EPWOptions struct {
	// CoerceYear rewrites every record to this year, which keeps typical
	// meteorological years (months drawn from different years) in order.
	// Zero keeps the file's years.
	CoerceYear int
}

// LoadEPW reads an EnergyPlus weather file.
func LoadEPW(path string, opts EPWOptions) (*model.Weather, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open weather file: %w", err)
	}
	defer f.Close()
	w, err := ParseEPW(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// ParseEPW decodes EPW content. Each data row is an hourly average ending at
// its hour field, so the record starts one hour earlier, in local standard
// time.
func ParseEPW(r io.Reader, opts EPWOptions) (*model.Weather, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	w := &model.Weather{}
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++
		if line == 1 {
			site, err := parseEPWLocation(rec)
			if err != nil {
				return nil, err
			}
			w.Site = site
			continue
		}
		if line <= epwHeaderLines {
			continue
		}
		wr, err := parseEPWRow(rec, w.Site.Location(), opts)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		w.Records = append(w.Records, wr)
	}
	if line == 0 {
		return nil, errors.New("empty weather file")
	}
	if len(w.Records) == 0 {
		return nil, errors.New("weather file has no data rows")
	}
	for i := 1; i < len(w.Records); i++ {
		if !w.Records[i].Start.After(w.Records[i-1].Start) {
			return nil, fmt.Errorf("record %d is not after record %d (set a coerce year for typical years)", i, i-1)
		}
	}
	return w, nil
}

func parseEPWLocation(rec []string) (model.Site, error) {
	if len(rec) < 10 || strings.TrimSpace(rec[0]) != "LOCATION" {
		return model.Site{}, errors.New("missing LOCATION header")
	}
	nums := make([]float64, 4)
	for i := range nums {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[6+i]), 64)
		if err != nil {
			return model.Site{}, fmt.Errorf("LOCATION field %d: %w", 6+i, err)
		}
		nums[i] = v
	}
	return model.Site{
		Name:          strings.TrimSpace(rec[1]),
		Country:       strings.TrimSpace(rec[3]),
		Latitude:      nums[0],
		Longitude:     nums[1],
		TZOffsetHours: nums[2],
		AltitudeM:     nums[3],
	}, nil
}

func parseEPWRow(rec []string, loc *time.Location, opts EPWOptions) (model.WeatherRecord, error) {
	if len(rec) < epwMinFields {
		return model.WeatherRecord{}, fmt.Errorf("expected at least %d fields, got %d", epwMinFields, len(rec))
	}
	ints := make([]int, 4)
	for i, col := range []int{epwYear, epwMonth, epwDay, epwHour} {
		v, err := strconv.Atoi(strings.TrimSpace(rec[col]))
		if err != nil {
			return model.WeatherRecord{}, fmt.Errorf("field %d: %w", col, err)
		}
		ints[i] = v
	}
	year, month, day, hour := ints[0], ints[1], ints[2], ints[3]
	if opts.CoerceYear != 0 {
		year = opts.CoerceYear
	}
	if hour < 1 || hour > 24 {
		return model.WeatherRecord{}, fmt.Errorf("hour %d out of range [1, 24]", hour)
	}

	floats := make([]float64, 6)
	for i, col := range []int{epwTempAir, epwExtraDNI, epwGHI, epwDNI, epwDHI, epwWindSpeed} {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			return model.WeatherRecord{}, fmt.Errorf("field %d: %w", col, err)
		}
		floats[i] = v
	}
	// 9999 marks missing irradiance
	for i := 1; i <= 4; i++ {
		if floats[i] >= 9999 {
			floats[i] = 0
		}
	}

	return model.WeatherRecord{
		Start:     time.Date(year, time.Month(month), day, hour-1, 0, 0, 0, loc),
		Duration:  time.Hour,
		TempAir:   floats[0],
		ExtraDNI:  floats[1],
		GHI:       floats[2],
		DNI:       floats[3],
		DHI:       floats[4],
		WindSpeed: floats[5],
	}, nil
}
