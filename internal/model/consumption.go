package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is a daily period [Start, End) during which water is drawn at
// FlowLpm. Times are "HH:MM" in the weather file's local standard time; a
// window whose end precedes its start wraps past midnight.
type Window struct {
	Start   string  `json:"start" yaml:"start"`
	End     string  `json:"end" yaml:"end"`
	FlowLpm float64 `json:"flow_lpm" yaml:"flow_lpm"`

	startMins int
	endMins   int
}

// Consumption describes water demand over the day. Exactly one of the three
// shapes is used, in this order of precedence: Windows, Hourly, Constant.
type Consumption struct {
	// ConstantLpm is a flat demand in L/min.
	ConstantLpm float64
	// Hourly holds 24 demand values in L/min, one per hour of day.
	Hourly []float64
	// Windows are daily draw periods; overlapping windows add up.
	Windows []Window
}

// NewConsumption validates and prepares a profile.
func NewConsumption(constantLpm float64, hourly []float64, windows []Window) (Consumption, error) {
	c := Consumption{ConstantLpm: constantLpm}
	if constantLpm < 0 {
		return c, errors.New("constant flow must be >= 0")
	}
	if len(hourly) > 0 {
		if len(hourly) != 24 {
			return c, fmt.Errorf("hourly profile needs 24 values, got %d", len(hourly))
		}
		for i, v := range hourly {
			if v < 0 {
				return c, fmt.Errorf("hourly profile value %d must be >= 0", i)
			}
		}
		c.Hourly = append([]float64(nil), hourly...)
	}
	for i, w := range windows {
		s, err := parseHHMM(w.Start)
		if err != nil {
			return c, fmt.Errorf("window %d start: %w", i, err)
		}
		e, err := parseHHMM(w.End)
		if err != nil {
			return c, fmt.Errorf("window %d end: %w", i, err)
		}
		if w.FlowLpm < 0 {
			return c, fmt.Errorf("window %d flow must be >= 0", i)
		}
		w.startMins, w.endMins = s, e
		c.Windows = append(c.Windows, w)
	}
	return c, nil
}

// FlowAt returns the demand in L/min at t (wall-clock of t's zone).
func (c Consumption) FlowAt(t time.Time) float64 {
	if len(c.Windows) > 0 {
		m := t.Hour()*60 + t.Minute()
		total := 0.0
		for _, w := range c.Windows {
			if inWindow(m, w.startMins, w.endMins) {
				total += w.FlowLpm
			}
		}
		return total
	}
	if len(c.Hourly) == 24 {
		return c.Hourly[t.Hour()]
	}
	return c.ConstantLpm
}

func inWindow(m, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return m >= start && m < end
	}
	// wraps midnight
	return m >= start || m < end
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q (expected HH:MM)", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("out of range time %q", s)
	}
	return h*60 + m, nil
}
