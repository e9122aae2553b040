package models

import "encoding/json"

// SimulateRequest represents the request body for running a simulation.
// Config is a configuration document (JSON object or YAML string contents);
// ConfigFile names a configuration under the server's data directory instead.
// File references inside the document resolve against the data directory.
type SimulateRequest struct {
	Config     json.RawMessage `json:"config,omitempty"`
	ConfigFile string          `json:"config_file,omitempty"`
	Options    SimulateOptions `json:"options,omitempty"`
}

// SimulateOptions overrides run settings without editing the document
type SimulateOptions struct {
	Stop          int    `json:"stop,omitempty"`     // 0 = as configured
	Coupling      string `json:"coupling,omitempty"` // "mppt" or "direct"
	NoFriction    bool   `json:"no_friction,omitempty"`
	IncludeLedger bool   `json:"include_ledger,omitempty"` // default: false
}

// CompareRequest runs variations of one base configuration
type CompareRequest struct {
	Base       json.RawMessage `json:"base"`
	BaseFile   string          `json:"base_file,omitempty"`
	Options    SimulateOptions `json:"options,omitempty"`
	Variations []Variation     `json:"variations" binding:"required,min=1"`
}

// Variation is a partial configuration document merged over the base.
type Variation struct {
	Name   string         `json:"name" binding:"required"`
	Config map[string]any `json:"config"`
}

// RankRequest ranks pumps for one installation
type RankRequest struct {
	Config     json.RawMessage `json:"config,omitempty"`
	ConfigFile string          `json:"config_file,omitempty"`
	// Pumps are pump file ids under the data directory; empty ranks them all.
	Pumps   []string        `json:"pumps,omitempty"`
	MaxLLP  float64         `json:"max_llp"`
	Options SimulateOptions `json:"options,omitempty"`
}
