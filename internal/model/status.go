package model

// Status is a human-friendly pumping state for a timestep.
// Keep these values stable; they are intended for CSV output.
type Status string

const (
	StatusPumping    Status = "PUMPING"
	StatusIdle       Status = "IDLE"
	StatusUnresolved Status = "UNRESOLVED"
)
