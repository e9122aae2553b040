package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReservoirValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  ReservoirParams
		initial float64
		wantErr bool
	}{
		{"ok", ReservoirParams{CapacityL: 1000}, 500, false},
		{"unbounded", ReservoirParams{CapacityL: math.Inf(1)}, 0, false},
		{"zero capacity", ReservoirParams{CapacityL: 0}, 0, true},
		{"initial above capacity", ReservoirParams{CapacityL: 100}, 101, true},
		{"negative initial", ReservoirParams{CapacityL: 100}, -1, true},
		{"negative price", ReservoirParams{CapacityL: 100, Price: -5}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReservoir(tt.params, tt.initial)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReservoirApply(t *testing.T) {
	r, err := NewReservoir(ReservoirParams{CapacityL: 100}, 50)
	require.NoError(t, err)

	t.Run("net inflow", func(t *testing.T) {
		s := r.Apply(30, 10)
		assert.Equal(t, 50.0, s.VolumeStart)
		assert.Equal(t, 70.0, s.VolumeEnd)
		assert.Zero(t, s.Overflow)
		assert.Zero(t, s.Deficit)
	})

	t.Run("overflow discarded", func(t *testing.T) {
		s := r.Apply(80, 0)
		assert.Equal(t, 100.0, s.VolumeEnd)
		assert.InDelta(t, 50.0, s.Overflow, 1e-12)
	})

	t.Run("deficit floors at zero", func(t *testing.T) {
		s := r.Apply(0, 130)
		assert.Equal(t, 0.0, s.VolumeEnd)
		assert.InDelta(t, 30.0, s.Deficit, 1e-12)
		assert.InDelta(t, 100.0, s.Consumed, 1e-12)
	})

	t.Run("unresolved pumped volume counts as zero", func(t *testing.T) {
		s := r.Apply(math.NaN(), 0)
		assert.Equal(t, 0.0, s.Pumped)
		assert.Equal(t, 0.0, s.VolumeEnd)
	})
}

func TestReservoirStaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		capacity := 10 + rng.Float64()*1000
		r, err := NewReservoir(ReservoirParams{CapacityL: capacity}, rng.Float64()*capacity)
		require.NoError(t, err)
		for i := 0; i < 200; i++ {
			pumped := rng.Float64() * capacity
			if rng.Intn(10) == 0 {
				pumped = math.NaN()
			}
			s := r.Apply(pumped, rng.Float64()*capacity)
			require.GreaterOrEqual(t, s.VolumeEnd, 0.0)
			require.LessOrEqual(t, s.VolumeEnd, capacity)
			require.GreaterOrEqual(t, s.Overflow, 0.0)
			require.GreaterOrEqual(t, s.Deficit, 0.0)
		}
	}
}

func TestInitialVolume(t *testing.T) {
	v, err := InitialVolume(200, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = InitialVolume(200, "full", 0)
	require.NoError(t, err)
	assert.Equal(t, 200.0, v)

	v, err = InitialVolume(200, "fraction", 0.25)
	require.NoError(t, err)
	assert.Equal(t, 50.0, v)

	_, err = InitialVolume(math.Inf(1), "full", 0)
	assert.Error(t, err)

	_, err = InitialVolume(200, "fraction", 1.5)
	assert.Error(t, err)

	_, err = InitialVolume(200, "half", 0)
	assert.Error(t, err)
}
