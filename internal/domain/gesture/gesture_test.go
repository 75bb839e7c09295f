package gesture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		wantErr   bool
	}{
		{name: "default", threshold: DefaultThreshold, wantErr: false},
		{name: "small", threshold: 0.01, wantErr: false},
		{name: "zero", threshold: 0, wantErr: true},
		{name: "one", threshold: 1, wantErr: true},
		{name: "negative", threshold: -0.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.threshold)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidThreshold)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.threshold, c.Threshold())
			assert.Equal(t, 0.0, c.Progress())
		})
	}
}

func TestConfirmation_Drag(t *testing.T) {
	tests := []struct {
		name        string
		updates     []float64
		wantCrosses int
		description string
	}{
		{
			name:        "never reaches threshold",
			updates:     []float64{0.1, 0.5, 0.89},
			wantCrosses: 0,
			description: "Should not confirm below threshold",
		},
		{
			name:        "exactly at threshold",
			updates:     []float64{0.3, 0.9},
			wantCrosses: 1,
			description: "Should confirm at threshold",
		},
		{
			name:        "overshoot and wiggle",
			updates:     []float64{0.5, 0.95, 0.8, 1.0, 0.99},
			wantCrosses: 1,
			description: "Should confirm once per drag",
		},
		{
			name:        "out of range values",
			updates:     []float64{-1, 5},
			wantCrosses: 1,
			description: "Should clamp into [0,1]",
		},
		{
			name:        "NaN",
			updates:     []float64{math.NaN()},
			wantCrosses: 0,
			description: "Should treat NaN as 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(DefaultThreshold)
			require.NoError(t, err)

			crosses := 0
			for _, p := range tt.updates {
				if c.Update(p) {
					crosses++
				}
				assert.GreaterOrEqual(t, c.Progress(), 0.0)
				assert.LessOrEqual(t, c.Progress(), 1.0)
			}
			assert.Equal(t, tt.wantCrosses, crosses, tt.description)

			c.Release()
			assert.Equal(t, 0.0, c.Progress())
			assert.False(t, c.Crossed())
		})
	}
}

func TestConfirmation_ReleaseStartsNewDrag(t *testing.T) {
	c, err := New(DefaultThreshold)
	require.NoError(t, err)

	assert.True(t, c.Update(0.95))
	assert.False(t, c.Update(1.0))

	c.Release()
	assert.False(t, c.Update(0.4))
	assert.True(t, c.Update(0.92))
}
