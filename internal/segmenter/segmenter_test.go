package segmenter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabinetlabs/seanced/internal/errs"
)

func TestWindowsCoverage(t *testing.T) {
	cases := []struct {
		name     string
		duration float64
		chunk    float64
		overlap  float64
	}{
		{"typical session", 3600, 120, 4},
		{"no overlap", 600, 60, 0},
		{"chunk not dividing duration", 1000, 120, 4},
		{"duration shorter than chunk", 45, 120, 4},
		{"exact single chunk", 120, 120, 4},
		{"tiny duration", 0.5, 120, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			windows, err := Windows(tc.duration, tc.chunk, tc.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, windows)

			// final window ends exactly at duration
			assert.Equal(t, tc.duration, windows[len(windows)-1].End)

			for i, w := range windows {
				assert.Equal(t, i, w.Index)
				assert.Less(t, w.Start, w.End)
				assert.GreaterOrEqual(t, w.Start, 0.0)
				assert.LessOrEqual(t, w.End, tc.duration)
				if i > 0 {
					// starts strictly increase and no gap opens up
					assert.Greater(t, w.Start, windows[i-1].Start)
					assert.LessOrEqual(t, w.Start, windows[i-1].End)
				}
			}
		})
	}
}

func TestWindowsOverlapSpacing(t *testing.T) {
	windows, err := Windows(500, 120, 4)
	require.NoError(t, err)
	for i := 1; i < len(windows); i++ {
		assert.InDelta(t, 116, windows[i].Start-windows[i-1].Start, 1e-9)
	}
}

func TestWindowsConfigErrors(t *testing.T) {
	cases := []struct {
		name     string
		duration float64
		chunk    float64
		overlap  float64
	}{
		{"zero chunk", 100, 0, 0},
		{"negative chunk", 100, -5, 0},
		{"overlap equals chunk", 100, 120, 120},
		{"overlap exceeds chunk", 100, 120, 130},
		{"negative overlap", 100, 120, -1},
		{"zero duration", 0, 120, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Windows(tc.duration, tc.chunk, tc.overlap)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrConfig))
		})
	}
}
