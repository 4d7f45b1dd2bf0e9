// Package segmenter computes the overlapping time windows a recording is
// transcribed in. Pure arithmetic, no audio involved.
package segmenter

import (
	"fmt"

	"github.com/cabinetlabs/seanced/internal/errs"
	"github.com/cabinetlabs/seanced/internal/types"
)

// Windows slices [0, duration) into overlapping windows. Window i starts at
// i*(chunk-overlap) and ends at min(start+chunk, duration); iteration stops
// once a window reaches duration, so the last window may be shorter. At
// least one window is produced even when duration < chunk.
func Windows(duration, chunk, overlap float64) ([]types.Window, error) {
	if chunk <= 0 {
		return nil, fmt.Errorf("%w: chunk_seconds must be positive, got %g", errs.ErrConfig, chunk)
	}
	if overlap < 0 || overlap >= chunk {
		return nil, fmt.Errorf("%w: overlap_seconds must be in [0, chunk_seconds), got %g", errs.ErrConfig, overlap)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %g", errs.ErrConfig, duration)
	}

	stride := chunk - overlap
	var windows []types.Window
	for i := 0; ; i++ {
		start := float64(i) * stride
		end := start + chunk
		if end > duration {
			end = duration
		}
		windows = append(windows, types.Window{Index: i, Start: start, End: end})
		if end >= duration {
			break
		}
	}
	return windows, nil
}
