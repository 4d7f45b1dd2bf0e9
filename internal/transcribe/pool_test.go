package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabinetlabs/seanced/internal/assemble"
	"github.com/cabinetlabs/seanced/internal/logger"
	"github.com/cabinetlabs/seanced/internal/types"
)

// fakeBackend echoes the segment payload, optionally delaying so later
// segments finish first, and failing on request.
type fakeBackend struct {
	delays   map[int]time.Duration
	failIdx  map[int]bool
	calls    atomic.Int32
	nameText string
}

func (f *fakeBackend) Name() string {
	if f.nameText != "" {
		return f.nameText
	}
	return "remote"
}

func (f *fakeBackend) Transcribe(ctx context.Context, wav []byte) (string, error) {
	f.calls.Add(1)
	idx := int(wav[0])
	if d, ok := f.delays[idx]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.failIdx[idx] {
		return "", errors.New("upstream exploded")
	}
	return fmt.Sprintf("texte %d", idx), nil
}

func inputs(n int) []Input {
	out := make([]Input, n)
	for i := range out {
		out[i] = Input{Window: types.Window{Index: i}, Data: []byte{byte(i)}}
	}
	return out
}

func TestPoolReorderingRobustness(t *testing.T) {
	// make earlier segments the slowest so completion order is reversed
	slow := &fakeBackend{delays: map[int]time.Duration{0: 60 * time.Millisecond, 1: 30 * time.Millisecond}}
	fast := &fakeBackend{}
	log := logger.New()

	slowResults, err := NewPool(slow, 4, log).Run(context.Background(), inputs(4))
	require.NoError(t, err)
	fastResults, err := NewPool(fast, 4, log).Run(context.Background(), inputs(4))
	require.NoError(t, err)

	a, err := assemble.Assemble(slowResults, assemble.Options{})
	require.NoError(t, err)
	b, err := assemble.Assemble(fastResults, assemble.Options{})
	require.NoError(t, err)
	assert.Equal(t, a.Text, b.Text, "latency variance must not change the transcript")
	assert.Equal(t, "texte 0 texte 1 texte 2 texte 3", a.Text)
}

func TestPoolSegmentFailureBecomesPlaceholder(t *testing.T) {
	backend := &fakeBackend{failIdx: map[int]bool{1: true}}
	results, err := NewPool(backend, 2, logger.New()).Run(context.Background(), inputs(3))
	require.NoError(t, err, "one bad segment must not fail the run")
	require.Len(t, results, 3)

	byIndex := map[int]types.SegmentResult{}
	for _, r := range results {
		byIndex[r.Index] = r
	}
	assert.Equal(t, types.SegmentOK, byIndex[0].Status)
	assert.Equal(t, types.SegmentError, byIndex[1].Status)
	assert.Contains(t, byIndex[1].Text, "indisponible")
	assert.Equal(t, types.SegmentOK, byIndex[2].Status)
}

func TestPoolOfflineTagsFallback(t *testing.T) {
	results, err := NewPool(NewOffline(), 2, logger.New()).Run(context.Background(), inputs(2))
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, types.SegmentFallback, r.Status)
	}
}

func TestPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPool(&fakeBackend{}, 2, logger.New()).Run(ctx, inputs(8))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
