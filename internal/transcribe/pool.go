package transcribe

import (
	"context"
	"fmt"
	"sync"

	"github.com/cabinetlabs/seanced/internal/logger"
	"github.com/cabinetlabs/seanced/internal/types"
)

// Input is one audio window ready for transcription.
type Input struct {
	Window types.Window
	Data   []byte
}

// Pool transcribes segments concurrently through a bounded set of workers.
// Results carry their segment index so ordering can be restored downstream
// regardless of completion order. One bad segment never fails the run: after
// the backend's retry budget is spent its text becomes an annotated
// placeholder instead.
type Pool struct {
	backend Backend
	workers int
	log     *logger.Logger
}

func NewPool(backend Backend, workers int, log *logger.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{backend: backend, workers: workers, log: log}
}

// Run transcribes all inputs and returns one result per input, in completion
// order. The only error it returns is context cancellation; in-flight calls
// drain but their results are discarded with the rest of the run.
func (p *Pool) Run(ctx context.Context, inputs []Input) ([]types.SegmentResult, error) {
	jobs := make(chan Input)
	results := make(chan types.SegmentResult, len(inputs))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for in := range jobs {
				results <- p.transcribeOne(ctx, id, in)
			}
		}(w)
	}

	go func() {
		defer close(jobs)
		for _, in := range inputs {
			select {
			case jobs <- in:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]types.SegmentResult, 0, len(inputs))
	for r := range results {
		out = append(out, r)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pool) transcribeOne(ctx context.Context, workerID int, in Input) types.SegmentResult {
	text, err := p.backend.Transcribe(ctx, in.Data)
	if err != nil {
		p.log.WithFields(map[string]interface{}{
			"worker":  workerID,
			"segment": in.Window.Index,
		}).WithField("error", err.Error()).Warn("segment transcription exhausted retries, substituting placeholder")
		return types.SegmentResult{
			Index:  in.Window.Index,
			Text:   fmt.Sprintf("[segment %d indisponible: transcription en échec]", in.Window.Index),
			Status: types.SegmentError,
		}
	}

	status := types.SegmentOK
	if p.backend.Name() == "offline" {
		status = types.SegmentFallback
	}
	return types.SegmentResult{Index: in.Window.Index, Text: text, Status: status}
}
