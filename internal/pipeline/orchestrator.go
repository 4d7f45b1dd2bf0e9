package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cabinetlabs/seanced/internal/artifacts"
	"github.com/cabinetlabs/seanced/internal/assemble"
	"github.com/cabinetlabs/seanced/internal/config"
	"github.com/cabinetlabs/seanced/internal/final"
	"github.com/cabinetlabs/seanced/internal/identity"
	"github.com/cabinetlabs/seanced/internal/logger"
	"github.com/cabinetlabs/seanced/internal/media"
	"github.com/cabinetlabs/seanced/internal/research"
	"github.com/cabinetlabs/seanced/internal/segmenter"
	"github.com/cabinetlabs/seanced/internal/transcribe"
	"github.com/cabinetlabs/seanced/internal/types"
)

// Submission is one request entering the pipeline: either a saved audio file
// or a pre-existing transcript, plus optional metadata.
type Submission struct {
	AudioPath  string
	Transcript string

	Patient  string
	BaseName string
	Prenom   string
	Date     string
	Register string

	ChunkSeconds   float64
	OverlapSeconds float64
	IdempotencyKey string
}

// TranscribeResult is the stage-one output returned by POST /transcribe.
type TranscribeResult struct {
	SessionID  string
	Cached     bool
	Transcript types.Transcript
	Windows    []types.Window
	Results    []types.SegmentResult
	Duration   float64
}

// SessionResult is the full orchestration output returned by POST /post_session.
type SessionResult struct {
	Bundle     *types.Bundle
	Cached     bool
	Transcript types.Transcript
	Research   types.ResearchPayload
	Final      types.FinalPayload
	Duration   float64
}

// segmentsFile is the persisted shape of segments.json.
type segmentsFile struct {
	Duration float64               `json:"duration"`
	Windows  []types.Window        `json:"windows"`
	Results  []types.SegmentResult `json:"results"`
}

// Orchestrator sequences identity, segmentation, transcription, assembly,
// research, final and persistence, with a per-key single-flight guarantee:
// concurrent submissions of identical content share one execution and one
// bundle.
type Orchestrator struct {
	cfg   *config.Config
	store *artifacts.Store
	index *artifacts.Index
	pool  *transcribe.Pool
	log   *logger.Logger
	group singleflight.Group
}

func New(cfg *config.Config, store *artifacts.Store, index *artifacts.Index, pool *transcribe.Pool, log *logger.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, store: store, index: index, pool: pool, log: log}
}

// Identify computes the session key for a submission without running
// anything. The key is content-derived unless an idempotency key overrides it.
func (o *Orchestrator) Identify(sub Submission) (string, error) {
	key, _, _, err := o.identify(sub)
	return key, err
}

func (o *Orchestrator) identify(sub Submission) (key string, payload []byte, domain types.Domain, err error) {
	params := identity.Params{
		ChunkSeconds:   o.chunk(sub),
		OverlapSeconds: o.overlap(sub),
	}
	switch {
	case sub.AudioPath != "":
		payload, err = os.ReadFile(sub.AudioPath)
		if err != nil {
			return "", nil, "", fmt.Errorf("reading audio payload: %w", err)
		}
		domain = types.DomainAudio
	default:
		payload = []byte(sub.Transcript)
		domain = types.DomainText
	}
	if sub.IdempotencyKey != "" {
		return identity.Compute([]byte(sub.IdempotencyKey), domain, params), payload, domain, nil
	}
	return identity.Compute(payload, domain, params), payload, domain, nil
}

func (o *Orchestrator) chunk(sub Submission) float64 {
	if sub.ChunkSeconds > 0 {
		return sub.ChunkSeconds
	}
	return o.cfg.Audio.ChunkSeconds
}

func (o *Orchestrator) overlap(sub Submission) float64 {
	if sub.ChunkSeconds > 0 {
		return sub.OverlapSeconds
	}
	return o.cfg.Audio.OverlapSeconds
}

// Transcribe runs stage one only. A committed bundle for the same key is
// reused as-is; otherwise the transcript is computed but nothing is
// persisted, since commit only ever takes a complete bundle.
func (o *Orchestrator) Transcribe(ctx context.Context, sub Submission) (*TranscribeResult, error) {
	key, _, domain, err := o.identify(sub)
	if err != nil {
		return nil, err
	}

	v, err, _ := o.group.Do("transcribe:"+key, func() (interface{}, error) {
		if _, lerr := o.store.Lookup(key); lerr == nil {
			return o.loadTranscribeResult(key)
		}
		st, err := o.stageOne(ctx, key, sub, domain)
		if err != nil {
			return nil, err
		}
		return &TranscribeResult{
			SessionID:  key,
			Transcript: st.transcript,
			Windows:    st.windows,
			Results:    st.results,
			Duration:   st.duration,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TranscribeResult), nil
}

// RunSession drives the whole pipeline for one submission. Duplicate
// concurrent callers block on the in-flight execution and share its result.
func (o *Orchestrator) RunSession(ctx context.Context, sub Submission) (*SessionResult, error) {
	state := StateReceived
	log := o.log.WithField("state", string(state))

	key, _, domain, err := o.identify(sub)
	if err != nil {
		return nil, o.fail(state, err)
	}
	state = Next(state, false) // identified
	log = o.log.WithField("session_id", key)
	log.WithField("state", string(state)).Debug("session identified")

	v, err, shared := o.group.Do("session:"+key, func() (interface{}, error) {
		return o.executeSession(ctx, key, sub, domain)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*SessionResult)
	if shared {
		log.Info("duplicate submission joined in-flight execution")
	}
	return res, nil
}

func (o *Orchestrator) executeSession(ctx context.Context, key string, sub Submission, domain types.Domain) (*SessionResult, error) {
	state := Next(Next(StateReceived, false), false) // cache_check
	log := o.log.WithField("session_id", key)

	if bundle, err := o.store.Lookup(key); err == nil {
		log.WithField("state", string(Next(state, true))).Info("cache hit, returning committed bundle")
		return o.loadSessionResult(key, bundle)
	}

	started := time.Now()

	state = Next(state, false) // segmenting
	st, err := o.stageOne(ctx, key, sub, domain)
	if err != nil {
		return nil, o.fail(state, err)
	}

	state = StateResearching
	log.WithField("state", string(state)).Debug("running research stage")
	researchPayload, err := research.Run(ctx, st.transcript, research.Context{
		SessionID: key,
		Prenom:    sub.Prenom,
		Date:      sub.Date,
		Register:  sub.Register,
		Duration:  st.duration,
	})
	if err != nil {
		return nil, o.fail(state, err)
	}

	state = Next(state, false) // finalizing
	log.WithField("state", string(state)).Debug("running final stage")
	finalPayload, err := final.Run(ctx, researchPayload, final.Options{
		MinWords: o.cfg.Pipeline.MailMinWords,
		MaxWords: o.cfg.Pipeline.MailMaxWords,
		Attempts: o.cfg.Pipeline.StyleAttempts,
	})
	if err != nil {
		return nil, o.fail(state, err)
	}

	// a cancelled caller must never leave a partial bundle behind
	if err := ctx.Err(); err != nil {
		return nil, o.fail(state, err)
	}

	state = Next(state, false) // persisting
	files, err := bundleFiles(st, researchPayload, finalPayload)
	if err != nil {
		return nil, o.fail(state, err)
	}
	bundle, cached, err := o.store.Commit(key, files)
	if err != nil {
		return nil, o.fail(state, err)
	}
	bundle.Patient = sub.Patient
	bundle.Date = researchPayload.Meta.Date

	if o.index != nil {
		if err := o.index.Record(artifacts.SessionRecord{
			SessionKey: key,
			Patient:    sub.Patient,
			BaseName:   sub.BaseName,
			Date:       researchPayload.Meta.Date,
			Register:   researchPayload.Meta.Register,
			Duration:   st.duration,
			WordCount:  len(strings.Fields(st.transcript.Text)),
		}); err != nil {
			log.WithError(err).Warn("failed to index session")
		}
	}

	log.WithFields(map[string]interface{}{
		"state":       string(StateDone),
		"cached":      cached,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("session pipeline complete")

	return &SessionResult{
		Bundle:     bundle,
		Cached:     cached,
		Transcript: st.transcript,
		Research:   researchPayload,
		Final:      finalPayload,
		Duration:   st.duration,
	}, nil
}

type stageOneResult struct {
	transcript types.Transcript
	windows    []types.Window
	results    []types.SegmentResult
	duration   float64
}

// stageOne covers segmenting, transcribing and assembling. Text submissions
// pass through as a single pseudo-segment.
func (o *Orchestrator) stageOne(ctx context.Context, key string, sub Submission, domain types.Domain) (*stageOneResult, error) {
	log := o.log.WithField("session_id", key)

	if domain == types.DomainText {
		results := []types.SegmentResult{{Index: 0, Text: sub.Transcript, Status: types.SegmentOK}}
		transcript, err := assemble.Assemble(results, assemble.Options{})
		if err != nil {
			return nil, err
		}
		return &stageOneResult{
			transcript: transcript,
			windows:    []types.Window{{Index: 0, Start: 0, End: 0}},
			results:    results,
			duration:   0,
		}, nil
	}

	duration, err := media.ProbeDuration(ctx, sub.AudioPath)
	if err != nil {
		return nil, err
	}

	windows, err := segmenter.Windows(duration, o.chunk(sub), o.overlap(sub))
	if err != nil {
		return nil, err
	}
	log.WithFields(map[string]interface{}{
		"windows":  len(windows),
		"duration": duration,
	}).Info("audio segmented")

	inputs := make([]transcribe.Input, 0, len(windows))
	for _, w := range windows {
		data, err := media.ExtractWindow(ctx, sub.AudioPath, w, o.store.TmpDir())
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, transcribe.Input{Window: w, Data: data})
	}

	results, err := o.pool.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}

	transcript, err := assemble.Assemble(results, assemble.Options{TrimOverlap: o.cfg.Pipeline.TrimOverlap})
	if err != nil {
		return nil, err
	}
	return &stageOneResult{transcript: transcript, windows: windows, results: results, duration: duration}, nil
}

func (o *Orchestrator) fail(state State, err error) error {
	if !CanFail(state) {
		return err
	}
	o.log.WithField("state", string(state)).WithField("error", err.Error()).Error("pipeline stage failed")
	return fmt.Errorf("stage %s: %w", state, err)
}

func bundleFiles(st *stageOneResult, researchPayload types.ResearchPayload, finalPayload types.FinalPayload) (map[string][]byte, error) {
	segJSON, err := json.MarshalIndent(segmentsFile{
		Duration: st.duration,
		Windows:  st.windows,
		Results:  st.results,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	researchJSON, err := json.MarshalIndent(researchPayload, "", "  ")
	if err != nil {
		return nil, err
	}
	analysisJSON, err := json.MarshalIndent(finalPayload.Analysis, "", "  ")
	if err != nil {
		return nil, err
	}
	return map[string][]byte{
		"transcript.txt": []byte(st.transcript.Text),
		"segments.json":  segJSON,
		"research.json":  researchJSON,
		"analysis.json":  analysisJSON,
		"plan.txt":       []byte(finalPayload.PlanMarkdown),
		"mail.md":        []byte(finalPayload.MailMarkdown),
	}, nil
}

// loadTranscribeResult rebuilds a stage-one result from a committed bundle.
func (o *Orchestrator) loadTranscribeResult(key string) (*TranscribeResult, error) {
	text, err := o.store.ReadFile(key, "transcript.txt")
	if err != nil {
		return nil, err
	}
	segRaw, err := o.store.ReadFile(key, "segments.json")
	if err != nil {
		return nil, err
	}
	var segs segmentsFile
	if err := json.Unmarshal(segRaw, &segs); err != nil {
		return nil, err
	}
	transcript, err := assemble.Assemble([]types.SegmentResult{{Index: 0, Text: string(text), Status: types.SegmentOK}}, assemble.Options{})
	if err != nil {
		return nil, err
	}
	return &TranscribeResult{
		SessionID:  key,
		Cached:     true,
		Transcript: transcript,
		Windows:    segs.Windows,
		Results:    segs.Results,
		Duration:   segs.Duration,
	}, nil
}

// loadSessionResult rebuilds a full session result from a committed bundle.
func (o *Orchestrator) loadSessionResult(key string, bundle *types.Bundle) (*SessionResult, error) {
	tr, err := o.loadTranscribeResult(key)
	if err != nil {
		return nil, err
	}

	researchRaw, err := o.store.ReadFile(key, "research.json")
	if err != nil {
		return nil, err
	}
	var researchPayload types.ResearchPayload
	if err := json.Unmarshal(researchRaw, &researchPayload); err != nil {
		return nil, err
	}

	analysisRaw, err := o.store.ReadFile(key, "analysis.json")
	if err != nil {
		return nil, err
	}
	var analysis types.Analysis
	if err := json.Unmarshal(analysisRaw, &analysis); err != nil {
		return nil, err
	}

	plan, err := o.store.ReadFile(key, "plan.txt")
	if err != nil {
		return nil, err
	}
	mail, err := o.store.ReadFile(key, "mail.md")
	if err != nil {
		return nil, err
	}

	bundle.Date = researchPayload.Meta.Date
	if o.index != nil {
		if rec, err := o.index.Get(key); err == nil {
			bundle.Patient = rec.Patient
		}
	}

	return &SessionResult{
		Bundle:     bundle,
		Cached:     true,
		Transcript: tr.Transcript,
		Research:   researchPayload,
		Final: types.FinalPayload{
			PlanMarkdown: string(plan),
			Analysis:     analysis,
			MailMarkdown: string(mail),
		},
		Duration: tr.Duration,
	}, nil
}
