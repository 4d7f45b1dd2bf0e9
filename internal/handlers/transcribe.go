package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cabinetlabs/seanced/internal/config"
	"github.com/cabinetlabs/seanced/internal/logger"
	"github.com/cabinetlabs/seanced/internal/media"
	"github.com/cabinetlabs/seanced/internal/pipeline"
	"github.com/cabinetlabs/seanced/internal/types"
)

// TranscribeHandler serves POST /transcribe: stage one of the pipeline only.
type TranscribeHandler struct {
	orch      *pipeline.Orchestrator
	cfg       *config.Config
	uploadDir string
	log       *logger.Logger
}

func NewTranscribeHandler(orch *pipeline.Orchestrator, cfg *config.Config, uploadDir string, log *logger.Logger) *TranscribeHandler {
	return &TranscribeHandler{orch: orch, cfg: cfg, uploadDir: uploadDir, log: log}
}

// transcribeJSON is the JSON body variant for transcript passthrough.
type transcribeJSON struct {
	Transcript string `json:"transcript"`
	Options    struct {
		ChunkSeconds   float64 `json:"chunk_seconds"`
		OverlapSeconds float64 `json:"overlap_seconds"`
		IdempotencyKey string  `json:"idempotency_key"`
	} `json:"options"`
}

// Handle processes the transcription request
func (h *TranscribeHandler) Handle(c *fiber.Ctx) error {
	sub, cleanup, err := h.parseSubmission(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	defer cleanup()

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.orch.Transcribe(ctx, *sub)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":          true,
		"transcript":  res.Transcript.Text,
		"segments":    segmentView(res.Windows, res.Results),
		"duration":    res.Duration,
		"text_sha256": res.Transcript.SHA256,
		"text_len":    res.Transcript.Length,
		"session_id":  res.SessionID,
		"cached":      res.Cached,
	})
}

func (h *TranscribeHandler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	timeout := time.Duration(h.cfg.Pipeline.RequestTimeoutSeconds) * time.Second
	// full audio runs may need several upstream round trips
	return context.WithTimeout(c.UserContext(), 4*timeout)
}

// parseSubmission accepts either a multipart audio upload or a JSON
// transcript body and returns the submission plus a temp-file cleanup.
func (h *TranscribeHandler) parseSubmission(c *fiber.Ctx) (*pipeline.Submission, func(), error) {
	noop := func() {}

	if file, err := c.FormFile("audio"); err == nil && file != nil {
		maxSize := int64(h.cfg.Audio.MaxFileSizeMB) * 1024 * 1024
		if file.Size > maxSize {
			return nil, noop, fmt.Errorf("audio file too large (max %dMB)", h.cfg.Audio.MaxFileSizeMB)
		}
		if !media.ValidateAudioFormat(file.Filename) {
			return nil, noop, fmt.Errorf("unsupported audio format %q", filepath.Ext(file.Filename))
		}

		tempPath := filepath.Join(h.uploadDir, fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(file.Filename)))
		if err := c.SaveFile(file, tempPath); err != nil {
			return nil, noop, fmt.Errorf("failed to save uploaded file: %v", err)
		}

		sub := &pipeline.Submission{
			AudioPath:      tempPath,
			ChunkSeconds:   formFloat(c, "chunk_seconds"),
			OverlapSeconds: formFloat(c, "overlap_seconds"),
			IdempotencyKey: c.FormValue("idempotency_key"),
			Patient:        c.FormValue("patient"),
			BaseName:       c.FormValue("base_name"),
			Prenom:         c.FormValue("prenom"),
			Date:           c.FormValue("date"),
			Register:       c.FormValue("register"),
		}
		return sub, func() { os.Remove(tempPath) }, nil
	}

	var body transcribeJSON
	if err := c.BodyParser(&body); err != nil {
		return nil, noop, fmt.Errorf("expected multipart audio or JSON transcript body")
	}
	if body.Transcript == "" {
		return nil, noop, fmt.Errorf("missing audio file or transcript text")
	}
	return &pipeline.Submission{
		Transcript:     body.Transcript,
		ChunkSeconds:   body.Options.ChunkSeconds,
		OverlapSeconds: body.Options.OverlapSeconds,
		IdempotencyKey: body.Options.IdempotencyKey,
	}, noop, nil
}

func formFloat(c *fiber.Ctx, field string) float64 {
	v := c.FormValue(field)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// segmentView joins windows and results by index into the wire shape
// {t:[start,end], text}.
func segmentView(windows []types.Window, results []types.SegmentResult) []fiber.Map {
	texts := make(map[int]types.SegmentResult, len(results))
	for _, r := range results {
		texts[r.Index] = r
	}
	out := make([]fiber.Map, 0, len(windows))
	for _, w := range windows {
		r := texts[w.Index]
		out = append(out, fiber.Map{
			"t":      []float64{w.Start, w.End},
			"text":   r.Text,
			"status": r.Status,
		})
	}
	return out
}
