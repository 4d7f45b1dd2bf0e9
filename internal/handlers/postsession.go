package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cabinetlabs/seanced/internal/config"
	"github.com/cabinetlabs/seanced/internal/logger"
	"github.com/cabinetlabs/seanced/internal/pipeline"
)

// SessionHandler serves POST /post_session: the full orchestration from
// submission to committed artifact bundle.
type SessionHandler struct {
	orch       *pipeline.Orchestrator
	transcribe *TranscribeHandler
	log        *logger.Logger
}

func NewSessionHandler(orch *pipeline.Orchestrator, cfg *config.Config, uploadDir string, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		orch:       orch,
		transcribe: NewTranscribeHandler(orch, cfg, uploadDir, log),
		log:        log,
	}
}

type sessionJSON struct {
	transcribeJSON
	Patient  string `json:"patient"`
	BaseName string `json:"base_name"`
	Prenom   string `json:"prenom"`
	Date     string `json:"date"`
	Register string `json:"register"`
}

// Handle runs the whole pipeline for one submission
func (h *SessionHandler) Handle(c *fiber.Ctx) error {
	sub, cleanup, err := h.parse(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	defer cleanup()

	ctx, cancel := h.transcribe.requestContext(c)
	defer cancel()

	res, err := h.orch.RunSession(ctx, *sub)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"ok": true,
		"meta": fiber.Map{
			"session_id": res.Bundle.SessionID,
			"patient":    sub.Patient,
			"date":       res.Research.Meta.Date,
			"base_name":  sub.BaseName,
			"register":   res.Research.Meta.Register,
			"cached":     res.Cached,
		},
		"plan":      res.Final.PlanMarkdown,
		"analysis":  res.Final.Analysis,
		"mail":      res.Final.MailMarkdown,
		"artifacts": res.Bundle.Paths,
	})
}

func (h *SessionHandler) parse(c *fiber.Ctx) (*pipeline.Submission, func(), error) {
	sub, cleanup, err := h.transcribe.parseSubmission(c)
	if err != nil {
		return nil, cleanup, err
	}
	// multipart metadata is picked up by parseSubmission; the JSON variant
	// carries it alongside the transcript
	if sub.AudioPath == "" {
		var body sessionJSON
		if perr := c.BodyParser(&body); perr == nil {
			sub.Patient = body.Patient
			sub.BaseName = body.BaseName
			sub.Prenom = body.Prenom
			sub.Date = body.Date
			sub.Register = body.Register
		}
	}
	return sub, cleanup, nil
}
