package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/cabinetlabs/seanced/internal/config"
	"github.com/cabinetlabs/seanced/internal/final"
	"github.com/cabinetlabs/seanced/internal/identity"
	"github.com/cabinetlabs/seanced/internal/research"
	"github.com/cabinetlabs/seanced/internal/types"
)

// PromptHandler serves POST /prepare_prompt for both synthesis stages,
// selected by the stage query parameter.
type PromptHandler struct {
	cfg *config.Config
}

func NewPromptHandler(cfg *config.Config) *PromptHandler {
	return &PromptHandler{cfg: cfg}
}

type researchRequest struct {
	Transcript string `json:"transcript"`
	Prenom     string `json:"prenom"`
	BaseName   string `json:"base_name"`
	Date       string `json:"date"`
	Register   string `json:"register"`
}

// Handle dispatches on ?stage=research|final
func (h *PromptHandler) Handle(c *fiber.Ctx) error {
	switch c.Query("stage") {
	case "research":
		return h.handleResearch(c)
	case "final":
		return h.handleFinal(c)
	default:
		return badRequest(c, "stage must be research or final")
	}
}

func (h *PromptHandler) handleResearch(c *fiber.Ctx) error {
	var req researchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if req.Transcript == "" {
		return badRequest(c, "missing transcript")
	}

	sum := sha256.Sum256([]byte(req.Transcript))
	transcript := types.Transcript{
		Text:   req.Transcript,
		SHA256: hex.EncodeToString(sum[:]),
		Length: utf8.RuneCountInString(req.Transcript),
	}
	sessionID := identity.Compute([]byte(req.Transcript), types.DomainText, identity.Params{
		ChunkSeconds:   h.cfg.Audio.ChunkSeconds,
		OverlapSeconds: h.cfg.Audio.OverlapSeconds,
	})

	payload, err := research.Run(c.UserContext(), transcript, research.Context{
		SessionID: sessionID,
		Prenom:    req.Prenom,
		Date:      req.Date,
		Register:  req.Register,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(payload)
}

func (h *PromptHandler) handleFinal(c *fiber.Ctx) error {
	var payload types.ResearchPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid research payload")
	}

	result, err := final.Run(c.UserContext(), payload, final.Options{
		MinWords: h.cfg.Pipeline.MailMinWords,
		MaxWords: h.cfg.Pipeline.MailMaxWords,
		Attempts: h.cfg.Pipeline.StyleAttempts,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}
