package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cabinetlabs/seanced/internal/artifacts"
)

// SessionsHandler serves GET /sessions: the most recently committed
// sessions from the index.
type SessionsHandler struct {
	index *artifacts.Index
}

func NewSessionsHandler(index *artifacts.Index) *SessionsHandler {
	return &SessionsHandler{index: index}
}

func (h *SessionsHandler) Handle(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	records, err := h.index.List(limit)
	if err != nil {
		return fail(c, err)
	}
	if records == nil {
		records = []artifacts.SessionRecord{}
	}
	return c.JSON(fiber.Map{"ok": true, "sessions": records})
}
