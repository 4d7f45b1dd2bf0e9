package handlers

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/cabinetlabs/seanced/internal/artifacts"
	"github.com/cabinetlabs/seanced/internal/errs"
	"github.com/cabinetlabs/seanced/internal/logger"
)

// ArtifactsHandler serves GET /artifacts/* strictly from inside the storage
// root. Traversal attempts get a 403, whatever the separator style.
type ArtifactsHandler struct {
	store *artifacts.Store
	log   *logger.Logger
}

func NewArtifactsHandler(store *artifacts.Store, log *logger.Logger) *ArtifactsHandler {
	return &ArtifactsHandler{store: store, log: log}
}

// Handle resolves and serves one persisted file
func (h *ArtifactsHandler) Handle(c *fiber.Ctx) error {
	rel := c.Params("*")

	abs, err := h.store.Resolve(rel)
	if err != nil {
		h.log.WithField("path", rel).Warn("artifact path rejected")
		return fail(c, err)
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return fail(c, errs.ErrNotFound)
	}
	return c.SendFile(abs)
}
