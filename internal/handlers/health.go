package handlers

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cabinetlabs/seanced/internal/media"
)

// HealthHandler serves GET /_health with the capability probes the UI needs
// to know about before submitting audio.
type HealthHandler struct {
	version string
	dataDir string
}

func NewHealthHandler(version, dataDir string) *HealthHandler {
	return &HealthHandler{version: version, dataDir: dataDir}
}

func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"version":    h.version,
		"ffmpeg":     media.HaveFFmpeg(),
		"ffprobe":    media.HaveFFprobe(),
		"read_write": h.canReadWrite(),
	})
}

func (h *HealthHandler) canReadWrite() bool {
	probe := filepath.Join(h.dataDir, ".health_"+uuid.New().String())
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return false
	}
	defer os.Remove(probe)
	data, err := os.ReadFile(probe)
	return err == nil && string(data) == "ok"
}
