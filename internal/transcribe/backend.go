package transcribe

import (
	"context"

	"github.com/cabinetlabs/seanced/internal/logger"
)

// Backend is a pluggable transcription backend. The variant is selected once
// at construction; call sites never re-check credentials.
type Backend interface {
	// Transcribe converts one extracted audio window into text.
	Transcribe(ctx context.Context, wav []byte) (string, error)
	// Name identifies the variant ("remote" or "offline") for logging and
	// for tagging degraded segments.
	Name() string
}

// Select picks the backend from configuration: remote when an ASR credential
// is configured, the deterministic offline variant otherwise.
func Select(endpoint, apiKey string, timeoutSeconds int, log *logger.Logger) Backend {
	if apiKey != "" && endpoint != "" {
		log.WithField("backend", "remote").Info("ASR credential configured, using remote transcription")
		return NewRemote(endpoint, apiKey, timeoutSeconds)
	}
	log.WithField("backend", "offline").Warn("no ASR credential configured, using offline placeholder transcription")
	return NewOffline()
}
