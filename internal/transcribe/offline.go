package transcribe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Offline is the local-fallback variant used when no speech service
// credential is configured. It never fabricates speech: the same audio
// always yields the same clearly annotated placeholder.
type Offline struct{}

func NewOffline() *Offline { return &Offline{} }

func (o *Offline) Name() string { return "offline" }

func (o *Offline) Transcribe(_ context.Context, wav []byte) (string, error) {
	digest := sha256.Sum256(wav)
	return fmt.Sprintf("[transcription indisponible: service vocal non configuré, segment audio %s]",
		hex.EncodeToString(digest[:6])), nil
}
