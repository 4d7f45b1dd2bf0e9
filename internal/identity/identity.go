// Package identity derives the content-addressed session key. The key is a
// pure function of the payload bytes and the processing parameters: no
// wall-clock time, no salt, stable across restarts and machines.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/cabinetlabs/seanced/internal/types"
)

// Params are the processing knobs that participate in the key. Two
// submissions with the same bytes but different windowing produce different
// transcripts, so they must not share a key.
type Params struct {
	ChunkSeconds   float64
	OverlapSeconds float64
}

func (p Params) canonical() string {
	return "chunk=" + strconv.FormatFloat(p.ChunkSeconds, 'g', -1, 64) +
		",overlap=" + strconv.FormatFloat(p.OverlapSeconds, 'g', -1, 64)
}

// Compute returns the session key for a payload: lowercase hex, usable
// directly as a directory name. The domain tag keeps an audio file and a
// textually identical transcript apart.
func Compute(payload []byte, domain types.Domain, params Params) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write(payload)
	h.Write([]byte{0})
	h.Write([]byte(params.canonical()))
	return hex.EncodeToString(h.Sum(nil))
}
