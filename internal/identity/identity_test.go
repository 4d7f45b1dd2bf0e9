package identity

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabinetlabs/seanced/internal/types"
)

func TestComputeStable(t *testing.T) {
	params := Params{ChunkSeconds: 120, OverlapSeconds: 4}
	payload := []byte("Bonjour, ceci est une séance de test.")

	first := Compute(payload, types.DomainText, params)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compute(payload, types.DomainText, params))
	}
}

func TestComputeFilesystemSafe(t *testing.T) {
	key := Compute([]byte("payload"), types.DomainAudio, Params{ChunkSeconds: 120, OverlapSeconds: 4})
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), key)
}

func TestDomainTagPreventsCollision(t *testing.T) {
	params := Params{ChunkSeconds: 120, OverlapSeconds: 4}
	payload := []byte("identical bytes")

	audio := Compute(payload, types.DomainAudio, params)
	text := Compute(payload, types.DomainText, params)
	assert.NotEqual(t, audio, text)
}

func TestParamsChangeKey(t *testing.T) {
	payload := []byte("same audio")
	a := Compute(payload, types.DomainAudio, Params{ChunkSeconds: 120, OverlapSeconds: 4})
	b := Compute(payload, types.DomainAudio, Params{ChunkSeconds: 60, OverlapSeconds: 4})
	c := Compute(payload, types.DomainAudio, Params{ChunkSeconds: 120, OverlapSeconds: 8})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}
