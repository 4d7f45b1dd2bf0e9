package research

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabinetlabs/seanced/internal/errs"
	"github.com/cabinetlabs/seanced/internal/types"
)

func makeTranscript(text string) types.Transcript {
	sum := sha256.Sum256([]byte(text))
	return types.Transcript{Text: text, SHA256: hex.EncodeToString(sum[:]), Length: utf8.RuneCountInString(text)}
}

func TestRunPopulatesEveryField(t *testing.T) {
	transcript := makeTranscript("Bonjour, ceci est une séance de test.")
	payload, err := Run(context.Background(), transcript, Context{
		SessionID: "abc123",
		Prenom:    "Claire",
		Date:      "2026-08-29",
		Register:  "vous",
	})
	require.NoError(t, err)

	assert.Equal(t, "abc123", payload.Meta.SessionID)
	assert.Equal(t, transcript.SHA256, payload.Meta.Hash)
	assert.Equal(t, "2026-08-29", payload.Meta.Date)
	assert.Equal(t, "vous", payload.Meta.Register)

	assert.NotEmpty(t, payload.EvidenceSheet)
	require.Len(t, payload.CriticalSheet, len(Lenses))
	assert.Equal(t, Lenses, payload.LensesUsed)
	assert.NotNil(t, payload.ReperesCandidates)
	assert.NotEmpty(t, payload.ReperesCandidates)
	assert.NotNil(t, payload.PointsMail)
	assert.NotEmpty(t, payload.Chapters)
}

func TestRunDeterministic(t *testing.T) {
	transcript := makeTranscript("Je me sens toujours fatigué le matin. Mon corps se tend quand j'en parle.")
	rctx := Context{SessionID: "k", Date: "2026-01-15", Register: "tu"}

	a, err := Run(context.Background(), transcript, rctx)
	require.NoError(t, err)
	b, err := Run(context.Background(), transcript, rctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunLensReadings(t *testing.T) {
	transcript := makeTranscript(
		"Je sens une tension dans le ventre quand j'en parle. " +
			"C'est toujours la même histoire qui revient, encore et encore. " +
			"Avant c'était différent, maintenant tout se mélange.")
	payload, err := Run(context.Background(), transcript, Context{Register: "vous"})
	require.NoError(t, err)

	readings := map[string]string{}
	for _, r := range payload.CriticalSheet {
		readings[r.Lens] = r.Reading
	}
	assert.NotEmpty(t, readings["ancrage corporel"], "bodily markers should be picked up")
	assert.NotEmpty(t, readings["répétition"], "repetition markers should be picked up")
	assert.NotEmpty(t, readings["temporalité"], "temporal markers should be picked up")
}

func TestRunRegisterDefaultsToVous(t *testing.T) {
	payload, err := Run(context.Background(), makeTranscript("Une phrase."), Context{Register: "invalide"})
	require.NoError(t, err)
	assert.Equal(t, "vous", payload.Meta.Register)
	for _, p := range payload.PointsMail {
		assert.Contains(t, p, "Vous avez évoqué")
	}
}

func TestRunTuRegister(t *testing.T) {
	payload, err := Run(context.Background(), makeTranscript("Une phrase."), Context{Register: "tu"})
	require.NoError(t, err)
	for _, p := range payload.PointsMail {
		assert.Contains(t, p, "Tu as évoqué")
	}
}

func TestRunChaptersCoverDuration(t *testing.T) {
	transcript := makeTranscript(
		"L'ouverture pose le cadre. Le milieu déplie la question. La fin referme doucement. Une phrase de plus.")
	payload, err := Run(context.Background(), transcript, Context{Duration: 300})
	require.NoError(t, err)

	require.Len(t, payload.Chapters, 3)
	assert.Equal(t, 0.0, payload.Chapters[0].Start)
	assert.Equal(t, 300.0, payload.Chapters[len(payload.Chapters)-1].End)
	for _, ch := range payload.Chapters {
		assert.NotEmpty(t, ch.Label)
		assert.NotEmpty(t, ch.Summary)
	}
}

func TestRunEmptyTranscript(t *testing.T) {
	_, err := Run(context.Background(), types.Transcript{Text: "   "}, Context{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrStageFailure))
}

func TestEvidenceCutsAtSentenceBoundary(t *testing.T) {
	long := ""
	for i := 0; i < 40; i++ {
		long += "Cette phrase occupe une place raisonnable dans le texte. "
	}
	payload, err := Run(context.Background(), makeTranscript(long), Context{})
	require.NoError(t, err)
	assert.LessOrEqual(t, utf8.RuneCountInString(payload.EvidenceSheet), 400)
	assert.Equal(t, ".", payload.EvidenceSheet[len(payload.EvidenceSheet)-1:])
}
