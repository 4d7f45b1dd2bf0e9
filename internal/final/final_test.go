package final

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabinetlabs/seanced/internal/errs"
	"github.com/cabinetlabs/seanced/internal/types"
)

func sampleResearch() types.ResearchPayload {
	return types.ResearchPayload{
		Meta: types.ResearchMeta{
			SessionID: "abc",
			Hash:      "deadbeef",
			Date:      "2026-08-29",
			Prenom:    "Claire",
			Register:  "vous",
		},
		EvidenceSheet: "Bonjour, ceci est une séance de test.",
		CriticalSheet: []types.LensReading{
			{Lens: "ancrage corporel", Reading: "une tension dans le ventre"},
			{Lens: "mouvement défensif", Reading: "je voudrais avancer mais quelque chose retient"},
			{Lens: "répétition", Reading: ""},
			{Lens: "énonciation", Reading: "je crois que c'est important"},
			{Lens: "temporalité", Reading: ""},
		},
		LensesUsed:        []string{"ancrage corporel", "mouvement défensif", "répétition", "énonciation", "temporalité"},
		ReperesCandidates: []string{"la fatigue du matin", "le silence au travail"},
		PointsMail:        []string{"Vous avez évoqué : la fatigue du matin.", "Vous avez évoqué : le silence au travail."},
		Chapters: []types.Chapter{
			{Label: "ouverture", Start: 0, End: 100, Summary: "pose le cadre"},
			{Label: "clôture", Start: 100, End: 200, Summary: "referme doucement"},
		},
	}
}

func TestRunProducesConformantMail(t *testing.T) {
	out, err := Run(context.Background(), sampleResearch(), Options{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.MailMarkdown, SectionOpening),
		"mail must begin with the fixed first section title")
	assert.Contains(t, out.MailMarkdown, SectionContinuation)
	assert.Empty(t, Violations(out.MailMarkdown, 550, 1000))

	words := len(strings.Fields(out.MailMarkdown))
	assert.GreaterOrEqual(t, words, 550)
	assert.LessOrEqual(t, words, 1000)
}

func TestRunDeterministic(t *testing.T) {
	a, err := Run(context.Background(), sampleResearch(), Options{})
	require.NoError(t, err)
	b, err := Run(context.Background(), sampleResearch(), Options{})
	require.NoError(t, err)
	assert.Equal(t, a.MailMarkdown, b.MailMarkdown)
	assert.Equal(t, a.PlanMarkdown, b.PlanMarkdown)
}

func TestRunAnalysis(t *testing.T) {
	out, err := Run(context.Background(), sampleResearch(), Options{})
	require.NoError(t, err)

	assert.Len(t, out.Analysis.Lenses, 5)
	assert.Equal(t, []string{"la fatigue du matin", "le silence au travail"}, out.Analysis.ReperesSelected)
	require.NotEmpty(t, out.Analysis.Contradictions, "the 'mais' reading should surface a tension")
	assert.NotEmpty(t, out.Analysis.Objectives)
}

func TestRunPlanHasBothSections(t *testing.T) {
	out, err := Run(context.Background(), sampleResearch(), Options{})
	require.NoError(t, err)
	assert.Contains(t, out.PlanMarkdown, "## "+SectionOpening)
	assert.Contains(t, out.PlanMarkdown, "## "+SectionContinuation)
}

func TestRunTuRegister(t *testing.T) {
	research := sampleResearch()
	research.Meta.Register = "tu"
	out, err := Run(context.Background(), research, Options{})
	require.NoError(t, err)
	assert.Contains(t, out.MailMarkdown, "Je reviens vers toi")
	assert.Contains(t, out.MailMarkdown, "Bien à toi.")
}

func TestRunStyleViolationAfterBudget(t *testing.T) {
	// a ceiling below the irreducible mail skeleton cannot be met
	_, err := Run(context.Background(), sampleResearch(), Options{MinWords: 5, MaxWords: 10, Attempts: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrStyleViolation))
}

func TestViolationsDetectsListMarkup(t *testing.T) {
	base := SectionOpening + "\n\nDu texte. " + SectionContinuation + "\n\nEncore du texte."
	cases := map[string]string{
		"dash bullet":     base + "\n- un point",
		"star bullet":     base + "\n* un point",
		"numbered list":   base + "\n1. un point",
		"paren numbered":  base + "\n2) un point",
		"bullet rune":     base + "\n• un point",
		"double dash":     base + " avant -- après",
		"em dash":         base + " avant — après",
		"en dash":         base + " avant – après",
		"curly quotes":    base + " il dit “bonjour”",
		"curly apostroph": base + " c’est dit",
		"guillemets":      base + " il dit « bonjour »",
	}
	for name, mail := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotEmpty(t, Violations(mail, 1, 10000), "should flag %s", name)
		})
	}
}

func TestViolationsWordBounds(t *testing.T) {
	mail := SectionOpening + " texte " + SectionContinuation + " suite"
	assert.NotEmpty(t, Violations(mail, 100, 200), "too short")
	assert.NotEmpty(t, Violations(mail, 1, 3), "too long")
}

func TestViolationsSectionOrder(t *testing.T) {
	missing := SectionOpening + "\n\nDu texte sans seconde section."
	assert.NotEmpty(t, Violations(missing, 1, 10000))

	wrongStart := "Bonjour.\n\n" + SectionOpening + "\n\n" + SectionContinuation
	assert.NotEmpty(t, Violations(wrongStart, 1, 10000))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, `il dit "oui" et c'est tout`, sanitize("il dit “oui” et c’est tout"))
	assert.NotContains(t, sanitize("avant -- milieu --- après"), "--")
	assert.NotContains(t, sanitize("avant — après"), "—")
}
