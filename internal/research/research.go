// Package research extracts structured analytical material from a session
// transcript: a literal evidence excerpt, a critical reading under a fixed
// set of lenses, candidate discussion anchors, seed sentences for the mail
// and a chaptering into labeled time bands.
//
// Every field of the payload is always populated, possibly with its empty
// value. A sub-extraction that finds nothing yields the empty value rather
// than an error, so the pipeline can still proceed to the final stage.
package research

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cabinetlabs/seanced/internal/errs"
	"github.com/cabinetlabs/seanced/internal/types"
)

// Lenses is the fixed set of named analytical lenses the critical sheet is
// built under, in their canonical order.
var Lenses = []string{
	"ancrage corporel",
	"mouvement défensif",
	"répétition",
	"énonciation",
	"temporalité",
}

var lensMarkers = map[string][]string{
	"ancrage corporel":   {"corps", "souffle", "respir", "ventre", "gorge", "épaule", "tension", "geste", "main"},
	"mouvement défensif": {"mais ", "éviter", "évite", "protég", "fuir", "retenir", "pas envie", "difficile de dire"},
	"répétition":         {"encore", "toujours", "souvent", "chaque fois", "répèt", "comme avant", "à nouveau"},
	"énonciation":        {"je ", "j'", "on ", "il faut", "peut-être", "je crois", "je pense", "je sais pas"},
	"temporalité":        {"hier", "demain", "avant", "après", "maintenant", "enfance", "passé", "futur", "semaine"},
}

var chapterLabels = []string{"ouverture", "déploiement", "clôture"}

const evidenceMaxRunes = 400

// Context carries the optional session metadata the caller supplies.
type Context struct {
	SessionID string
	Prenom    string
	Date      string
	Register  string
	// Duration of the source audio in seconds; zero for text submissions,
	// in which case chapters are banded over an estimated duration.
	Duration float64
}

// Run produces the research payload for a transcript. The only error is an
// empty transcript; partial extraction failures degrade to empty fields.
func Run(_ context.Context, transcript types.Transcript, rctx Context) (types.ResearchPayload, error) {
	if strings.TrimSpace(transcript.Text) == "" {
		return types.ResearchPayload{}, fmt.Errorf("%w: empty transcript", errs.ErrStageFailure)
	}

	register := rctx.Register
	if register != "tu" {
		register = "vous"
	}
	date := rctx.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	sentences := splitSentences(transcript.Text)
	duration := rctx.Duration
	if duration <= 0 {
		// rough speech-rate estimate when no audio duration is known
		duration = float64(len(strings.Fields(transcript.Text))) / 2.5
		if duration < 1 {
			duration = 1
		}
	}

	payload := types.ResearchPayload{
		Meta: types.ResearchMeta{
			SessionID: rctx.SessionID,
			Hash:      transcript.SHA256,
			Date:      date,
			Prenom:    rctx.Prenom,
			Register:  register,
		},
		EvidenceSheet:     evidence(transcript.Text),
		CriticalSheet:     criticalSheet(sentences),
		LensesUsed:        append([]string(nil), Lenses...),
		ReperesCandidates: reperes(sentences),
		PointsMail:        pointsMail(sentences, register),
		Chapters:          chapters(sentences, duration),
	}
	return payload, nil
}

var sentenceEnd = regexp.MustCompile(`[.!?]+\s*`)

func splitSentences(text string) []string {
	parts := sentenceEnd.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// evidence returns a literal excerpt from the start of the transcript, cut
// at a sentence boundary when one falls inside the budget.
func evidence(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= evidenceMaxRunes {
		return text
	}
	runes := []rune(text)
	cut := evidenceMaxRunes
	for i := cut; i > evidenceMaxRunes/2; i-- {
		switch runes[i-1] {
		case '.', '!', '?':
			return string(runes[:i])
		}
	}
	return string(runes[:cut])
}

func criticalSheet(sentences []string) []types.LensReading {
	sheet := make([]types.LensReading, 0, len(Lenses))
	for _, lens := range Lenses {
		sheet = append(sheet, types.LensReading{Lens: lens, Reading: readingFor(lens, sentences)})
	}
	return sheet
}

func readingFor(lens string, sentences []string) string {
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, marker := range lensMarkers[lens] {
			if strings.Contains(lower, marker) {
				return s
			}
		}
	}
	return ""
}

var repereMarkers = []string{"je ", "j'", "peur", "envie", "colère", "triste", "seul", "fatigu", "important"}

// reperes picks sentences worth returning to in a later session, capped at
// five, in transcript order.
func reperes(sentences []string) []string {
	out := []string{}
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, marker := range repereMarkers {
			if strings.Contains(lower, marker) {
				out = append(out, s)
				break
			}
		}
		if len(out) == 5 {
			break
		}
	}
	if len(out) == 0 && len(sentences) > 0 {
		out = append(out, sentences[0])
	}
	return out
}

// pointsMail builds register-aware seed sentences for the eventual mail.
func pointsMail(sentences []string, register string) []string {
	evoque := "Vous avez évoqué"
	if register == "tu" {
		evoque = "Tu as évoqué"
	}
	out := []string{}
	for i, s := range sentences {
		if i == 3 {
			break
		}
		out = append(out, fmt.Sprintf("%s : %s.", evoque, shorten(s, 90)))
	}
	return out
}

// chapters bands the session into up to three labeled time slices, each
// summarized by its opening sentence.
func chapters(sentences []string, duration float64) []types.Chapter {
	n := len(chapterLabels)
	if len(sentences) < n {
		n = len(sentences)
	}
	if n == 0 {
		return []types.Chapter{}
	}
	band := duration / float64(n)
	per := len(sentences) / n

	out := make([]types.Chapter, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * band
		end := start + band
		if i == n-1 {
			end = duration
		}
		out = append(out, types.Chapter{
			Label:   chapterLabels[i],
			Start:   start,
			End:     end,
			Summary: shorten(sentences[i*per], 110),
		})
	}
	return out
}

func shorten(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	cut := maxRunes
	for cut > 0 && runes[cut-1] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = maxRunes
	}
	return strings.TrimSpace(string(runes[:cut])) + "..."
}
