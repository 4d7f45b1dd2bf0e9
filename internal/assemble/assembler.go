// Package assemble reassembles per-segment transcriptions, in index order,
// into one transcript plus its hash and length.
package assemble

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cabinetlabs/seanced/internal/errs"
	"github.com/cabinetlabs/seanced/internal/types"
)

// Options tunes assembly behavior.
type Options struct {
	// TrimOverlap enables naive lexical de-duplication of the seconds
	// shared by adjacent windows. Off by default: text-level trimming can
	// drop genuinely repeated speech, and completeness wins over
	// precision here.
	TrimOverlap bool
	// MaxOverlapWords bounds how far TrimOverlap looks back. Zero means
	// the default of 12.
	MaxOverlapWords int
}

// Assemble concatenates segment texts strictly by index, never by arrival
// order, then hashes and measures the result.
func Assemble(results []types.SegmentResult, opts Options) (types.Transcript, error) {
	if len(results) == 0 {
		return types.Transcript{}, fmt.Errorf("%w: no segment results to assemble", errs.ErrStageFailure)
	}

	ordered := make([]types.SegmentResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	parts := make([]string, 0, len(ordered))
	for _, r := range ordered {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		if opts.TrimOverlap && len(parts) > 0 {
			text = trimOverlap(parts[len(parts)-1], text, opts.maxWords())
		}
		if text != "" {
			parts = append(parts, text)
		}
	}

	text := strings.Join(parts, " ")
	sum := sha256.Sum256([]byte(text))
	return types.Transcript{
		Text:   text,
		SHA256: hex.EncodeToString(sum[:]),
		Length: utf8.RuneCountInString(text),
	}, nil
}

func (o Options) maxWords() int {
	if o.MaxOverlapWords > 0 {
		return o.MaxOverlapWords
	}
	return 12
}

// trimOverlap drops the longest word-level prefix of next that is also a
// suffix of prev, up to maxWords words.
func trimOverlap(prev, next string, maxWords int) string {
	prevWords := strings.Fields(prev)
	nextWords := strings.Fields(next)

	limit := maxWords
	if len(prevWords) < limit {
		limit = len(prevWords)
	}
	if len(nextWords) < limit {
		limit = len(nextWords)
	}

	for n := limit; n > 0; n-- {
		if wordsEqual(prevWords[len(prevWords)-n:], nextWords[:n]) {
			return strings.Join(nextWords[n:], " ")
		}
	}
	return next
}

func wordsEqual(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
