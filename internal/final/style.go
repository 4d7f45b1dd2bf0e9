package final

import (
	"fmt"
	"regexp"
	"strings"
)

// The style contract for the outgoing mail: prose only, no list markup, no
// dash sequences, straight quotation marks, bounded length, two mandatory
// titled sections in fixed order.

var bulletRe = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+•]|\d+[.)])[ \t]`)

var forbiddenRunes = map[rune]string{
	'–': "en dash",
	'—': "em dash",
	'“': "curly double quote",
	'”': "curly double quote",
	'‘': "curly single quote",
	'’': "curly single quote",
	'«': "guillemet",
	'»': "guillemet",
}

// Violations checks a mail text against the style contract and returns one
// message per broken rule. An empty slice means the text conforms.
func Violations(mail string, minWords, maxWords int) []string {
	var out []string

	if bulletRe.MatchString(mail) {
		out = append(out, "bulleted or numbered list markup")
	}
	if strings.Contains(mail, "--") {
		out = append(out, "double dash sequence")
	}
	for r, label := range forbiddenRunes {
		if strings.ContainsRune(mail, r) {
			out = append(out, label)
		}
	}

	words := len(strings.Fields(mail))
	if words < minWords {
		out = append(out, fmt.Sprintf("too short: %d words, minimum %d", words, minWords))
	}
	if words > maxWords {
		out = append(out, fmt.Sprintf("too long: %d words, maximum %d", words, maxWords))
	}

	idx1 := strings.Index(mail, SectionOpening)
	idx2 := strings.Index(mail, SectionContinuation)
	if idx1 != 0 {
		out = append(out, fmt.Sprintf("mail must begin with the %q section", SectionOpening))
	}
	if idx2 <= idx1 {
		out = append(out, fmt.Sprintf("missing or misplaced %q section", SectionContinuation))
	}

	return out
}

// sanitize rewrites transcript material quoted inside the mail so it cannot
// break the contract: curly quotes straightened, dash runs softened.
func sanitize(s string) string {
	replacer := strings.NewReplacer(
		"“", "\"", "”", "\"",
		"‘", "'", "’", "'",
		"«", "\"", "»", "\"",
		"–", ",", "—", ",",
	)
	s = replacer.Replace(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.TrimSpace(s)
}
