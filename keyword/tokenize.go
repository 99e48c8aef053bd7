package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)

// Splits free-form text in to tokens: lower-case, unicode normalization,
// diacritic folding. The goal is fast membership checks against curated
// word lists, tolerant of punctuation and accent tricks.
func TokenizeText(text string) []string {
	// the transform chain is stateful, so build a fresh one per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	bare := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	folded, _, err := transform.String(normFunc, bare)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		folded = bare
	}
	return strings.Fields(folded)
}

var nonSlugChars = regexp.MustCompile(`[^\pL\pN]+`)

// Slugify strips all non-letter, non-digit characters and lower-cases,
// collapsing spacing/punctuation evasions ("k i l l" -> "kill").
func Slugify(orig string) string {
	return strings.ToLower(nonSlugChars.ReplaceAllString(orig, ""))
}
