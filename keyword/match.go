package keyword

import (
	"regexp"
	"slices"
	"strings"
)

// Helper to check a single token against a list of tokens
func TokenInSet(tok string, set []string) bool {
	return slices.Contains(set, tok)
}

// AnyTokenInSet reports whether any token of the (already tokenized) text
// appears in the set. Matching is word-boundary by construction: tokens are
// whole words, so "class" never matches "ass".
func AnyTokenInSet(tokens []string, set []string) (string, bool) {
	for _, tok := range tokens {
		if TokenInSet(tok, set) {
			return tok, true
		}
	}
	return "", false
}

// ContainsAnyPhrase does case-insensitive substring matching of multi-word
// phrases. Used for phrase lists (crisis language) where tokenization would
// lose word adjacency.
func ContainsAnyPhrase(text string, phrases []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

// based on: https://stackoverflow.com/a/48769624, with no trailing period allowed
var urlRegex = regexp.MustCompile(`(?:(?:https?|ftp):\/\/)?[\w/\-?=%.]+\.[\w/\-&?=%.]*[\w/\-&?=%]+`)

func ExtractURLs(raw string) []string {
	return urlRegex.FindAllString(raw, -1)
}
