package gaming

import (
	"regexp"
	"strings"
)

var mashPatterns = []*regexp.Regexp{
	// keyboard rows
	regexp.MustCompile(`(?i)(asdf|sdfg|qwer|wert|zxcv|xcvb|hjkl)`),
	// test/placeholder filler
	regexp.MustCompile(`(?i)\b(test(ing)? ?){2,}`),
	regexp.MustCompile(`(?i)lorem ipsum`),
	regexp.MustCompile(`(?i)\b(blah ?){2,}`),
	regexp.MustCompile(`(123){2,}`),
}

// ContentQualityCheck scores how synthetic a journal entry looks: a
// near-single-character string, one word repeated over and over, or
// keyboard-mash/placeholder patterns.
func ContentQualityCheck(text string) Signal {
	details := map[string]any{"length": len(text)}
	risk := 0

	ratio := uniqueCharRatio(text)
	details["unique_char_ratio"] = ratio
	if len(text) > 0 && ratio < 0.3 {
		risk += 50
	}

	if word, frac := topWordFraction(text); frac > 0.3 {
		details["top_word"] = word
		details["top_word_fraction"] = frac
		risk += 40
	}

	if mashed(text) {
		risk += 60
		details["keyboard_mash"] = true
	}

	// short strings give low confidence, anything substantial is high
	confidence := 50
	if len(text) >= 10 {
		confidence = 85
	}

	return newSignal(CheckContentQuality, risk, confidence, details)
}

// keyboard-mash and placeholder detection: pattern list plus a scan for
// long identical-character runs (RE2 has no backreferences)
func mashed(text string) bool {
	for _, re := range mashPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= 5 {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func uniqueCharRatio(text string) float64 {
	if len(text) == 0 {
		return 1
	}
	seen := make(map[rune]bool)
	total := 0
	for _, r := range text {
		seen[r] = true
		total++
	}
	return float64(len(seen)) / float64(total)
}

// fraction of total words taken up by the most repeated word
func topWordFraction(text string) (string, float64) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) < 2 {
		return "", 0
	}
	counts := make(map[string]int)
	for _, w := range words {
		counts[w]++
	}
	topWord, top := "", 0
	for w, n := range counts {
		if n > top {
			topWord, top = w, n
		}
	}
	// a word used once isn't "repeated", whatever its share
	if top < 2 {
		return "", 0
	}
	return topWord, float64(top) / float64(len(words))
}
