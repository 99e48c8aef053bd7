package gaming

import (
	"sort"
	"time"
)

const (
	rapidWindow       = 2 * time.Hour
	rapidCountCutoff  = 3
	rapidMinDwell     = 30 * time.Second
	rapidMinGap       = 60 * time.Second
	highConfidenceMin = 3
)

// RapidCompletionCheck scores a burst of completions in the recent window.
// Risk adds up from three independent tells: too many completions, barely
// any time spent per completion, and back-to-back completion timestamps.
// Confidence scales with sample size.
func RapidCompletionCheck(completions []Completion) Signal {
	details := map[string]any{
		"window_hours": rapidWindow.Hours(),
		"count":        len(completions),
	}

	risk := 0
	if len(completions) > rapidCountCutoff {
		risk += 30
	}

	if len(completions) > 0 {
		var total time.Duration
		for _, c := range completions {
			total += c.DwellTime
		}
		avg := total / time.Duration(len(completions))
		details["avg_dwell_seconds"] = avg.Seconds()
		if avg < rapidMinDwell {
			risk += 40
		}
	}

	// +20 per consecutive pair completed under a minute apart
	ordered := make([]Completion, len(completions))
	copy(ordered, completions)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CompletedAt.Before(ordered[j].CompletedAt)
	})
	rapidPairs := 0
	for i := 1; i < len(ordered); i++ {
		if ordered[i].CompletedAt.Sub(ordered[i-1].CompletedAt) < rapidMinGap {
			rapidPairs++
			risk += 20
		}
	}
	details["rapid_pairs"] = rapidPairs

	confidence := len(completions) * 30
	if len(completions) >= highConfidenceMin {
		confidence = 90
	}

	return newSignal(CheckRapidCompletion, risk, confidence, details)
}
