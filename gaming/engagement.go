package gaming

import "time"

const engagementMinDwell = 15 * time.Second

// MinimalEngagementCheck is a low-weight placeholder for richer behavioral
// telemetry (session depth, time-on-task). It always contributes a signal
// so reviewers see the dimension, but absent real telemetry the risk stays
// well under the action threshold.
func MinimalEngagementCheck(completions []Completion) Signal {
	risk := 10
	details := map[string]any{"count": len(completions)}

	if len(completions) > 0 {
		var total time.Duration
		for _, c := range completions {
			total += c.DwellTime
		}
		avg := total / time.Duration(len(completions))
		details["avg_dwell_seconds"] = avg.Seconds()
		if avg < engagementMinDwell {
			risk += 10
		}
	}

	return newSignal(CheckMinimalEngagement, risk, 20, details)
}
