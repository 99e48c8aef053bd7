package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var verdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_verdicts",
	Help: "Number of classification verdicts produced",
}, []string{"action", "severity"})

var classifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "gatekeeper_classify_duration_sec",
	Help: "Duration of content classification",
}, []string{"action"})

var queueItemCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatekeeper_queue_items_created",
	Help: "Number of moderation queue items created",
})

var queueResolutionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_queue_resolutions",
	Help: "Number of moderation queue resolutions",
}, []string{"decision"})

var usageCheckCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_usage_checks",
	Help: "Number of usage permission checks",
}, []string{"resource", "allowed"})

var rateLimitCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_rate_limit_checks",
	Help: "Number of rate limit checks",
}, []string{"action_kind", "allowed"})

var violationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_violations",
	Help: "Number of violations recorded",
}, []string{"type", "severity"})

var gamingSignalCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gatekeeper_gaming_signals_triggered",
	Help: "Number of anti-gaming signals crossing their action threshold",
}, []string{"check_type"})

var persistErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatekeeper_persist_errors",
	Help: "Number of persistence failures after retries",
})
