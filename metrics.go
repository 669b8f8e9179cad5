package imgcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHitCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "derivative_cache_hits",
			Help: "Number of requests served from the derivative cache.",
		})
	cacheMissCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "derivative_cache_misses",
			Help: "Number of requests that required derivation.",
		})
	derivationSummary = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "derivation_seconds",
		Help: "Time taken for decode-resize-encode pipelines in seconds.",
	})
	derivationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "derivation_failures",
		Help: "Total failed derivations.",
	})
	dedupedWaitCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deduplicated_waits",
		Help: "Requests that waited on another request's in-flight derivation.",
	})
	preoptimizeCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preoptimize_generated",
		Help: "Derivatives generated by the pre-optimization pass.",
	})
)

func init() {
	prometheus.MustRegister(cacheHitCount)
	prometheus.MustRegister(cacheMissCount)
	prometheus.MustRegister(derivationSummary)
	prometheus.MustRegister(derivationFailures)
	prometheus.MustRegister(dedupedWaitCount)
	prometheus.MustRegister(preoptimizeCount)
}
