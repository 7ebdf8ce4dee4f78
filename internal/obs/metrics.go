// Package obs provides Prometheus metrics for the build and search
// paths, following the teacher's promauto-at-construction-time style.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram this module emits. A zero
// Metrics is never used directly; callers without a registry simply
// pass a nil *Metrics and every method below is a nil-safe no-op, so
// instrumentation never becomes a hard dependency for build/search
// correctness.
type Metrics struct {
	// Registry is this Metrics' own registerer rather than
	// prometheus's global default: NewMetrics is called once per
	// opened Collection (see spanndb.OpenCollection), and a library
	// whose callers may open many collections in one process must
	// not re-register the same metric names against the global
	// DefaultRegisterer on every open. Callers that want these
	// metrics scraped register Registry with their own exporter.
	Registry *prometheus.Registry

	BuildsTotal         prometheus.Counter
	BuildDuration       prometheus.Histogram
	BuildFailures       prometheus.Counter
	PostingListsScanned prometheus.Counter
	VectorsScanned      prometheus.Counter
	SearchQueries       prometheus.Counter
	SearchErrors        prometheus.Counter
	SearchLatency       prometheus.Histogram
	CodecBytesWritten   prometheus.Counter
}

// NewMetrics registers and returns a fresh metric set against its own
// private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		BuildsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanndb_builds_total",
			Help: "Total segment/index build invocations.",
		}),
		BuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "spanndb_build_duration_seconds",
			Help: "Wall-clock duration of a build call.",
		}),
		BuildFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanndb_build_failures_total",
			Help: "Builds that returned an error.",
		}),
		PostingListsScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanndb_posting_lists_scanned_total",
			Help: "Posting lists visited across all searches.",
		}),
		VectorsScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanndb_vectors_scanned_total",
			Help: "Candidate vectors distance-scored across all searches.",
		}),
		SearchQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanndb_search_queries_total",
			Help: "Total search calls.",
		}),
		SearchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanndb_search_errors_total",
			Help: "Search calls that returned a non-nil error.",
		}),
		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "spanndb_search_latency_seconds",
			Help: "Search call latency.",
		}),
		CodecBytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "spanndb_codec_bytes_written_total",
			Help: "Bytes written by posting-list codec encoders.",
		}),
	}
}

// ObserveBuild records a completed build's duration and outcome.
func (m *Metrics) ObserveBuild(seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.BuildsTotal.Inc()
	m.BuildDuration.Observe(seconds)
	if failed {
		m.BuildFailures.Inc()
	}
}

// ObserveSearch records one search call's latency and outcome.
func (m *Metrics) ObserveSearch(seconds float64, err error) {
	if m == nil {
		return
	}
	m.SearchQueries.Inc()
	m.SearchLatency.Observe(seconds)
	if err != nil {
		m.SearchErrors.Inc()
	}
}

// AddPostingListsScanned accumulates the number of posting lists
// visited during a single search call.
func (m *Metrics) AddPostingListsScanned(n int) {
	if m == nil {
		return
	}
	m.PostingListsScanned.Add(float64(n))
}

// AddVectorsScanned accumulates the number of candidate vectors
// distance-scored during a single search call.
func (m *Metrics) AddVectorsScanned(n int) {
	if m == nil {
		return
	}
	m.VectorsScanned.Add(float64(n))
}

// AddCodecBytesWritten accumulates bytes emitted by a codec encoder.
func (m *Metrics) AddCodecBytesWritten(n int) {
	if m == nil {
		return
	}
	m.CodecBytesWritten.Add(float64(n))
}
