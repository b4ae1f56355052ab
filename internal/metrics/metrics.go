// Package metrics exposes Prometheus counters for screening decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spigell/candidate-screener/internal/scoring"
)

const defaultNamespace = "screener"

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry sets a custom Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

// WithScoreBuckets sets custom buckets for the score histogram.
func WithScoreBuckets(buckets []float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = buckets
		}
	}
}

// Recorder counts scored candidates. A nil *Recorder is a valid no-op.
type Recorder struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	decisions      *prometheus.CounterVec
	hardRejections *prometheus.CounterVec
	scores         *prometheus.HistogramVec
	skipped        *prometheus.CounterVec
}

func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: defaultNamespace,
		buckets:   prometheus.LinearBuckets(0, 10, 11),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}

	r.decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "decisions_total",
		Help:      "Scored candidates by decided action and policy.",
	}, []string{"action", "policy"})

	r.hardRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "hard_rejections_total",
		Help:      "Candidates rejected by a hard rule, by rule category.",
	}, []string{"category"})

	r.scores = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "score",
		Help:      "Distribution of candidate scores.",
		Buckets:   r.buckets,
	}, []string{"policy"})

	r.skipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "filtered_total",
		Help:      "Candidates removed before scoring, by pipeline step.",
	}, []string{"step"})

	r.registry.MustRegister(r.decisions, r.hardRejections, r.scores, r.skipped)
	return r
}

// Observe records one scoring result.
func (r *Recorder) Observe(res scoring.Result) {
	if r == nil {
		return
	}
	policy := string(res.Policy)
	r.decisions.WithLabelValues(string(res.Action), policy).Inc()
	r.scores.WithLabelValues(policy).Observe(float64(res.Score))
	if res.HardRejected {
		r.hardRejections.WithLabelValues(string(res.RejectCategory)).Inc()
	}
}

// Filtered records candidates dropped by a pipeline step.
func (r *Recorder) Filtered(step string, dropped int) {
	if r == nil || dropped <= 0 {
		return
	}
	r.skipped.WithLabelValues(step).Add(float64(dropped))
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile dumps every metric in the text exposition format, suitable for
// the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
