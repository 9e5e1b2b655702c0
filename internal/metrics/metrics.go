// Package metrics records Prometheus metrics for a run and exports them
// in the node-exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/volcaprep/internal/events"
	"github.com/smazurov/volcaprep/internal/process"
)

const namespace = "volcaprep"

// Recorder owns a private registry so a run only exports its own series.
type Recorder struct {
	registry *prometheus.Registry

	samplesConverted  prometheus.Counter
	samplesFailed     *prometheus.CounterVec
	conversionSeconds prometheus.Histogram
	paddingSeconds    prometheus.Counter

	batchSamples       prometheus.Gauge
	batchBytes         prometheus.Gauge
	batchSeconds       prometheus.Gauge
	validationFailures *prometheus.CounterVec

	slotsEncoded   prometheus.Counter
	encodeFailures prometheus.Counter
	encodeSeconds  prometheus.Histogram
	slotsPlayed    prometheus.Counter

	jobs *prometheus.CounterVec
}

// New creates a Recorder with all series registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		samplesConverted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "samples_total",
			Help:      "Samples converted successfully",
		}),
		samplesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "failures_total",
			Help:      "Samples skipped after a failed transform stage",
		}, []string{"stage"}),
		conversionSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "duration_seconds",
			Help:      "Wall time spent converting one sample",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		paddingSeconds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "convert",
			Name:      "padding_seconds_total",
			Help:      "Trailing silence added across all samples",
		}),

		batchSamples: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "samples",
			Help:      "Samples in the validated batch",
		}),
		batchBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "size_bytes",
			Help:      "Total size of the batch",
		}),
		batchSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "audio_seconds",
			Help:      "Total audio length of the batch",
		}),
		validationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "validation_failures_total",
			Help:      "Batches rejected, by violated constraint",
		}, []string{"constraint"}),

		slotsEncoded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "encode",
			Name:      "slots_total",
			Help:      "Slots encoded successfully",
		}),
		encodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "encode",
			Name:      "failures_total",
			Help:      "Encoder invocations that failed",
		}),
		encodeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "encode",
			Name:      "duration_seconds",
			Help:      "Wall time spent encoding one slot",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		slotsPlayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "slots_total",
			Help:      "Slot files played to the device",
		}),

		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "job_transitions_total",
			Help:      "Worker pool job state transitions",
		}, []string{"pipeline", "state"}),
	}
}

// Attach subscribes the recorder to bus. Returns an unsubscribe function.
func (r *Recorder) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.SampleConverted) {
			r.samplesConverted.Inc()
			r.conversionSeconds.Observe(e.Elapsed.Seconds())
			r.paddingSeconds.Add(e.Padding.Seconds())
		}),
		bus.Subscribe(func(e events.SampleFailed) {
			r.samplesFailed.WithLabelValues(e.Stage).Inc()
		}),
		bus.Subscribe(func(e events.BatchValidated) {
			r.batchSamples.Set(float64(e.Count))
			r.batchBytes.Set(float64(e.SizeBytes))
			r.batchSeconds.Set(e.Duration.Seconds())
			if e.Violation != "" {
				r.validationFailures.WithLabelValues(e.Violation).Inc()
			}
		}),
		bus.Subscribe(func(e events.SlotEncoded) {
			if e.Error != "" {
				r.encodeFailures.Inc()
				return
			}
			r.slotsEncoded.Inc()
			r.encodeSeconds.Observe(e.Elapsed.Seconds())
		}),
		bus.Subscribe(func(events.SlotPlayed) {
			r.slotsPlayed.Inc()
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// JobStateHook returns a pool callback counting job transitions for pipeline.
func (r *Recorder) JobStateHook(pipeline string) process.StateChangeCallback {
	return func(_ string, _, newState process.State, _ error) {
		r.jobs.WithLabelValues(pipeline, string(newState)).Inc()
	}
}

// Gatherer exposes the registry, e.g. for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all series to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
