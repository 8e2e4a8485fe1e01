package yolov5sparse

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for the inference counter.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Drop reasons for the dropped-detections counter.
const (
	DropBelowThreshold = "below_threshold"
	DropDegenerate     = "degenerate"
)

// Metrics are the Prometheus collectors a DetectionModel reports to.
// A nil *Metrics disables reporting.
type Metrics struct {
	Inferences  *prometheus.CounterVec
	Latency     prometheus.Histogram
	Predictions prometheus.Counter
	Dropped     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
//
// Arguments:
//   - reg: The registerer, e.g. prometheus.NewRegistry().
//
// Returns:
//   - *Metrics: The collectors.
//   - error: An error if any collector is already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Inferences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sahi",
			Subsystem: "yolov5sparse",
			Name:      "inferences_total",
			Help:      "Engine calls by outcome.",
		}, []string{"outcome"}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sahi",
			Subsystem: "yolov5sparse",
			Name:      "inference_duration_seconds",
			Help:      "Engine call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		Predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sahi",
			Subsystem: "yolov5sparse",
			Name:      "predictions_total",
			Help:      "Predictions emitted by conversion.",
		}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sahi",
			Subsystem: "yolov5sparse",
			Name:      "dropped_detections_total",
			Help:      "Raw detections dropped during conversion, by reason.",
		}, []string{"reason"}),
	}

	for _, c := range []prometheus.Collector{m.Inferences, m.Latency, m.Predictions, m.Dropped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeInference(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.Inferences.WithLabelValues(outcome).Inc()
	m.Latency.Observe(elapsed.Seconds())
}

func (m *Metrics) recordConversion(emitted int, dropped map[string]int) {
	if m == nil {
		return
	}
	m.Predictions.Add(float64(emitted))
	for reason, n := range dropped {
		m.Dropped.WithLabelValues(reason).Add(float64(n))
	}
}
