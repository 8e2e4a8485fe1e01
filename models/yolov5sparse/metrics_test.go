package yolov5sparse

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-sahi/inference"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice fails")
}

func TestMetricsRecordInferenceAndConversion(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	fx := newReferenceFixture()
	fx.pipeline.detections = append(fx.pipeline.detections, inference.Detection{5, 5, 5, 9, 0.9, 2})
	m := newModel(t, fx.config(), fx.pipeline, WithMetrics(metrics))

	require.NoError(t, m.PerformInference(context.Background(), fx.image))
	_, err = m.ConvertOriginalPredictions()
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Inferences.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.Predictions))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dropped.WithLabelValues(DropBelowThreshold)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dropped.WithLabelValues(DropDegenerate)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.Latency))

	fx.pipeline.err = errors.New("engine crashed")
	assert.Error(t, m.PerformInference(context.Background(), fx.image))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Inferences.WithLabelValues(OutcomeError)))
}

func TestNilMetricsAreIgnored(t *testing.T) {
	fx := newReferenceFixture()
	m, err := NewDetectionModel(fx.config(), WithPipeline(fx.pipeline), WithLogger(zap.NewNop()), WithMetrics(nil))
	require.NoError(t, err)

	require.NoError(t, m.PerformInference(context.Background(), fx.image))
	_, err = m.ConvertOriginalPredictions()
	assert.NoError(t, err)
}
