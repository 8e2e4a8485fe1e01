// Package yolov5sparse - Detection model adapter for sparse and quantized YOLOv5 graphs.
//
// The adapter hands images to an inference engine that already decodes anchors and
// applies NMS, keeps the raw engine output, and converts it into thresholded,
// remapped object predictions.
package yolov5sparse

import (
	"context"
	"image"
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-sahi/common"
	"github.com/nvr-ai/go-sahi/inference"
	"github.com/nvr-ai/go-sahi/inference/detectors"
	"github.com/nvr-ai/go-sahi/logger"
	"github.com/nvr-ai/go-sahi/models/postprocess"
)

// State is the lifecycle position of a DetectionModel.
type State int

const (
	// StateUnloaded means no pipeline is resolved yet.
	StateUnloaded State = iota
	// StateLoaded means a pipeline is resolved but no inference has succeeded since.
	StateLoaded
	// StateHasResults means a raw engine output is stored and can be converted.
	StateHasResults
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateHasResults:
		return "has_results"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Factory builds a pipeline from a configuration.
type Factory func(ctx context.Context, cfg Config) (inference.Pipeline, error)

// DefaultFactory builds the pipeline through detectors.PipelineBuilder.
func DefaultFactory(_ context.Context, cfg Config) (inference.Pipeline, error) {
	return detectors.NewPipelineBuilder().
		WithBackend(string(cfg.Backend)).
		WithDevice(cfg.Device).
		WithModel(cfg.ModelPath, cfg.ImageSize).
		WithLabelsFile(cfg.LabelsPath).
		WithTimeout(cfg.Timeout).
		Build()
}

// source is either a model location still to be loaded or a resolved pipeline.
type source interface {
	isSource()
}

type unresolvedSource struct {
	path string
}

type resolvedSource struct {
	pipeline inference.Pipeline
}

func (unresolvedSource) isSource() {}
func (resolvedSource) isSource()   {}

// Option configures a DetectionModel.
type Option func(*DetectionModel)

// WithPipeline backs the model with an already-built pipeline. It takes precedence over
// Config.ModelPath and leaves the model loaded regardless of Config.LoadAtInit.
func WithPipeline(p inference.Pipeline) Option {
	return func(m *DetectionModel) {
		if p != nil {
			m.source = resolvedSource{pipeline: p}
		}
	}
}

// WithLogger sets the logger. The default is logger.Log().
func WithLogger(l *zap.Logger) Option {
	return func(m *DetectionModel) {
		if l != nil {
			m.log = l
		}
	}
}

// WithMetrics reports inference and conversion counts to m.
func WithMetrics(metrics *Metrics) Option {
	return func(m *DetectionModel) {
		m.metrics = metrics
	}
}

// WithPipelineFactory replaces DefaultFactory.
func WithPipelineFactory(f Factory) Option {
	return func(m *DetectionModel) {
		if f != nil {
			m.factory = f
		}
	}
}

// DetectionModel adapts a post-NMS YOLOv5 engine to object predictions.
//
// A DetectionModel is not safe for concurrent use; callers serialize access.
type DetectionModel struct {
	config  Config
	source  source
	factory Factory
	log     *zap.Logger
	metrics *Metrics

	original    *inference.Output
	predictions []postprocess.ObjectPrediction
}

// NewDetectionModel validates cfg and creates the adapter.
//
// With a pipeline supplied through WithPipeline the model is loaded immediately.
// Otherwise Config.ModelPath is required and, when Config.LoadAtInit is set, loaded now.
//
// Arguments:
//   - cfg: The configuration.
//   - opts: Optional settings.
//
// Returns:
//   - *DetectionModel: The adapter.
//   - error: ErrInvalidConfig for a rejected configuration, ErrModelLoad if an eager load fails.
//
// Example:
//
// ```go
//
//	cfg := yolov5sparse.DefaultConfig()
//	cfg.ModelPath = "yolov5s-pruned-quant.onnx"
//	m, err := yolov5sparse.NewDetectionModel(cfg)
//	if err != nil {
//		return err
//	}
//	if err := m.PerformInference(ctx, img); err != nil {
//		return err
//	}
//	preds, err := m.ConvertOriginalPredictions()
//
// ```
func NewDetectionModel(cfg Config, opts ...Option) (*DetectionModel, error) {
	m := &DetectionModel{
		config:  cfg,
		factory: DefaultFactory,
		log:     logger.Log(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("yolov5sparse")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if m.source != nil {
		if cfg.ModelPath != "" {
			m.log.Debug("pipeline supplied, ignoring model path", zap.String("model_path", cfg.ModelPath))
		}
		return m, nil
	}

	if cfg.ModelPath == "" {
		return nil, newError(ErrInvalidConfig, nil, "either model_path or a pipeline is required")
	}
	m.source = unresolvedSource{path: cfg.ModelPath}

	if cfg.LoadAtInit {
		if err := m.Load(context.Background()); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Config returns the configuration the model was created with.
func (m *DetectionModel) Config() Config {
	return m.config
}

// Load resolves the pipeline from the model path. It is a no-op when already loaded.
//
// Arguments:
//   - ctx: Passed to the factory.
//
// Returns:
//   - error: ErrModelLoad if the engine rejects the path or configuration.
func (m *DetectionModel) Load(ctx context.Context) error {
	src, ok := m.source.(unresolvedSource)
	if !ok {
		return nil
	}

	start := time.Now()
	p, err := m.factory(ctx, m.config)
	if err != nil {
		return newError(ErrModelLoad, err, "load %s", src.path)
	}
	if p == nil {
		return newError(ErrModelLoad, nil, "factory returned no pipeline for %s", src.path)
	}
	m.source = resolvedSource{pipeline: p}

	m.log.Info("model loaded",
		zap.String("model_path", src.path),
		zap.String("backend", string(m.config.Backend)),
		zap.String("device", m.config.Device),
		zap.Int("categories", len(p.Labels())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// SetModel replaces the backing pipeline and clears stored results.
// The previous pipeline is not closed.
//
// Arguments:
//   - p: The new pipeline.
//
// Returns:
//   - error: ErrInvalidConfig if p is nil.
func (m *DetectionModel) SetModel(p inference.Pipeline) error {
	if p == nil {
		return newError(ErrInvalidConfig, nil, "pipeline must not be nil")
	}
	m.source = resolvedSource{pipeline: p}
	m.clearResults()
	return nil
}

// Pipeline returns the resolved engine handle, or nil while unloaded.
func (m *DetectionModel) Pipeline() inference.Pipeline {
	if src, ok := m.source.(resolvedSource); ok {
		return src.pipeline
	}
	return nil
}

// State returns the lifecycle position.
func (m *DetectionModel) State() State {
	switch {
	case m.original != nil:
		return StateHasResults
	case m.Pipeline() != nil:
		return StateLoaded
	default:
		return StateUnloaded
	}
}

// PerformInference runs the engine on img and stores its raw output, replacing any
// previous results. An unloaded model is loaded first.
//
// Arguments:
//   - ctx: Passed to the engine.
//   - img: The decoded image.
//
// Returns:
//   - error: ErrModelLoad if a deferred load fails, ErrInference if the engine fails or
//     returns a malformed output. A failed engine call clears previous results.
func (m *DetectionModel) PerformInference(ctx context.Context, img image.Image) error {
	if img == nil {
		return newError(ErrInference, nil, "image is nil")
	}
	if err := m.Load(ctx); err != nil {
		return err
	}
	p := m.Pipeline()

	start := time.Now()
	out, err := p.Run(ctx, img, inference.RunOptions{ConfidenceThreshold: m.config.ConfidenceThreshold})
	if err == nil {
		if verr := out.Validate(); verr != nil {
			err = newError(ErrInference, verr, "malformed engine output")
		}
	} else {
		err = newError(ErrInference, err, "engine run")
	}
	m.metrics.observeInference(time.Since(start), err)
	if err != nil {
		m.clearResults()
		return err
	}

	m.original = out.Clone()
	m.predictions = nil

	m.log.Debug("inference complete",
		zap.String("output_id", out.ID),
		zap.Int("detections", countDetections(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// OriginalPredictions returns a copy of the last raw engine output, or nil before the
// first successful inference.
func (m *DetectionModel) OriginalPredictions() *inference.Output {
	return m.original.Clone()
}

// ConvertOption configures ConvertOriginalPredictions.
type ConvertOption func(*convertOptions)

type convertOptions struct {
	shift     image.Point
	fullShape *image.Point
}

// WithShiftAmount records the offset of the inferred image inside a larger frame.
func WithShiftAmount(offset image.Point) ConvertOption {
	return func(o *convertOptions) {
		o.shift = offset
	}
}

// WithFullShape records the full frame size (X width, Y height) and clips boxes to it.
func WithFullShape(size image.Point) ConvertOption {
	return func(o *convertOptions) {
		o.fullShape = &size
	}
}

// ConvertOriginalPredictions converts the stored raw output into object predictions.
//
// Detections keep engine emission order. Each one is dropped when it scores below the
// confidence threshold; otherwise its class id is resolved to a name, its box is clipped
// to non-negative coordinates (and to the full shape when given), degenerate boxes are
// dropped, and the category id is remapped when a remapping is configured.
//
// Arguments:
//   - opts: Optional shift and full-shape settings.
//
// Returns:
//   - []postprocess.ObjectPrediction: A copy of the converted predictions.
//   - error: ErrState before any inference, ErrFormat for an unknown class id or remap key,
//     ErrInvalidConfig for a non-positive full shape. Nothing is stored on error.
func (m *DetectionModel) ConvertOriginalPredictions(opts ...ConvertOption) ([]postprocess.ObjectPrediction, error) {
	if m.original == nil {
		return nil, newError(ErrState, nil, "no predictions to convert")
	}

	var co convertOptions
	for _, opt := range opts {
		opt(&co)
	}
	if co.fullShape != nil && (co.fullShape.X <= 0 || co.fullShape.Y <= 0) {
		return nil, newError(ErrInvalidConfig, nil, "full shape must be positive, got %v", *co.fullShape)
	}

	dropped := map[string]int{}
	predictions := make([]postprocess.ObjectPrediction, 0, countDetections(m.original))
	for _, detections := range m.original.Boxes {
		for _, d := range detections {
			if d.Score() < m.config.ConfidenceThreshold {
				dropped[DropBelowThreshold]++
				continue
			}

			id := d.ClassID()
			name, err := m.categoryName(id)
			if err != nil {
				return nil, err
			}

			box := d.Box().ClampMin()
			if co.fullShape != nil {
				box = box.ClampTo(*co.fullShape)
			}
			if !box.Valid() {
				m.log.Warn("dropping degenerate box",
					zap.Stringer("bbox", box),
					zap.String("category", name),
					zap.Float32("score", d.Score()),
				)
				dropped[DropDegenerate]++
				continue
			}

			categoryID, err := m.remap(id, name)
			if err != nil {
				return nil, err
			}

			prediction := postprocess.ObjectPrediction{
				Category:    common.Category{ID: categoryID, Name: name},
				BBox:        box,
				Score:       d.Score(),
				ShiftAmount: co.shift,
			}
			if co.fullShape != nil {
				full := *co.fullShape
				prediction.FullShape = &full
			}
			predictions = append(predictions, prediction)
		}
	}

	m.predictions = predictions
	m.metrics.recordConversion(len(predictions), dropped)
	return m.ObjectPredictionList(), nil
}

// ObjectPredictionList returns a copy of the last converted predictions.
func (m *DetectionModel) ObjectPredictionList() []postprocess.ObjectPrediction {
	if m.predictions == nil {
		return nil
	}
	out := make([]postprocess.ObjectPrediction, len(m.predictions))
	for i, p := range m.predictions {
		out[i] = p
		if p.FullShape != nil {
			full := *p.FullShape
			out[i].FullShape = &full
		}
	}
	return out
}

// CategoryNames returns the category names ordered by class id: the configured category
// mapping when set, otherwise the engine labels. It is nil while unloaded without a mapping.
//
// A sparse category mapping yields a dense list, so an index into it is only a class id
// when the mapping keys are 0..n-1. Use Config().CategoryMapping for id lookups.
func (m *DetectionModel) CategoryNames() []string {
	if len(m.config.CategoryMapping) > 0 {
		ids := lo.Map(lo.Keys(m.config.CategoryMapping), func(key string, _ int) int {
			id, _ := strconv.Atoi(key)
			return id
		})
		sort.Ints(ids)
		return lo.Map(ids, func(id int, _ int) string {
			return m.config.CategoryMapping[strconv.Itoa(id)]
		})
	}
	if m.original != nil {
		return append([]string(nil), m.original.Labels...)
	}
	if p := m.Pipeline(); p != nil {
		return p.Labels()
	}
	return nil
}

// NumCategories returns the number of known categories.
func (m *DetectionModel) NumCategories() int {
	return len(m.CategoryNames())
}

// Unload closes the pipeline and returns the model to StateUnloaded. It is never
// called implicitly. A model created from a path can be loaded again afterwards.
func (m *DetectionModel) Unload() error {
	p := m.Pipeline()
	if p == nil {
		return nil
	}
	m.source = unresolvedSource{path: m.config.ModelPath}
	m.clearResults()
	if err := p.Close(); err != nil {
		return newError(ErrModelLoad, err, "close pipeline")
	}
	m.log.Info("model unloaded")
	return nil
}

func (m *DetectionModel) clearResults() {
	m.original = nil
	m.predictions = nil
}

// categoryName resolves a raw class id to its name.
func (m *DetectionModel) categoryName(id int) (string, error) {
	if len(m.config.CategoryMapping) > 0 {
		name, ok := m.config.CategoryMapping[strconv.Itoa(id)]
		if !ok {
			return "", newError(ErrFormat, nil, "class id %d missing from category_mapping", id)
		}
		return name, nil
	}
	labels := m.original.Labels
	if id < 0 || id >= len(labels) {
		return "", newError(ErrFormat, nil, "class id %d outside %d engine labels", id, len(labels))
	}
	return labels[id], nil
}

// remap translates a class to its destination id.
func (m *DetectionModel) remap(id int, name string) (int, error) {
	if len(m.config.CategoryRemapping) == 0 {
		return id, nil
	}
	key := strconv.Itoa(id)
	if m.config.remapBy() == RemapByName {
		key = name
	}
	dst, ok := m.config.CategoryRemapping[key]
	if !ok {
		return 0, newError(ErrFormat, nil, "category_remapping has no entry for %s %q", m.config.remapBy(), key)
	}
	return dst, nil
}

func countDetections(out *inference.Output) int {
	return lo.SumBy(out.Boxes, func(dets []inference.Detection) int {
		return len(dets)
	})
}
