package detectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/nvr-ai/go-sahi/inference"
)

// RemotePredictPath is the upload endpoint of a DeepSparse-compatible YOLO server.
const RemotePredictPath = "/predict/from_files"

// RemotePipeline sends images to a DeepSparse-compatible inference server.
//
// The server owns the model, runs NMS and returns boxes in source image pixels.
type RemotePipeline struct {
	client *resty.Client
	config Config
	labels []string
}

// remoteResponse is the server reply for a batch of images.
type remoteResponse struct {
	Boxes  [][][]float32   `json:"boxes"`
	Scores [][]float32     `json:"scores"`
	Labels [][]remoteLabel `json:"labels"`
}

// remoteLabel is a class id the server may send as a number or as a string such as "2.0".
type remoteLabel float64

func (l *remoteLabel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("unparsable label %q", s)
		}
		*l = remoteLabel(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unparsable label %s", b)
	}
	*l = remoteLabel(v)
	return nil
}

// NewRemotePipeline creates a client for the server at config.ModelPath.
//
// Arguments:
//   - config: The pipeline configuration. ModelPath is the server base URL.
//
// Returns:
//   - *RemotePipeline: The pipeline.
//   - error: An error if the base URL is not an http(s) URL.
func NewRemotePipeline(config Config) (*RemotePipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid remote pipeline config: %w", err)
	}
	u, err := url.Parse(config.ModelPath)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("remote model path must be an http(s) URL, got %q", config.ModelPath)
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.ModelPath, "/")).
		SetTimeout(config.Timeout)

	return &RemotePipeline{
		client: client,
		config: config,
		labels: resolveLabels(config.Labels),
	}, nil
}

// Run uploads img as a JPEG and converts the server reply into detections.
func (p *RemotePipeline) Run(ctx context.Context, img image.Image, opts inference.RunOptions) (*inference.Output, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot run on an empty image")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	var body remoteResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetFileReader("request", "image.jpg", bytes.NewReader(buf.Bytes())).
		SetResult(&body).
		Post(RemotePredictPath)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned error: %s, body: %s", resp.Status(), resp.String())
	}

	detections, err := body.detections(opts.ConfidenceThreshold)
	if err != nil {
		return nil, err
	}
	return inference.NewOutput(p.Labels(), detections), nil
}

// detections flattens the first image of the reply, keeping rows at or above threshold.
func (r remoteResponse) detections(threshold float32) ([]inference.Detection, error) {
	if len(r.Boxes) == 0 || len(r.Scores) == 0 || len(r.Labels) == 0 {
		return nil, fmt.Errorf("server reply has no image entries")
	}
	boxes, scores, labels := r.Boxes[0], r.Scores[0], r.Labels[0]
	if len(boxes) != len(scores) || len(boxes) != len(labels) {
		return nil, fmt.Errorf(
			"mismatched lengths: boxes=%d scores=%d labels=%d",
			len(boxes), len(scores), len(labels),
		)
	}

	detections := make([]inference.Detection, 0, len(boxes))
	for i, box := range boxes {
		if len(box) != 4 {
			return nil, fmt.Errorf("box %d has %d coordinates, want 4", i, len(box))
		}
		if scores[i] < threshold {
			continue
		}
		detections = append(detections, inference.Detection{
			box[0], box[1], box[2], box[3], scores[i], float32(labels[i]),
		})
	}
	return detections, nil
}

// Labels returns a copy of the category names.
func (p *RemotePipeline) Labels() []string {
	return append([]string(nil), p.labels...)
}

// Close is a no-op; the server owns the model.
func (p *RemotePipeline) Close() error {
	return nil
}
