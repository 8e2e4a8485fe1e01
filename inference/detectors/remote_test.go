package detectors

import (
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-sahi/inference"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	return img
}

func newRemote(t *testing.T, handler http.HandlerFunc) *RemotePipeline {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Backend = inference.BackendRemote
	cfg.ModelPath = srv.URL + "/"
	cfg.Timeout = 5 * time.Second
	p, err := NewRemotePipeline(cfg)
	require.NoError(t, err)
	return p
}

func TestRemotePipelineRun(t *testing.T) {
	p := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, RemotePredictPath, r.URL.Path)

		file, header, err := r.FormFile("request")
		if assert.NoError(t, err) {
			defer file.Close()
			_, _, err = image.DecodeConfig(file)
			assert.NoError(t, err, "upload should be a decodable image")
			assert.Equal(t, "image.jpg", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"boxes": [[[321.4, 329.2, 378.1, 368.3], [608.1, 311.9, 640.4, 341.0], [1, 2, 3, 4]]],
			"scores": [[0.87, 0.21, 0.5]],
			"labels": [["2.0", "7.0", 0]]
		}`))
	})

	out, err := p.Run(context.Background(), testImage(), inference.RunOptions{ConfidenceThreshold: 0.3})
	require.NoError(t, err)
	require.NoError(t, out.Validate())
	require.Len(t, out.Boxes, 1)
	require.Len(t, out.Boxes[0], 2)

	assert.Equal(t, 2, out.Boxes[0][0].ClassID())
	assert.InDelta(t, 321.4, out.Boxes[0][0][0], 1e-4)
	assert.Equal(t, 0, out.Boxes[0][1].ClassID())
	assert.Len(t, out.Labels, 80)
}

func TestRemotePipelineErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server_error", status: http.StatusInternalServerError, body: `{"detail":"boom"}`},
		{name: "length_mismatch", status: http.StatusOK, body: `{"boxes":[[[1,2,3,4]]],"scores":[[0.9,0.8]],"labels":[["1"]]}`},
		{name: "bad_arity", status: http.StatusOK, body: `{"boxes":[[[1,2,3]]],"scores":[[0.9]],"labels":[["1"]]}`},
		{name: "bad_label", status: http.StatusOK, body: `{"boxes":[[[1,2,3,4]]],"scores":[[0.9]],"labels":[["car"]]}`},
		{name: "no_images", status: http.StatusOK, body: `{"boxes":[],"scores":[],"labels":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Run(context.Background(), testImage(), inference.RunOptions{})
			assert.Error(t, err)
		})
	}
}

func TestRemotePipelineCanceled(t *testing.T) {
	p := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, testImage(), inference.RunOptions{})
	assert.Error(t, err)
}

func TestNewRemotePipelineRejectsNonURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = inference.BackendRemote

	for _, path := range []string{"model.onnx", "ftp://host/model", "http://"} {
		cfg.ModelPath = path
		_, err := NewRemotePipeline(cfg)
		assert.Error(t, err, path)
	}
}
