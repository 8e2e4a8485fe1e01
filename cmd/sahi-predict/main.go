// Command sahi-predict runs a YOLOv5 detection model over image files and prints one
// JSON line per prediction.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-sahi/inference"
	"github.com/nvr-ai/go-sahi/logger"
	"github.com/nvr-ai/go-sahi/models/postprocess"
	"github.com/nvr-ai/go-sahi/models/yolov5sparse"
	"github.com/nvr-ai/go-sahi/util"
)

const (
	flagConfig      = "config"
	flagModel       = "model"
	flagBackend     = "backend"
	flagDevice      = "device"
	flagConfidence  = "confidence"
	flagImageSize   = "image-size"
	flagLabels      = "labels"
	flagDir         = "dir"
	flagShiftX      = "shift-x"
	flagShiftY      = "shift-y"
	flagDevelopment = "development"
)

// predictionLine is the JSON record written for each prediction.
type predictionLine struct {
	File         string     `json:"file"`
	CategoryID   int        `json:"category_id"`
	CategoryName string     `json:"category_name"`
	BBoxXYXY     [4]float32 `json:"bbox_xyxy"`
	BBoxXYWH     [4]float32 `json:"bbox_xywh"`
	Score        float32    `json:"score"`
}

func main() {
	app := &cli.App{
		Name:      "sahi-predict",
		Usage:     "run a sparse YOLOv5 model over images",
		UsageText: "sahi-predict [options] IMAGE...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "YAML configuration file"},
			&cli.StringFlag{Name: flagModel, Aliases: []string{"m"}, Usage: "ONNX model path, or server URL for the remote backend"},
			&cli.StringFlag{Name: flagBackend, Usage: fmt.Sprintf("engine backend %v", inference.Backends)},
			&cli.StringFlag{Name: flagDevice, Usage: "cpu, gpu, cuda:N or a GPU ordinal"},
			&cli.Float64Flag{Name: flagConfidence, Usage: "confidence threshold in [0, 1]"},
			&cli.IntFlag{Name: flagImageSize, Usage: "square model input size"},
			&cli.StringFlag{Name: flagLabels, Usage: "label file, one category name per line"},
			&cli.StringFlag{Name: flagDir, Usage: "also process every image in this directory"},
			&cli.IntFlag{Name: flagShiftX, Usage: "horizontal offset of the images inside a larger frame"},
			&cli.IntFlag{Name: flagShiftY, Usage: "vertical offset of the images inside a larger frame"},
			&cli.BoolFlag{Name: flagDevelopment, Usage: "human readable debug logging"},
		},
		Before: func(c *cli.Context) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load .env: %w", err)
			}
			return logger.Init(c.Bool(flagDevelopment))
		},
		After: func(*cli.Context) error {
			logger.Sync()
			return nil
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log().Error("sahi-predict failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}

	files, err := collectFiles(c)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return cli.Exit("no images given", 2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	model, err := yolov5sparse.NewDetectionModel(cfg, yolov5sparse.WithLogger(logger.Log()))
	if err != nil {
		return err
	}
	defer func() {
		if err := model.Unload(); err != nil {
			logger.Log().Warn("unload failed", zap.Error(err))
		}
	}()

	shift := image.Pt(c.Int(flagShiftX), c.Int(flagShiftY))
	total := 0
	for _, f := range files {
		n, err := predictFile(ctx, model, f, shift, c.App.Writer)
		if err != nil {
			return err
		}
		total += n
	}

	logger.Log().Info("done", zap.Int("images", len(files)), zap.Int("predictions", total))
	return nil
}

// buildConfig layers defaults, the config file, SAHI_* variables and flags, in that order.
func buildConfig(c *cli.Context) (yolov5sparse.Config, error) {
	cfg := yolov5sparse.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		loaded, err := yolov5sparse.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	if c.IsSet(flagModel) {
		cfg.ModelPath = c.String(flagModel)
	}
	if c.IsSet(flagBackend) {
		cfg.Backend = inference.Backend(c.String(flagBackend))
	}
	if c.IsSet(flagDevice) {
		cfg.Device = c.String(flagDevice)
	}
	if c.IsSet(flagConfidence) {
		cfg.ConfidenceThreshold = float32(c.Float64(flagConfidence))
	}
	if c.IsSet(flagImageSize) {
		cfg.ImageSize = c.Int(flagImageSize)
	}
	if c.IsSet(flagLabels) {
		cfg.LabelsPath = c.String(flagLabels)
	}
	return cfg, cfg.Validate()
}

func collectFiles(c *cli.Context) ([]util.ImageFile, error) {
	var files []util.ImageFile
	for _, path := range c.Args().Slice() {
		f, err := util.LoadImageFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if dir := c.String(flagDir); dir != "" {
		more, err := util.LoadDirectoryImageFiles(dir)
		if err != nil {
			return nil, err
		}
		files = append(files, more...)
	}
	return files, nil
}

func predictFile(
	ctx context.Context,
	model *yolov5sparse.DetectionModel,
	f util.ImageFile,
	shift image.Point,
	w io.Writer,
) (int, error) {
	img, err := f.Decode()
	if err != nil {
		return 0, err
	}
	if err := model.PerformInference(ctx, img); err != nil {
		return 0, fmt.Errorf("%s: %w", f.Path, err)
	}

	preds, err := model.ConvertOriginalPredictions(
		yolov5sparse.WithShiftAmount(shift),
		yolov5sparse.WithFullShape(img.Bounds().Size()),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", f.Path, err)
	}

	enc := json.NewEncoder(w)
	for _, p := range preds {
		if err := enc.Encode(newPredictionLine(f.Path, p)); err != nil {
			return 0, err
		}
	}
	return len(preds), nil
}

func newPredictionLine(file string, p postprocess.ObjectPrediction) predictionLine {
	return predictionLine{
		File:         file,
		CategoryID:   p.Category.ID,
		CategoryName: p.Category.Name,
		BBoxXYXY:     p.BBox.ToXYXY(),
		BBoxXYWH:     p.BBox.ToXYWH(),
		Score:        p.Score,
	}
}
