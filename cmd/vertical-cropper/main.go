package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	cli "github.com/urfave/cli/v3"

	verticalcropper "github.com/menta2k/vertical-cropper"
	"github.com/menta2k/vertical-cropper/internal/config"
	"github.com/menta2k/vertical-cropper/internal/logging"
	"github.com/menta2k/vertical-cropper/internal/utils"
	"github.com/menta2k/vertical-cropper/pkg/cropper"
	"github.com/menta2k/vertical-cropper/pkg/types"
	"github.com/menta2k/vertical-cropper/pkg/vision"
)

// jobFunc runs one crop job with the resolved configuration
type jobFunc func(ctx context.Context, cfg *config.Config, input, output string) error

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(process).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

func newCommand(job jobFunc) *cli.Command {
	return &cli.Command{
		Name:      "vertical-cropper",
		Usage:     "Convert landscape video to 9:16 vertical video",
		ArgsUsage: "INPUT [OUTPUT]",
		Version:   verticalcropper.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "crop mode: face, motion or center",
				Value:   string(types.ModeFace),
			},
			&cli.Float64Flag{
				Name:  "scale-factor",
				Usage: "motion analysis downscale factor",
				Value: 0.67,
			},
			&cli.Float64Flag{
				Name:  "update-interval",
				Usage: "seconds between motion updates",
				Value: 1.0,
			},
			&cli.Float64Flag{
				Name:  "smoothing",
				Usage: "motion smoothing factor in [0,1)",
				Value: 0.9,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "JSON or YAML configuration file (default ~/.config/vertical-cropper/config.json when present)",
			},
			&cli.StringFlag{
				Name:  "save-config",
				Usage: "write the resolved configuration to this file; INPUT becomes optional",
			},
			&cli.StringFlag{
				Name:  "aspect",
				Usage: "target aspect ratio as W:H or preset (story, instagram, portrait, square)",
			},
			&cli.IntFlag{
				Name:  "height",
				Usage: "output height in pixels (0 keeps the crop height)",
			},
			&cli.StringFlag{
				Name:  "detector",
				Usage: fmt.Sprintf("face detector backend %v", vision.Detectors()),
			},
			&cli.StringFlag{
				Name:  "flow",
				Usage: fmt.Sprintf("optical flow backend %v", vision.FlowEngines()),
			},
			&cli.StringFlag{
				Name:  "cascade",
				Usage: fmt.Sprintf("face cascade model file for pigo or haar (pigo default %s, not bundled; --detector saliency needs none)", vision.DefaultPigoCascade),
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "vision model name for the ollama and llamacpp detectors",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "vision model server URL",
			},
			&cli.StringFlag{
				Name:  "prompt",
				Usage: "face-locating prompt for the ollama and llamacpp detectors",
			},
			&cli.Float64Flag{
				Name:  "min-confidence",
				Usage: "drop model-reported faces below this confidence",
				Value: 0.3,
			},
			&cli.StringFlag{
				Name:  "plan",
				Usage: "write the per-frame crop plan to this file",
			},
			&cli.StringFlag{
				Name:  "debug-overlay",
				Usage: "write annotated source frames to this directory",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			savePath := cmd.String("save-config")
			if cmd.NArg() > 2 || (cmd.NArg() < 1 && savePath == "") {
				return cli.Exit("usage: vertical-cropper [flags] INPUT [OUTPUT]", 2)
			}

			cfg, err := buildConfig(cmd)
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			if err := logging.Setup(cfg.Runtime.LogLevel, nil); err != nil {
				return cli.Exit(err.Error(), 2)
			}

			if savePath != "" {
				if err := cfg.SaveToFile(savePath); err != nil {
					return cli.Exit(err.Error(), 1)
				}
				log.Info().Str("path", savePath).Msg("configuration saved")
				if cmd.NArg() == 0 {
					return nil
				}
			}

			input := cmd.Args().Get(0)
			output := cmd.Args().Get(1)
			if output == "" {
				output = utils.GenerateOutputFilename(input, "_vertical", "mp4")
			}

			if err := job(ctx, cfg, input, output); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// buildConfig loads the config file, if any, and applies the flags that were
// set explicitly on top of it
func buildConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	path := cmd.String("config")
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.IsSet("mode") {
		cfg.Mode = types.Mode(strings.ToLower(cmd.String("mode")))
	}
	if cmd.IsSet("scale-factor") {
		cfg.MotionTracking.ScaleFactor = cmd.Float64("scale-factor")
	}
	if cmd.IsSet("update-interval") {
		cfg.MotionTracking.UpdateInterval = cmd.Float64("update-interval")
	}
	if cmd.IsSet("smoothing") {
		cfg.MotionTracking.SmoothingFactor = cmd.Float64("smoothing")
	}
	if cmd.IsSet("aspect") {
		aspect, err := cropper.ParseAspectRatio(cmd.String("aspect"))
		if err != nil {
			return nil, err
		}
		cfg.AspectRatio = aspect.Value()
	}
	if cmd.IsSet("height") {
		cfg.Output.Height = cmd.Int("height")
	}
	if cmd.IsSet("min-confidence") {
		cfg.Vision.MinConfidence = cmd.Float64("min-confidence")
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"detector", &cfg.Vision.Detector},
		{"flow", &cfg.Vision.Flow},
		{"cascade", &cfg.Vision.Cascade},
		{"model", &cfg.Vision.Model},
		{"url", &cfg.Vision.URL},
		{"prompt", &cfg.Vision.Prompt},
		{"plan", &cfg.Runtime.Plan},
		{"debug-overlay", &cfg.Runtime.DebugOverlay},
		{"log-level", &cfg.Runtime.LogLevel},
	}
	for _, o := range overrides {
		if cmd.IsSet(o.flag) {
			*o.dst = cmd.String(o.flag)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func process(ctx context.Context, cfg *config.Config, input, output string) error {
	vc, err := verticalcropper.NewWithConfig(cfg)
	if err != nil {
		return err
	}

	res, err := vc.Process(ctx, input, output)
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", res.Stats.RunID).
		Str("output", res.Output).
		Int("frames", res.Stats.Frames).
		Str("size", fmt.Sprintf("%dx%d", res.Summary.OutputWidth, res.Summary.OutputHeight)).
		Dur("elapsed", res.Stats.Duration).
		Msg("done")
	if info, statErr := os.Stat(output); statErr == nil && !info.IsDir() {
		log.Info().Str("file_size", utils.FormatFileSize(info.Size())).Msg("output written")
	}
	return nil
}
