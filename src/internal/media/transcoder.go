package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// FFmpeg settings
const (
	VideoCodec    = "libx264"
	VideoPreset   = "medium"
	VideoCRF      = "23"
	AudioCodec    = "aac"
	AudioBitrate  = "128k"
	FastStartFlag = "+faststart"

	ConvertedSuffix = "-converted"
	OutputExtension = ".mp4"
)

// Transcoder converts media files with ffmpeg
type Transcoder struct {
	runner Runner
	cfg    models.ToolsConfig
	base   string
	logger *log.Logger
}

// NewTranscoder creates a transcoder
func NewTranscoder(runner Runner, cfg models.ToolsConfig, base string, logger *log.Logger) *Transcoder {
	if logger == nil {
		logger = log.Default()
	}
	return &Transcoder{runner: runner, cfg: cfg, base: base, logger: logger.WithPrefix("ffmpeg")}
}

// BuildTranscodeArgs returns the ffmpeg arguments converting in to out
func BuildTranscodeArgs(in, out string) []string {
	return []string{
		"-y",     // Overwrite output file
		"-i", in, // Input file
		"-c:v", VideoCodec,
		"-preset", VideoPreset,
		"-crf", VideoCRF,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-movflags", FastStartFlag,
		"-nostats",
		out,
	}
}

// OutputPath derives the default output name for in
func OutputPath(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ConvertedSuffix + OutputExtension
}

// Transcode converts in to out. An empty out uses OutputPath(in).
func (t *Transcoder) Transcode(ctx context.Context, in, out string, sink events.Sink) (string, error) {
	if _, err := os.Stat(in); err != nil {
		return "", fmt.Errorf("input file does not exist: %s: %w", in, err)
	}
	if out == "" {
		out = OutputPath(in)
	}

	path, err := resolveTool(t.base, t.cfg.Dir, t.cfg.FFmpeg)
	if err != nil {
		return "", err
	}

	t.logger.Info("transcoding", "in", in, "out", out)
	code, err := t.runner.Run(ctx, process.Command{
		Path: path,
		Args: BuildTranscodeArgs(in, out),
		Env:  t.cfg.Env,
	}, sink)
	if err != nil {
		return "", err
	}
	if err := exitError("ffmpeg", code); err != nil {
		// Remove partial output file
		os.Remove(out)
		return "", err
	}
	return out, nil
}
