package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// yt-dlp flags
const (
	NewlineFlag    = "--newline"
	NoPlaylistFlag = "--no-playlist"
	OutputFlag     = "-o"
	UpdateFlag     = "-U"

	DefaultOutputTemplate = "%(title)s.%(ext)s"
)

// Fetcher downloads media with yt-dlp
type Fetcher struct {
	runner Runner
	cfg    models.ToolsConfig
	base   string
	logger *log.Logger
}

// NewFetcher creates a fetcher. base is the directory relative tool paths
// are resolved against, normally the install dir.
func NewFetcher(runner Runner, cfg models.ToolsConfig, base string, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{runner: runner, cfg: cfg, base: base, logger: logger.WithPrefix("yt-dlp")}
}

// BuildFetchArgs returns the yt-dlp arguments for one download
func (f *Fetcher) BuildFetchArgs(url, outDir string) []string {
	template := f.cfg.OutputFormat
	if template == "" {
		template = DefaultOutputTemplate
	}
	return []string{
		NewlineFlag, // One progress line per update
		NoPlaylistFlag,
		OutputFlag, filepath.Join(outDir, template),
		url,
	}
}

// Fetch downloads url into outDir. Progress samples and raw lines go to sink.
func (f *Fetcher) Fetch(ctx context.Context, url, outDir string, sink events.Sink) error {
	path, err := resolveTool(f.base, f.cfg.Dir, f.cfg.YTDLP)
	if err != nil {
		return err
	}
	// yt-dlp resolves a relative -o against its working directory, which is
	// outDir itself.
	outDir, err = filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("%w: resolve output directory: %w", models.ErrTransientIO, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("%w: create output directory: %w", models.ErrTransientIO, err)
	}

	f.logger.Info("fetching", "url", url, "dir", outDir)
	code, err := f.runner.Run(ctx, process.Command{
		Path: path,
		Args: f.BuildFetchArgs(url, outDir),
		Env:  f.cfg.Env,
		Dir:  outDir,
	}, sink)
	if err != nil {
		return err
	}
	if err := exitError("yt-dlp", code); err != nil {
		f.logger.Error("fetch failed", "url", url, "code", code)
		return err
	}
	f.logger.Info("fetch complete", "url", url)
	return nil
}

// SelfUpdate runs "yt-dlp -U". The tool lives under the excluded archive
// prefix, so it maintains itself instead of riding along with app updates.
func (f *Fetcher) SelfUpdate(ctx context.Context, sink events.Sink) error {
	path, err := resolveTool(f.base, f.cfg.Dir, f.cfg.YTDLP)
	if err != nil {
		return err
	}

	f.logger.Info("updating yt-dlp", "path", path)
	code, err := f.runner.Run(ctx, process.Command{
		Path: path,
		Args: []string{UpdateFlag},
		Env:  f.cfg.Env,
	}, sink)
	if err != nil {
		return err
	}
	return exitError("yt-dlp", code)
}
