package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/config"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/control"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/github"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/installer"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/logging"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/media"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/update"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/version"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// staleAfter is how old a temp update file must be before the startup
// sweep removes it.
const staleAfter = 10 * time.Minute

// app holds everything built once per invocation
type app struct {
	cfg        *models.Config
	logger     *logging.Logger
	dispatcher *events.Dispatcher
	hub        *control.Hub
	tracker    *process.PIDTracker
	supervisor *process.Supervisor
	baseDir    string
}

func newApp(configPath string, stdout io.Writer) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, cfg.App.Name, stdout)
	if err != nil {
		return nil, err
	}

	if built := version.Running(); cfg.App.CurrentVersion != built {
		logger.Warn("config overrides the built-in version", "current_version", cfg.App.CurrentVersion, "binary", built)
	}

	baseDir := filepath.Dir(configPath)
	if exe, err := os.Executable(); err == nil {
		baseDir = filepath.Dir(exe)
	}

	decoder, err := process.NewDecoder(cfg.Tools.CodePage)
	if err != nil {
		logger.Warn("unknown code page, using windows-1252", "code_page", cfg.Tools.CodePage, "err", err)
		decoder = process.DefaultDecoder()
	}

	hub := control.NewHub()
	tracker := process.NewPIDTracker(filepath.Join(cfg.App.TempDir, cfg.App.Name+"-children.pid"), logger.Logger)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		dispatcher: events.NewDispatcher(events.Multi(newPrinter(stdout), hub), 0),
		hub:        hub,
		tracker:    tracker,
		supervisor: process.NewSupervisor(logger.Logger, decoder, tracker),
		baseDir:    baseDir,
	}
	return a, nil
}

// startup clears what a previous crashed or updated run left behind
func (a *app) startup(ctx context.Context) {
	if err := a.tracker.CleanupOrphans(ctx); err != nil {
		a.logger.Warn("failed to clean up orphaned children", "err", err)
	}
	if n := update.SweepStale(a.cfg.App.TempDir, a.cfg.App.Name, staleAfter, a.logger.Logger); n > 0 {
		a.logger.Info("swept stale update files", "count", n)
	}
}

// Close drains queued events and closes the log file
func (a *app) Close() {
	a.dispatcher.Close()
	a.logger.Close()
}

// exit is handed to the relauncher. It flushes output before leaving.
func (a *app) exit(code int) {
	a.Close()
	os.Exit(code)
}

func (a *app) manager() (*update.Manager, error) {
	feed, err := github.NewClient(a.cfg.Feed)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed client: %w", err)
	}
	coordinator := update.NewCoordinator(a.cfg, feed, a.logger.Logger)
	inst := installer.New(installer.OptionsFromConfig(a.cfg.Installer), process.NewNameWaiter(a.logger.Logger), a.logger.Logger)
	relauncher := update.NewRelauncher(a.cfg.Relaunch, a.exit, a.logger.Logger)
	return update.NewManager(a.cfg, coordinator, inst, relauncher, a.dispatcher, a.logger.Logger), nil
}

func (a *app) fetcher() *media.Fetcher {
	return media.NewFetcher(a.supervisor, a.cfg.Tools, a.baseDir, a.logger.Logger)
}

func (a *app) transcoder() *media.Transcoder {
	return media.NewTranscoder(a.supervisor, a.cfg.Tools, a.baseDir, a.logger.Logger)
}
