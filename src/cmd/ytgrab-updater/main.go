// Command ytgrab-updater installs a portable update payload over a ytgrab
// folder and relaunches it:
//
//	ytgrab-updater <archivePath> <installDir> <targetExecutablePath>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/config"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/installer"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/logging"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/update"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// usageExitDelay keeps the argument error visible before the window closes
const usageExitDelay = 5 * time.Second

var configPath = flag.String("config", "", "Path to configuration file (default: <installDir>/config.yaml)")

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) < 3 {
		fmt.Fprintf(os.Stderr, "Error: expected 3 arguments, got %d\n", len(args))
		fmt.Fprintln(os.Stderr, "Usage: ytgrab-updater <archivePath> <installDir> <targetExecutablePath>")
		time.Sleep(usageExitDelay)
		return
	}
	archivePath, installDir, target := args[0], args[1], args[2]

	cfg, cfgErr := loadConfig(*configPath, installDir)
	if cfg.Log.File != "" && !filepath.IsAbs(cfg.Log.File) {
		cfg.Log.File = filepath.Join(installDir, cfg.Log.File)
	}

	logger, err := logging.New(cfg.Log, "updater", os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		logger, _ = logging.New(models.LogConfig{}, "updater", os.Stdout)
	}
	if cfgErr != nil {
		logger.Warn("using default configuration", "err", cfgErr)
	}

	dispatcher := events.NewDispatcher(eventLogger(logger, os.Stdout), 0)
	exit := func(code int) {
		dispatcher.Close()
		logger.Close()
		os.Exit(code)
	}

	logger.Info("applying update", "archive", archivePath, "dir", installDir, "target", target)

	inst := installer.New(installer.OptionsFromConfig(cfg.Installer), process.NewNameWaiter(logger.Logger), logger.Logger)
	relauncher := update.NewRelauncher(cfg.Relaunch, exit, logger.Logger)
	mgr := update.NewManager(cfg, nil, inst, relauncher, dispatcher, logger.Logger)

	// Apply terminates the process itself on every path it owns.
	if err := mgr.Apply(context.Background(), archivePath, installDir, target); err != nil {
		logger.Error("update failed", "err", err)
		exit(update.ExitRelaunchFailed)
	}
	exit(update.ExitRelaunched)
}

// loadConfig reads the config next to the installed copy. The updater runs
// without feed settings, so any load error falls back to defaults.
func loadConfig(path, installDir string) (*models.Config, error) {
	if path == "" {
		path = filepath.Join(installDir, "config.yaml")
	}
	if _, err := os.Stat(path); err != nil {
		return config.Default(), nil
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.Default(), err
	}
	return cfg, nil
}

// eventLogger prints stage and entry progress events; log lines are
// already written by the components themselves.
func eventLogger(logger *logging.Logger, w io.Writer) events.Sink {
	return events.Func(func(e models.Event) {
		switch e.Kind {
		case models.EventStage:
			logger.Info("stage", "from", e.From, "to", e.To)
		case models.EventProgress:
			fmt.Fprintf(w, "%s\n", e)
		case models.EventFailed:
			logger.Error("failed", "reason", e.Reason, "err", e.Err)
		case models.EventCompleted:
			logger.Info("completed", "detail", e.Text)
		}
	})
}
