package update

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// Exit codes used when the current process terminates after an update step
const (
	ExitRelaunched     = 0
	ExitMissingTarget  = 1
	ExitRelaunchFailed = 2
)

// Relauncher starts the updated program and terminates the current process
type Relauncher struct {
	grace     time.Duration
	exitDelay time.Duration
	logger    *log.Logger

	startDetached func(path string, args ...string) (int, error)
	exit          func(code int)
	sleep         func(time.Duration)
}

// NewRelauncher creates a relauncher. exit is called to terminate the
// process; nil means os.Exit.
func NewRelauncher(cfg models.RelaunchConfig, exit func(code int), logger *log.Logger) *Relauncher {
	if exit == nil {
		exit = os.Exit
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Relauncher{
		grace:         cfg.GracePeriod,
		exitDelay:     cfg.ExitDelay,
		logger:        logger.WithPrefix("relaunch"),
		startDetached: process.StartDetached,
		exit:          exit,
		sleep:         time.Sleep,
	}
}

// FinishAndRelaunch relaunches target and terminates the current process.
// A missing target is logged as fatal and not retried.
func (r *Relauncher) FinishAndRelaunch(target string) error {
	err := r.Relaunch(target)
	r.Terminate(relaunchExitCode(err))
	return err
}

// relaunchExitCode maps a Relaunch result onto the process exit code
func relaunchExitCode(err error) int {
	switch {
	case err == nil:
		return ExitRelaunched
	case errors.Is(err, models.ErrMissingDependency):
		return ExitMissingTarget
	default:
		return ExitRelaunchFailed
	}
}

// Relaunch waits the grace period for replaced files to be released, then
// starts target detached with its own folder as working directory.
func (r *Relauncher) Relaunch(target string) error {
	r.sleep(r.grace)

	if _, err := os.Stat(target); err != nil {
		err = fmt.Errorf("%w: relaunch target %s: %w", models.ErrMissingDependency, target, err)
		r.logger.Error("FATAL: relaunch target is missing, not relaunching", "path", target, "err", err)
		return err
	}

	pid, err := r.startDetached(target)
	if err != nil {
		r.logger.Error("failed to relaunch", "path", target, "err", err)
		return err
	}
	r.logger.Info("relaunched", "path", target, "pid", pid)
	return nil
}

// Terminate exits the current process after the configured delay
func (r *Relauncher) Terminate(code int) {
	r.sleep(r.exitDelay)
	r.logger.Info("terminating", "code", code)
	r.exit(code)
}
