package update

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// Installer extracts a payload into an install directory
type Installer interface {
	Install(ctx context.Context, archivePath, installDir string, excludePrefixes []string, sink events.Sink) ([]models.EntryOutcome, error)
}

// Manager runs the update pipeline:
//
//	Idle -> Checking -> {NoUpdateFound, UpdateFound} -> Downloading
//	     -> Installing -> Relaunching -> Terminated
//
// Failed is reachable from Checking, Downloading and Installing and always
// passes through Cleanup before Terminated. At most one plan is acted upon
// per process lifetime.
type Manager struct {
	cfg         *models.Config
	coordinator *Coordinator
	installer   Installer
	relauncher  *Relauncher
	sink        events.Sink
	logger      *log.Logger

	mu        sync.RWMutex
	status    models.UpdateStatus // last pipeline run
	lastCheck models.UpdateStatus // last check-only run
	running   bool
	checking  bool
	acted     bool

	startDetached func(path string, args ...string) (int, error)
}

// NewManager creates an update manager
func NewManager(cfg *models.Config, coordinator *Coordinator, installer Installer, relauncher *Relauncher, sink events.Sink, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		cfg:           cfg,
		coordinator:   coordinator,
		installer:     installer,
		relauncher:    relauncher,
		sink:          events.OrDiscard(sink),
		logger:        logger.WithPrefix("update"),
		status:        models.UpdateStatus{Stage: models.StageIdle},
		lastCheck:     models.UpdateStatus{Stage: models.StageIdle},
		startDetached: process.StartDetached,
	}
}

// Status returns a snapshot of the current or last pipeline run. Check-only
// runs never replace it.
func (m *Manager) Status() models.UpdateStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastCheck returns a snapshot of the current or last check-only run
func (m *Manager) LastCheck() models.UpdateStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCheck
}

// Check runs Checking only and reports the result without acting on it
func (m *Manager) Check(ctx context.Context) (models.CheckResult, error) {
	runID, err := m.begin(true)
	if err != nil {
		return models.CheckResult{}, err
	}
	defer m.end()

	return m.check(ctx, runID)
}

// Start runs the host pipeline in the background. It returns
// ErrUpdateInProgress when a run is active or a plan was already acted upon.
func (m *Manager) Start(ctx context.Context) error {
	runID, err := m.begin(false)
	if err != nil {
		return err
	}
	go func() {
		defer m.end()
		if err := m.run(ctx, runID); err != nil {
			m.logger.Warn("update run ended with error", "run", runID, "err", err)
		}
	}()
	return nil
}

// Run is the blocking form of Start
func (m *Manager) Run(ctx context.Context) error {
	runID, err := m.begin(false)
	if err != nil {
		return err
	}
	defer m.end()
	return m.run(ctx, runID)
}

// run checks, downloads and hands the payload off. On success the current
// process is terminated through the relauncher; on failure the host keeps
// running.
func (m *Manager) run(ctx context.Context, runID string) error {
	res, err := m.check(ctx, runID)
	if err != nil || res.Outcome != models.CheckUpdateAvailable {
		return err
	}
	plan := res.Plan

	m.markActed()
	m.transition(runID, models.StageDownloading, 0, fmt.Sprintf("Downloading %s", plan.AssetName))

	if err := m.coordinator.Download(ctx, plan.PayloadURL, plan.TempPath, m.downloadProgress(runID)); err != nil {
		return m.fail(runID, err, plan.TempPath)
	}

	m.transition(runID, models.StageInstalling, 100, fmt.Sprintf("Starting %s installer", plan.Variant))
	if err := m.handOff(plan); err != nil {
		return m.fail(runID, err, plan.TempPath)
	}

	m.logger.Info("handed off to installer, terminating", "variant", plan.Variant)
	m.transition(runID, models.StageTerminated, 100, "Handed off to installer")
	m.complete(runID, fmt.Sprintf("update to %s started", plan.LatestVersion))
	m.relauncher.Terminate(ExitRelaunched)
	return nil
}

// Apply installs archivePath into installDir, removes the archive and
// relaunches target. It is the updater side of the portable hand-off and
// terminates the current process when done. A failed install does not
// relaunch.
func (m *Manager) Apply(ctx context.Context, archivePath, installDir, target string) error {
	runID, err := m.begin(false)
	if err != nil {
		return err
	}
	defer m.end()
	m.markActed()

	m.transition(runID, models.StageInstalling, 0, "Installing update")

	outcomes, err := m.installer.Install(ctx, archivePath, installDir, m.cfg.Installer.ExcludePrefixes, m.entryProgress())
	if err != nil {
		err = m.fail(runID, err, archivePath)
		m.relauncher.Terminate(ExitRelaunchFailed)
		return err
	}

	summary := models.Summarize(outcomes)
	for _, o := range outcomes {
		if o.Kind == models.OutcomeFailed {
			m.logger.Warn("entry not replaced", "entry", o.Entry.Path, "reason", o.Reason, "err", o.Err)
		}
	}
	m.logger.Info("install complete", "installed", summary.Installed, "skipped", summary.Skipped, "failed", summary.Failed)

	m.cleanup(runID, archivePath)

	m.transition(runID, models.StageRelaunching, 100, "Relaunching")
	relaunchErr := m.relauncher.Relaunch(target)
	if relaunchErr != nil {
		m.setError(relaunchErr)
	} else {
		m.complete(runID, fmt.Sprintf("installed %d entries", summary.Installed))
	}
	m.transition(runID, models.StageTerminated, 100, "Terminated")

	m.relauncher.Terminate(relaunchExitCode(relaunchErr))
	return relaunchErr
}

func (m *Manager) check(ctx context.Context, runID string) (models.CheckResult, error) {
	m.transition(runID, models.StageChecking, 0, "Checking for updates")

	res, err := m.coordinator.CheckForUpdate(ctx)
	if err != nil {
		return res, m.fail(runID, err, "")
	}

	switch res.Outcome {
	case models.CheckUpdateAvailable:
		m.transition(runID, models.StageUpdateFound, 0, fmt.Sprintf("Update %s available", res.LatestVersion))
	default:
		m.transition(runID, models.StageNoUpdateFound, 100, "No update found")
	}
	return res, nil
}

// fail records err, runs cleanup and ends the run
func (m *Manager) fail(runID string, err error, tempPath string) error {
	m.setError(err)
	m.transition(runID, models.StageFailed, m.progress(), err.Error())
	m.sink.Emit(models.FailedEvent(runID, err))
	m.cleanup(runID, tempPath)
	m.transition(runID, models.StageTerminated, m.progress(), "Terminated")
	return err
}

// cleanup removes the temp payload. It runs on every exit path.
func (m *Manager) cleanup(runID, tempPath string) {
	m.transition(runID, models.StageCleanup, m.progress(), "Cleaning up")
	if tempPath == "" {
		return
	}
	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("failed to remove temp payload", "path", tempPath, "err", err)
		return
	}
	m.logger.Debug("temp payload removed", "path", tempPath)
}

func (m *Manager) downloadProgress(runID string) func(downloaded, total int64) {
	last := -1
	return func(downloaded, total int64) {
		if total <= 0 {
			return
		}
		percent := float64(downloaded) / float64(total) * 100
		if int(percent) == last {
			return
		}
		last = int(percent)

		m.mu.Lock()
		m.current().Progress = percent
		m.current().Message = fmt.Sprintf("Downloading: %.1f MB / %.1f MB", float64(downloaded)/1024/1024, float64(total)/1024/1024)
		m.mu.Unlock()

		m.sink.Emit(models.ProgressEvent(runID, models.ProgressSample{Percent: percent}))
	}
}

func (m *Manager) entryProgress() events.Sink {
	return events.Func(func(e models.Event) {
		if e.Kind == models.EventProgress {
			m.mu.Lock()
			st := m.current()
			st.Progress = e.Sample.Percent
			st.Message = fmt.Sprintf("Installed %d of %d entries", e.Processed, e.Total)
			m.mu.Unlock()
		}
		m.sink.Emit(e)
	})
}

func (m *Manager) begin(checkOnly bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.acted {
		return "", models.ErrUpdateInProgress
	}
	m.running = true
	m.checking = checkOnly
	runID := uuid.New().String()
	*m.current() = models.UpdateStatus{RunID: runID, Stage: models.StageIdle}
	return runID, nil
}

func (m *Manager) end() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current().Completed = true
	m.running = false
	m.checking = false
}

// current is the status record of the active run. m.mu must be held.
func (m *Manager) current() *models.UpdateStatus {
	if m.checking {
		return &m.lastCheck
	}
	return &m.status
}

func (m *Manager) progress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current().Progress
}

func (m *Manager) markActed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acted = true
}

func (m *Manager) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current().Error = err.Error()
}

func (m *Manager) complete(runID, text string) {
	m.sink.Emit(models.CompletedEvent(runID, text))
}

func (m *Manager) transition(runID string, to models.Stage, progress float64, message string) {
	m.mu.Lock()
	st := m.current()
	from := st.Stage
	st.Stage = to
	st.Progress = progress
	st.Message = message
	m.mu.Unlock()

	m.logger.Debug(message, "run", runID, "from", from, "to", to)
	m.sink.Emit(models.StageEvent(runID, from, to))
}
