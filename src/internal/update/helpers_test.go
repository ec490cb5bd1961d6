package update

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

var quietLogger = log.New(io.Discard)

// fakeSource serves a fixed release list and writes payload on download
type fakeSource struct {
	releases    []models.ReleaseInfo
	listErr     error
	payload     string
	downloadErr error

	mu         sync.Mutex
	downloaded []string
}

func (f *fakeSource) ListReleases(context.Context) ([]models.ReleaseInfo, error) {
	return f.releases, f.listErr
}

func (f *fakeSource) DownloadAsset(_ context.Context, url, dest string, progress func(int64, int64)) (int64, error) {
	f.mu.Lock()
	f.downloaded = append(f.downloaded, url)
	f.mu.Unlock()

	// A partial file is left behind so cleanup has something to remove.
	if err := os.WriteFile(dest, []byte(f.payload), 0o644); err != nil {
		return 0, err
	}
	if f.downloadErr != nil {
		return 0, f.downloadErr
	}
	total := int64(len(f.payload))
	if progress != nil {
		progress(total/2, total)
		progress(total, total)
	}
	return total, nil
}

type started struct {
	path string
	args []string
}

// launcher records detached starts instead of spawning processes
type launcher struct {
	mu    sync.Mutex
	calls []started
	err   error
}

func (l *launcher) start(path string, args ...string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, started{path: path, args: args})
	if l.err != nil {
		return 0, l.err
	}
	return 4242, nil
}

func (l *launcher) Calls() []started {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]started(nil), l.calls...)
}

// exitRecorder captures exit codes
type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (e *exitRecorder) exit(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = append(e.codes, code)
}

func (e *exitRecorder) Codes() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.codes...)
}

type fakeInstaller struct {
	outcomes []models.EntryOutcome
	err      error
	calls    int
}

func (f *fakeInstaller) Install(_ context.Context, archive, _ string, _ []string, sink events.Sink) ([]models.EntryOutcome, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.outcomes {
		sink.Emit(models.EntryProgressEvent(archive, i+1, len(f.outcomes)))
	}
	return f.outcomes, nil
}

func testConfig(t *testing.T) *models.Config {
	t.Helper()
	return &models.Config{
		App: models.AppConfig{
			Name:           "ytgrab",
			CurrentVersion: "1.2.0",
			PortableMarker: "portable.txt",
			TempDir:        t.TempDir(),
		},
		Assets: models.AssetsConfig{
			Installed: "ytgrab-setup.exe",
			Portable:  "ytgrab-portable.zip",
		},
		Relaunch: models.RelaunchConfig{
			UpdaterName:   "ytgrab-updater",
			InstallerArgs: []string{"/SILENT"},
		},
	}
}

func release(tag string, assets ...string) models.ReleaseInfo {
	r := models.ReleaseInfo{Tag: tag}
	for _, name := range assets {
		r.Assets = append(r.Assets, models.Asset{Name: name, DownloadURL: "https://example.com/" + name})
	}
	return r
}

// portableInstall lays out an install dir with the portable marker, an
// updater binary and the running executable, and returns the executable.
func portableInstall(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"portable.txt", "ytgrab-updater" + exeSuffix(), "ytgrab" + exeSuffix()} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o755); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return filepath.Join(dir, "ytgrab"+exeSuffix())
}

func newTestCoordinator(cfg *models.Config, src ReleaseSource, exe string) *Coordinator {
	c := NewCoordinator(cfg, src, quietLogger)
	c.executable = func() (string, error) { return exe, nil }
	return c
}

func newTestRelauncher(exits *exitRecorder, l *launcher) *Relauncher {
	r := NewRelauncher(models.RelaunchConfig{GracePeriod: time.Second, ExitDelay: time.Second}, exits.exit, quietLogger)
	r.sleep = func(time.Duration) {}
	r.startDetached = l.start
	return r
}

func stagesOf(rec *events.Recorder) []models.Stage {
	var out []models.Stage
	for _, e := range rec.Kinds(models.EventStage) {
		out = append(out, e.To)
	}
	return out
}

func equalStages(a, b []models.Stage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var errBoom = errors.New("boom")
