package update

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

func TestFinishAndRelaunch(t *testing.T) {
	target := filepath.Join(t.TempDir(), "ytgrab.exe")
	if err := os.WriteFile(target, []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}

	exits := &exitRecorder{}
	l := &launcher{}
	r := newTestRelauncher(exits, l)
	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	if err := r.FinishAndRelaunch(target); err != nil {
		t.Fatalf("FinishAndRelaunch failed: %v", err)
	}

	calls := l.Calls()
	if len(calls) != 1 || calls[0].path != target || len(calls[0].args) != 0 {
		t.Errorf("unexpected starts %+v", calls)
	}
	if codes := exits.Codes(); len(codes) != 1 || codes[0] != ExitRelaunched {
		t.Errorf("expected exit %d, got %v", ExitRelaunched, codes)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != time.Second {
		t.Errorf("expected grace then exit delay, got %v", slept)
	}
}

func TestFinishAndRelaunchMissingTarget(t *testing.T) {
	exits := &exitRecorder{}
	l := &launcher{}
	r := newTestRelauncher(exits, l)

	err := r.FinishAndRelaunch(filepath.Join(t.TempDir(), "gone.exe"))
	if !errors.Is(err, models.ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
	if len(l.Calls()) != 0 {
		t.Errorf("missing target must not be started")
	}
	if codes := exits.Codes(); len(codes) != 1 || codes[0] != ExitMissingTarget {
		t.Errorf("expected exit %d, got %v", ExitMissingTarget, codes)
	}
}

func TestFinishAndRelaunchStartFailure(t *testing.T) {
	target := filepath.Join(t.TempDir(), "ytgrab.exe")
	if err := os.WriteFile(target, nil, 0o755); err != nil {
		t.Fatal(err)
	}
	exits := &exitRecorder{}
	r := newTestRelauncher(exits, &launcher{err: models.ErrProcessLaunch})

	if err := r.FinishAndRelaunch(target); !errors.Is(err, models.ErrProcessLaunch) {
		t.Fatalf("expected ErrProcessLaunch, got %v", err)
	}
	if codes := exits.Codes(); len(codes) != 1 || codes[0] != ExitRelaunchFailed {
		t.Errorf("expected exit %d, got %v", ExitRelaunchFailed, codes)
	}
}
