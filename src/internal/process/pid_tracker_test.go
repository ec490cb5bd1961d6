package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPIDTrackerAddRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "children.pid")
	pt := NewPIDTracker(path, nil)

	for _, pid := range []int{10, 20, 30} {
		if err := pt.Add(pid, "/tools/yt-dlp.exe"); err != nil {
			t.Fatalf("Add(%d) failed: %v", pid, err)
		}
	}
	if err := pt.Remove(20); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	pids, err := pt.PIDs()
	if err != nil {
		t.Fatalf("PIDs failed: %v", err)
	}
	if len(pids) != 2 || pids[0] != 10 || pids[1] != 30 {
		t.Errorf("expected [10 30], got %v", pids)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "10 yt-dlp\n30 yt-dlp\n" {
		t.Errorf("unexpected file contents %q", data)
	}

	pt.Remove(10)
	pt.Remove(30)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected file removed when empty, stat err %v", err)
	}
}

func TestPIDTrackerCleanupOrphans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "children.pid")
	pt := NewPIDTracker(path, nil)
	pt.Add(100, "yt-dlp")
	pt.Add(200, "ffmpeg")

	var killed []int
	pt.kill = func(_ context.Context, pid int, stem string) error {
		killed = append(killed, pid)
		if stem == "ffmpeg" {
			return errors.New("access denied")
		}
		return nil
	}

	if err := pt.CleanupOrphans(context.Background()); err != nil {
		t.Fatalf("CleanupOrphans failed: %v", err)
	}
	if len(killed) != 2 {
		t.Errorf("expected 2 kill attempts, got %v", killed)
	}
	pids, _ := pt.PIDs()
	if len(pids) != 1 || pids[0] != 200 {
		t.Errorf("expected the failed pid to remain, got %v", pids)
	}
}

func TestPIDTrackerCleanupWithoutFile(t *testing.T) {
	pt := NewPIDTracker(filepath.Join(t.TempDir(), "missing.pid"), nil)
	if err := pt.CleanupOrphans(context.Background()); err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
}

func TestKillByPIDGonePIDIsCleared(t *testing.T) {
	job, err := testSupervisor().Start(context.Background(), helperCommand("exit"), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	job.Wait()

	if err := killByPID(context.Background(), job.Info.PID, "whatever"); err != nil {
		t.Errorf("expected exited pid to count as cleared, got %v", err)
	}
}
