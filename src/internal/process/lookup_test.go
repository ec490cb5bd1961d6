package process

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	gops "github.com/shirou/gopsutil/v4/process"
)

func TestSameStem(t *testing.T) {
	tests := []struct {
		name  string
		proc  string
		stem  string
		match bool
	}{
		{"exact", "ytgrab", "ytgrab", true},
		{"windows extension", "YTGrab.exe", "ytgrab", true},
		{"full path", "/opt/ytgrab/ytgrab", "ytgrab", true},
		{"different", "ytgrab-updater.exe", "ytgrab", false},
		{"prefix only", "yt", "ytgrab", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameStem(tt.proc, tt.stem); got != tt.match {
				t.Errorf("sameStem(%q, %q) = %v, expected %v", tt.proc, tt.stem, got, tt.match)
			}
		})
	}
}

func TestStem(t *testing.T) {
	if got := Stem("/install/bin/ffmpeg.exe"); got != "ffmpeg" {
		t.Errorf("expected ffmpeg, got %q", got)
	}
	if got := Stem("readme"); got != "readme" {
		t.Errorf("expected readme, got %q", got)
	}
}

func TestWaitForExitListFailureIsNotFatal(t *testing.T) {
	w := NewNameWaiter(nil)
	w.list = func(context.Context) ([]*gops.Process, error) {
		return nil, errors.New("access denied")
	}
	matched, still := w.WaitForExit(context.Background(), "ytgrab", time.Second)
	if matched != 0 || still != 0 {
		t.Errorf("expected no matches, got %d/%d", matched, still)
	}
}

func TestWaitForExitSkipsSelf(t *testing.T) {
	w := NewNameWaiter(nil)
	w.list = func(context.Context) ([]*gops.Process, error) {
		return []*gops.Process{{Pid: int32(os.Getpid())}}, nil
	}
	matched, _ := w.WaitForExit(context.Background(), Stem(os.Args[0]), time.Second)
	if matched != 0 {
		t.Errorf("expected own process to be skipped, matched %d", matched)
	}
}

func TestWaitForExitWaitsForChild(t *testing.T) {
	job, err := testSupervisor().Start(context.Background(), helperCommand("sleep", "200ms"), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer job.Wait()

	child, err := gops.NewProcess(int32(job.Info.PID))
	if err != nil {
		t.Skipf("process table unavailable: %v", err)
	}
	w := NewNameWaiter(nil)
	w.list = func(context.Context) ([]*gops.Process, error) {
		return []*gops.Process{child}, nil
	}

	start := time.Now()
	matched, still := w.WaitForExit(context.Background(), Stem(os.Args[0]), 5*time.Second)
	if matched != 1 {
		t.Fatalf("expected the helper to match, got %d", matched)
	}
	if still != 0 {
		t.Errorf("expected the helper to exit in time, %d still running", still)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("wait took %v", elapsed)
	}
}

func TestWaitForExitGivesUp(t *testing.T) {
	job, err := testSupervisor().Start(context.Background(), helperCommand("sleep", "2s"), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer job.Wait()

	child, err := gops.NewProcess(int32(job.Info.PID))
	if err != nil {
		t.Skipf("process table unavailable: %v", err)
	}
	w := NewNameWaiter(nil)
	w.list = func(context.Context) ([]*gops.Process, error) {
		return []*gops.Process{child}, nil
	}

	start := time.Now()
	matched, still := w.WaitForExit(context.Background(), Stem(os.Args[0]), 200*time.Millisecond)
	if matched != 1 || still != 1 {
		t.Errorf("expected 1 match still running, got %d/%d", matched, still)
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Errorf("expected the wait to be bounded, took %v", elapsed)
	}
}
