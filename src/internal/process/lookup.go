package process

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gops "github.com/shirou/gopsutil/v4/process"
)

const exitPollInterval = 100 * time.Millisecond

// NameWaiter finds running processes by executable stem and waits for them
// to exit.
//
// This is a best-effort heuristic for "who is holding this file". An
// unrelated process with the same base name is a false positive; a process
// holding the file under a different name is a false negative. Callers
// must treat the result as advisory only.
type NameWaiter struct {
	logger *log.Logger
	// list is replaceable in tests
	list func(ctx context.Context) ([]*gops.Process, error)
}

// NewNameWaiter creates a waiter backed by the OS process table
func NewNameWaiter(logger *log.Logger) *NameWaiter {
	if logger == nil {
		logger = log.Default()
	}
	return &NameWaiter{
		logger: logger.WithPrefix("lookup"),
		list:   gops.ProcessesWithContext,
	}
}

// WaitForExit waits up to timeout per process whose name matches stem
// (case-insensitive, extension ignored). The calling process is never
// matched. It returns how many matches were found and how many were still
// running when their wait expired. Lookup failures are logged, not returned.
func (w *NameWaiter) WaitForExit(ctx context.Context, stem string, timeout time.Duration) (matched, stillRunning int) {
	if stem == "" {
		return 0, 0
	}

	procs, err := w.list(ctx)
	if err != nil {
		w.logger.Warn("process list unavailable", "err", err)
		return 0, 0
	}

	self := int32(os.Getpid())
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil || !sameStem(name, stem) {
			continue
		}
		matched++
		w.logger.Info("waiting for process to exit", "name", name, "pid", p.Pid, "timeout", timeout)
		if !waitExit(ctx, p, timeout) {
			stillRunning++
			w.logger.Warn("process did not exit in time", "name", name, "pid", p.Pid)
		}
	}
	return matched, stillRunning
}

func waitExit(ctx context.Context, p *gops.Process, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(exitPollInterval)
	defer ticker.Stop()

	for {
		running, err := p.IsRunningWithContext(ctx)
		if err != nil || !running {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func sameStem(processName, stem string) bool {
	base := filepath.Base(processName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.EqualFold(base, stem)
}

// Stem returns the file name of path without directory or extension
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
