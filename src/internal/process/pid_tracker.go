package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	gops "github.com/shirou/gopsutil/v4/process"
)

// PIDTracker records supervised child PIDs in a file so a restarted host can
// kill children left behind by a crash. Each line is "<pid> <stem>"; the stem
// guards against killing an unrelated process that reused the PID.
type PIDTracker struct {
	filePath string
	logger   *log.Logger
	mu       sync.Mutex

	kill func(ctx context.Context, pid int, stem string) error
}

type trackedPID struct {
	pid  int
	stem string
}

// NewPIDTracker creates a tracker backed by filePath
func NewPIDTracker(filePath string, logger *log.Logger) *PIDTracker {
	if logger == nil {
		logger = log.Default()
	}
	return &PIDTracker{
		filePath: filePath,
		logger:   logger.WithPrefix("pids"),
		kill:     killByPID,
	}
}

// CleanupOrphans kills every tracked PID that is still running under the
// recorded name. Entries that could not be killed stay in the file for the
// next start.
func (pt *PIDTracker) CleanupOrphans(ctx context.Context) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	entries, err := pt.read()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	pt.logger.Info("cleaning up orphaned children", "count", len(entries))

	var remaining []trackedPID
	for _, e := range entries {
		if err := pt.kill(ctx, e.pid, e.stem); err != nil {
			pt.logger.Warn("failed to kill orphan, will retry next start", "pid", e.pid, "name", e.stem, "err", err)
			remaining = append(remaining, e)
			continue
		}
		pt.logger.Info("orphan cleared", "pid", e.pid, "name", e.stem)
	}

	return pt.write(remaining)
}

// Add records pid for the executable at path
func (pt *PIDTracker) Add(pid int, path string) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	entries, err := pt.read()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read PID file: %w", err)
	}
	entries = append(entries, trackedPID{pid: pid, stem: Stem(path)})
	return pt.write(entries)
}

// Remove drops pid from the file
func (pt *PIDTracker) Remove(pid int) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	entries, err := pt.read()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.pid != pid {
			kept = append(kept, e)
		}
	}
	return pt.write(kept)
}

// PIDs returns the tracked PIDs in file order
func (pt *PIDTracker) PIDs() ([]int, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	entries, err := pt.read()
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		pids = append(pids, e.pid)
	}
	return pids, nil
}

func (pt *PIDTracker) read() ([]trackedPID, error) {
	file, err := os.Open(pt.filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []trackedPID
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		pidText, stem, _ := strings.Cut(line, " ")
		pid, err := strconv.Atoi(pidText)
		if err != nil {
			pt.logger.Warn("invalid line in PID file", "line", line)
			continue
		}
		entries = append(entries, trackedPID{pid: pid, stem: strings.TrimSpace(stem)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading PID file: %w", err)
	}
	return entries, nil
}

func (pt *PIDTracker) write(entries []trackedPID) error {
	if len(entries) == 0 {
		if err := os.Remove(pt.filePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove PID file: %w", err)
		}
		return nil
	}

	file, err := os.Create(pt.filePath)
	if err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer file.Close()

	for _, e := range entries {
		if _, err := fmt.Fprintf(file, "%d %s\n", e.pid, e.stem); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
	}
	return nil
}

// killByPID kills pid if it is still running as stem. A PID that no longer
// exists, or now belongs to another program, counts as cleared.
func killByPID(ctx context.Context, pid int, stem string) error {
	p, err := gops.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, gops.ErrorProcessNotRunning) {
			return nil
		}
		return err
	}
	if stem != "" {
		name, err := p.NameWithContext(ctx)
		if err == nil && !sameStem(name, stem) {
			return nil
		}
	}
	if err := p.KillWithContext(ctx); err != nil {
		if running, rerr := p.IsRunningWithContext(ctx); rerr == nil && !running {
			return nil
		}
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}
