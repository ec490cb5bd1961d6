// Package installer extracts an update payload over a possibly running
// installation.
//
// Entries are processed one at a time in archive order. A single entry that
// cannot be replaced is recorded and skipped; it never aborts the run.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

const (
	defaultMaxAttempts = 5
	defaultBackoffStep = time.Second
	defaultProcessWait = 2 * time.Second
)

// ProcessWaiter waits for processes named stem to exit. It is advisory; see
// process.NameWaiter.
type ProcessWaiter interface {
	WaitForExit(ctx context.Context, stem string, timeout time.Duration) (matched, stillRunning int)
}

// Options tunes the locked-file retry loop and the write strategy
type Options struct {
	MaxAttempts int
	BackoffStep time.Duration
	ProcessWait time.Duration
	// AtomicWrites writes each file to a sibling temp file and renames it
	// into place. Off by default, which overwrites in place.
	AtomicWrites bool
}

// OptionsFromConfig maps the installer config section onto Options
func OptionsFromConfig(cfg models.InstallerConfig) Options {
	return Options{
		MaxAttempts:  cfg.MaxAttempts,
		BackoffStep:  cfg.BackoffStep,
		ProcessWait:  cfg.ProcessWait,
		AtomicWrites: cfg.AtomicWrites,
	}
}

// Installer extracts zip payloads into an install directory
type Installer struct {
	opts   Options
	waiter ProcessWaiter
	logger *log.Logger

	removeFile func(string) error
}

// New creates an installer. waiter may be nil to skip the process wait.
func New(opts Options, waiter ProcessWaiter, logger *log.Logger) *Installer {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BackoffStep <= 0 {
		opts.BackoffStep = defaultBackoffStep
	}
	if opts.ProcessWait <= 0 {
		opts.ProcessWait = defaultProcessWait
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{
		opts:       opts,
		waiter:     waiter,
		logger:     logger.WithPrefix("installer"),
		removeFile: os.Remove,
	}
}

// Install extracts archivePath into installDir. Entries whose path starts
// with one of excludePrefixes are never written. The returned slice has one
// outcome per archive entry. The error is non-nil only when the archive
// itself is unusable, in which case nothing has been installed.
func (in *Installer) Install(ctx context.Context, archivePath, installDir string, excludePrefixes []string, sink events.Sink) ([]models.EntryOutcome, error) {
	sink = events.OrDiscard(sink)

	r, err := zip.OpenReader(archivePath)
	if r == nil {
		return nil, fmt.Errorf("%w: open %s: %w", models.ErrArchiveCorrupt, archivePath, err)
	}
	defer r.Close()
	if err != nil {
		// The reader is still usable; unsafe names are rejected per entry.
		in.logger.Warn("archive has insecure entry names", "archive", archivePath, "err", err)
	}

	total := len(r.File)
	if total == 0 {
		return nil, fmt.Errorf("%w: %s has no entries", models.ErrArchiveCorrupt, archivePath)
	}

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create install dir: %w", models.ErrTransientIO, err)
	}

	prefixes := normalizePrefixes(excludePrefixes)
	outcomes := make([]models.EntryOutcome, 0, total)

	in.logger.Info("installing", "archive", archivePath, "dir", installDir, "entries", total)

	for i, f := range r.File {
		entry := models.ArchiveEntry{
			Path:  normalizeName(f.Name),
			IsDir: f.FileInfo().IsDir() || strings.HasSuffix(normalizeName(f.Name), "/"),
			Size:  f.UncompressedSize64,
		}

		outcome := in.installEntry(ctx, f, entry, installDir, prefixes)
		outcomes = append(outcomes, outcome)

		switch outcome.Kind {
		case models.OutcomeInstalled:
			in.logger.Debug(fmt.Sprintf("[%d/%d] %s", i+1, total, entry.Path))
			sink.Emit(models.EntryProgressEvent(archivePath, i+1, total))
		case models.OutcomeSkipped:
			in.logger.Debug(fmt.Sprintf("[%d/%d] skipped %s", i+1, total, entry.Path), "reason", outcome.Reason)
		case models.OutcomeFailed:
			in.logger.Error(fmt.Sprintf("[%d/%d] failed %s", i+1, total, entry.Path), "reason", outcome.Reason, "err", outcome.Err)
		}
	}

	s := models.Summarize(outcomes)
	in.logger.Info("install finished", "installed", s.Installed, "skipped", s.Skipped, "failed", s.Failed)
	return outcomes, nil
}

func (in *Installer) installEntry(ctx context.Context, f *zip.File, entry models.ArchiveEntry, installDir string, prefixes []string) models.EntryOutcome {
	out := models.EntryOutcome{Entry: entry}

	if isExcluded(entry.Path, prefixes) {
		out.Kind, out.Reason = models.OutcomeSkipped, models.ReasonExcluded
		return out
	}

	dest, ok := destination(installDir, entry.Path)
	if !ok {
		out.Kind, out.Reason = models.OutcomeFailed, models.ReasonUnsafePath
		out.Err = fmt.Errorf("entry %q escapes %s", entry.Path, installDir)
		return out
	}

	if entry.IsDir {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			out.Kind, out.Reason = models.OutcomeFailed, models.ReasonWrite
			out.Err = fmt.Errorf("%w: mkdir %s: %w", models.ErrTransientIO, dest, err)
			return out
		}
		out.Kind, out.Reason = models.OutcomeInstalled, models.ReasonDirectory
		return out
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		out.Kind, out.Reason = models.OutcomeFailed, models.ReasonWrite
		out.Err = fmt.Errorf("%w: mkdir %s: %w", models.ErrTransientIO, filepath.Dir(dest), err)
		return out
	}

	attempts, err := in.removeExisting(ctx, dest)
	out.Attempts = attempts
	if err != nil {
		out.Kind, out.Reason, out.Err = models.OutcomeFailed, models.ReasonLockedFile, err
		return out
	}

	if err := in.writeEntry(f, dest); err != nil {
		out.Kind, out.Reason, out.Err = models.OutcomeFailed, models.ReasonWrite, err
		return out
	}

	out.Kind = models.OutcomeInstalled
	return out
}

func (in *Installer) writeEntry(f *zip.File, dest string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: read entry %s: %w", models.ErrArchiveCorrupt, f.Name, err)
	}
	defer src.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}

	if in.opts.AtomicWrites {
		return writeAtomic(src, dest, perm)
	}
	return writeInPlace(src, dest, perm)
}

func writeInPlace(src io.Reader, dest string, perm os.FileMode) error {
	dst, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", models.ErrTransientIO, dest, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("%w: write %s: %w", models.ErrTransientIO, dest, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", models.ErrTransientIO, dest, err)
	}
	return nil
}

func writeAtomic(src io.Reader, dest string, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", models.ErrTransientIO, dest, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %w", models.ErrTransientIO, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync %s: %w", models.ErrTransientIO, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %w", models.ErrTransientIO, tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("%w: chmod %s: %w", models.ErrTransientIO, tmpName, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return fmt.Errorf("%w: rename into %s: %w", models.ErrTransientIO, dest, err)
	}
	return nil
}

// normalizeName converts an archive path to forward slashes
func normalizeName(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

func normalizePrefixes(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		out = append(out, strings.ToLower(normalizeName(p)))
	}
	return out
}

// isExcluded reports whether path starts with any prefix, ignoring case and
// separator style. prefixes must already be normalized.
func isExcluded(path string, prefixes []string) bool {
	lower := strings.ToLower(normalizeName(path))
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// destination joins name onto installDir and rejects results outside it
func destination(installDir, name string) (string, bool) {
	if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(filepath.FromSlash(name)) || filepath.VolumeName(filepath.FromSlash(name)) != "" {
		return "", false
	}
	dest := filepath.Join(installDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(installDir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return dest, true
}
