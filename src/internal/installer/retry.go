package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// linearBackOff waits step, 2*step, 3*step, ... between attempts
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.step
}

func (b *linearBackOff) Reset() {
	b.n = 0
}

// removeExisting deletes dest, retrying while it is locked. Between attempts
// it waits for processes named after the file to exit. It returns the
// number of attempts made.
func (in *Installer) removeExisting(ctx context.Context, dest string) (int, error) {
	if _, err := os.Lstat(dest); os.IsNotExist(err) {
		return 0, nil
	}

	stem := process.Stem(dest)
	attempts := 0

	op := func() error {
		attempts++
		err := in.removeFile(dest)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: in.opts.BackoffStep}, uint64(in.opts.MaxAttempts-1)),
		ctx,
	)

	notify := func(err error, next time.Duration) {
		in.logger.Warn("destination locked, retrying",
			"path", dest, "attempt", attempts, "of", in.opts.MaxAttempts, "next", next, "err", err)
		if in.waiter == nil {
			return
		}
		if _, still := in.waiter.WaitForExit(ctx, stem, in.opts.ProcessWait); still > 0 {
			in.logger.Warn("process holding destination did not exit", "name", stem, "count", still)
		}
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return attempts, fmt.Errorf("%w: remove %s after %d attempts: %w", models.ErrTransientIO, dest, attempts, err)
	}
	return attempts, nil
}
