package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/progress"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

const maxLineSize = 1024 * 1024

// Command describes one child process invocation
type Command struct {
	Path string
	Args []string
	// Env entries are appended to the parent environment, so they win over
	// inherited values of the same name.
	Env map[string]string
	Dir string
}

// Supervisor spawns child processes and streams their output to a sink.
// A Supervisor holds no per-child state and may be shared by many workers.
type Supervisor struct {
	logger  *log.Logger
	decoder *Decoder
	tracker *PIDTracker
}

// NewSupervisor creates a supervisor. tracker may be nil.
func NewSupervisor(logger *log.Logger, decoder *Decoder, tracker *PIDTracker) *Supervisor {
	if logger == nil {
		logger = log.Default()
	}
	if decoder == nil {
		decoder = DefaultDecoder()
	}
	return &Supervisor{
		logger:  logger.WithPrefix("process"),
		decoder: decoder,
		tracker: tracker,
	}
}

// Job is the handle for one running child. The goroutine that started it
// owns the child until Done is closed.
type Job struct {
	Info *models.JobInfo

	done   chan struct{}
	result models.JobResult
}

// Done is closed once the child has exited and both streams are drained
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the child exits and returns its result
func (j *Job) Wait() models.JobResult {
	<-j.done
	return j.result
}

// Run starts the child and blocks until it exits. A non-zero exit code is
// not an error; err is set only when the child could not be started or
// waited on.
func (s *Supervisor) Run(ctx context.Context, c Command, sink events.Sink) (int, error) {
	job, err := s.Start(ctx, c, sink)
	if err != nil {
		return -1, err
	}
	res := job.Wait()
	return res.ExitCode, res.Err
}

// Start spawns the child with both output streams piped and returns
// immediately. Every line is decoded and emitted as a Log event; lines that
// carry a progress sample additionally produce a Progress event.
func (s *Supervisor) Start(ctx context.Context, c Command, sink events.Sink) (*Job, error) {
	sink = events.OrDiscard(sink)

	info := &models.JobInfo{
		ID:         uuid.New().String(),
		Executable: c.Path,
		Args:       c.Args,
		Status:     models.JobStarting,
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = mergeEnv(os.Environ(), c.Env)
	cmd.SysProcAttr = hiddenAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		info.SetStatus(models.JobFailed)
		return nil, fmt.Errorf("%w: stdout pipe for %s: %w", models.ErrProcessLaunch, c.Path, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		info.SetStatus(models.JobFailed)
		return nil, fmt.Errorf("%w: stderr pipe for %s: %w", models.ErrProcessLaunch, c.Path, err)
	}

	if err := cmd.Start(); err != nil {
		info.SetStatus(models.JobFailed)
		s.logger.Error("failed to start", "path", c.Path, "err", err)
		return nil, fmt.Errorf("%w: %s: %w", models.ErrProcessLaunch, c.Path, err)
	}

	info.PID = cmd.Process.Pid
	info.StartTime = time.Now()
	info.SetStatus(models.JobRunning)
	s.logger.Debug("started", "job", info.ID, "pid", info.PID, "path", c.Path)

	if s.tracker != nil {
		if err := s.tracker.Add(info.PID, c.Path); err != nil {
			s.logger.Warn("failed to track pid", "pid", info.PID, "err", err)
		}
	}

	job := &Job{Info: info, done: make(chan struct{})}

	var readers sync.WaitGroup
	readers.Add(2)
	go s.readStream(&readers, stdout, models.StreamStdout, info, sink)
	go s.readStream(&readers, stderr, models.StreamStderr, info, sink)

	go func() {
		defer close(job.done)

		// Both pipes must be drained before Wait closes them.
		readers.Wait()
		waitErr := cmd.Wait()

		job.result = models.JobResult{ExitCode: 0, Duration: time.Since(info.StartTime)}
		var exitErr *exec.ExitError
		switch {
		case waitErr == nil:
		case errors.As(waitErr, &exitErr):
			job.result.ExitCode = exitErr.ExitCode()
		default:
			job.result.ExitCode = -1
			job.result.Err = fmt.Errorf("wait for %s: %w", c.Path, waitErr)
		}

		if job.result.Err != nil {
			info.SetStatus(models.JobFailed)
		} else {
			info.SetStatus(models.JobExited)
		}

		if s.tracker != nil {
			if err := s.tracker.Remove(info.PID); err != nil {
				s.logger.Warn("failed to untrack pid", "pid", info.PID, "err", err)
			}
		}

		s.logger.Debug("exited", "job", info.ID, "code", job.result.ExitCode, "duration", job.result.Duration)
	}()

	return job, nil
}

// readStream owns one output stream. Line order within the stream is the
// order of arrival.
func (s *Supervisor) readStream(wg *sync.WaitGroup, r io.Reader, stream models.Stream, info *models.JobInfo, sink events.Sink) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := s.decoder.Decode(scanner.Bytes())
		sink.Emit(models.LogEvent(info.ID, stream, line))

		if sample, ok := progress.Parse(line); ok {
			info.SetSample(sample)
			sink.Emit(models.ProgressEvent(info.ID, sample))
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warn("output stream error", "job", info.ID, "stream", stream, "err", err)
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

// scanLines splits on \n or \r so carriage-return progress redraws are seen
// as separate lines. Empty tokens are dropped.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\n' || data[start] == '\r') {
		start++
	}
	if atEOF && start == len(data) {
		return len(data), nil, nil
	}
	if i := bytes.IndexAny(data[start:], "\r\n"); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

func mergeEnv(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	env = append(env, base...)
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}
