package models

import (
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the status of a supervised child process
type JobStatus string

const (
	JobStarting JobStatus = "starting"
	JobRunning  JobStatus = "running"
	JobExited   JobStatus = "exited"
	JobFailed   JobStatus = "failed"
)

// ProgressSample is one parsed (percent, speed, ETA) triple. Speed and ETA
// are opaque display strings.
type ProgressSample struct {
	Percent float64 `json:"percent"`
	Speed   string  `json:"speed,omitempty"`
	ETA     string  `json:"eta,omitempty"`
}

func (p ProgressSample) String() string {
	if p.Speed == "" && p.ETA == "" {
		return fmt.Sprintf("%.1f%%", p.Percent)
	}
	return fmt.Sprintf("%.1f%% at %s ETA %s", p.Percent, p.Speed, p.ETA)
}

// JobResult is delivered once a supervised child has exited
type JobResult struct {
	ExitCode int
	Err      error
	Duration time.Duration
}

// JobInfo describes one supervised child for its whole lifetime
type JobInfo struct {
	ID         string
	Executable string
	Args       []string
	PID        int
	StartTime  time.Time
	Status     JobStatus
	LastSample *ProgressSample
	mu         sync.RWMutex
}

// GetStatus returns the current status of the job
func (j *JobInfo) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetStatus sets the status of the job
func (j *JobInfo) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
}

// SetSample records the latest progress sample, superseding the previous one
func (j *JobInfo) SetSample(s ProgressSample) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.LastSample = &s
}

// GetSample returns the latest progress sample, if any
func (j *JobInfo) GetSample() (ProgressSample, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.LastSample == nil {
		return ProgressSample{}, false
	}
	return *j.LastSample, true
}
