package models

import (
	"fmt"
	"time"
)

// Stage is a state of the update pipeline
type Stage string

const (
	StageIdle          Stage = "idle"
	StageChecking      Stage = "checking"
	StageNoUpdateFound Stage = "no_update_found"
	StageUpdateFound   Stage = "update_found"
	StageDownloading   Stage = "downloading"
	StageInstalling    Stage = "installing"
	StageRelaunching   Stage = "relaunching"
	StageFailed        Stage = "failed"
	StageCleanup       Stage = "cleanup"
	StageTerminated    Stage = "terminated"
)

// EventKind tags the variant carried by an Event
type EventKind string

const (
	EventLog       EventKind = "log"
	EventProgress  EventKind = "progress"
	EventStage     EventKind = "stage"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Stream identifies which child output a log line came from
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Event is the single message type delivered to sinks. Only the fields of
// the tagged variant are meaningful.
type Event struct {
	Kind   EventKind
	Source string // job or run id
	Time   time.Time

	// Log
	Text   string
	Stream Stream

	// Progress. Processed and Total are set for install entry progress.
	Sample    ProgressSample
	Processed int
	Total     int

	// Stage
	From Stage
	To   Stage

	// Failed
	Reason string
	Err    error
}

// LogEvent builds a Log variant
func LogEvent(source string, stream Stream, text string) Event {
	return Event{Kind: EventLog, Source: source, Stream: stream, Text: text, Time: time.Now()}
}

// ProgressEvent builds a Progress variant
func ProgressEvent(source string, sample ProgressSample) Event {
	return Event{Kind: EventProgress, Source: source, Sample: sample, Time: time.Now()}
}

// EntryProgressEvent builds a Progress variant counting installed entries
func EntryProgressEvent(source string, processed, total int) Event {
	var percent float64
	if total > 0 {
		percent = float64(processed) * 100 / float64(total)
	}
	return Event{
		Kind:      EventProgress,
		Source:    source,
		Sample:    ProgressSample{Percent: percent},
		Processed: processed,
		Total:     total,
		Time:      time.Now(),
	}
}

// StageEvent builds a Stage variant
func StageEvent(source string, from, to Stage) Event {
	return Event{Kind: EventStage, Source: source, From: from, To: to, Time: time.Now()}
}

// CompletedEvent builds a Completed variant
func CompletedEvent(source, text string) Event {
	return Event{Kind: EventCompleted, Source: source, Text: text, Time: time.Now()}
}

// FailedEvent builds a Failed variant
func FailedEvent(source string, err error) Event {
	return Event{Kind: EventFailed, Source: source, Reason: FailureReason(err), Err: err, Time: time.Now()}
}

// String renders the event for plain log output
func (e Event) String() string {
	switch e.Kind {
	case EventLog:
		return e.Text
	case EventProgress:
		if e.Total > 0 {
			return fmt.Sprintf("[%d/%d] %s", e.Processed, e.Total, e.Sample.String())
		}
		return e.Sample.String()
	case EventStage:
		return fmt.Sprintf("%s -> %s", e.From, e.To)
	case EventCompleted:
		return "completed: " + e.Text
	case EventFailed:
		if e.Err != nil {
			return fmt.Sprintf("failed (%s): %v", e.Reason, e.Err)
		}
		return "failed: " + e.Reason
	}
	return string(e.Kind)
}
