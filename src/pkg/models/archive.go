package models

import "fmt"

// ArchiveEntry is a read-only view of one payload entry
type ArchiveEntry struct {
	Path  string
	IsDir bool
	Size  uint64
}

// OutcomeKind classifies what happened to an archive entry
type OutcomeKind string

const (
	OutcomeInstalled OutcomeKind = "installed"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome reasons
const (
	ReasonExcluded   = "excluded"
	ReasonDirectory  = "directory"
	ReasonLockedFile = "locked_file"
	ReasonUnsafePath = "unsafe_path"
	ReasonWrite      = "write_failed"
)

// EntryOutcome records the per-entry result of an install
type EntryOutcome struct {
	Entry    ArchiveEntry
	Kind     OutcomeKind
	Reason   string
	Attempts int
	Err      error
}

func (o EntryOutcome) String() string {
	if o.Reason == "" {
		return fmt.Sprintf("%s %s", o.Kind, o.Entry.Path)
	}
	return fmt.Sprintf("%s(%s) %s", o.Kind, o.Reason, o.Entry.Path)
}

// InstallSummary counts outcomes by kind
type InstallSummary struct {
	Installed int
	Skipped   int
	Failed    int
}

// Summarize counts the outcomes of one install run
func Summarize(outcomes []EntryOutcome) InstallSummary {
	var s InstallSummary
	for _, o := range outcomes {
		switch o.Kind {
		case OutcomeInstalled:
			s.Installed++
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}
