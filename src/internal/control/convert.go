package control

import (
	"time"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventStruct converts an event into a protobuf Struct carrying only the
// fields of its variant.
func EventStruct(e models.Event) (*structpb.Struct, error) {
	fields := map[string]any{
		"kind":   string(e.Kind),
		"source": e.Source,
		"time":   e.Time.UTC().Format(time.RFC3339Nano),
	}
	switch e.Kind {
	case models.EventLog:
		fields["text"] = e.Text
		if e.Stream != "" {
			fields["stream"] = string(e.Stream)
		}
	case models.EventProgress:
		fields["percent"] = e.Sample.Percent
		if e.Sample.Speed != "" {
			fields["speed"] = e.Sample.Speed
		}
		if e.Sample.ETA != "" {
			fields["eta"] = e.Sample.ETA
		}
		if e.Total > 0 {
			fields["processed"] = e.Processed
			fields["total"] = e.Total
		}
	case models.EventStage:
		fields["from"] = string(e.From)
		fields["to"] = string(e.To)
	case models.EventCompleted:
		fields["text"] = e.Text
	case models.EventFailed:
		fields["reason"] = e.Reason
		if e.Err != nil {
			fields["error"] = e.Err.Error()
		}
	}
	return structpb.NewStruct(fields)
}

// StatusStruct converts an update status snapshot
func StatusStruct(s models.UpdateStatus) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"run_id":    s.RunID,
		"stage":     string(s.Stage),
		"progress":  s.Progress,
		"message":   s.Message,
		"error":     s.Error,
		"completed": s.Completed,
	})
}

// CheckStruct converts a check result
func CheckStruct(r models.CheckResult) (*structpb.Struct, error) {
	fields := map[string]any{
		"outcome":         string(r.Outcome),
		"current_version": r.CurrentVersion,
		"latest_version":  r.LatestVersion,
	}
	if r.Reason != "" {
		fields["reason"] = r.Reason
	}
	if p := r.Plan; p != nil {
		fields["plan"] = map[string]any{
			"id":            p.ID,
			"asset_name":    p.AssetName,
			"variant":       string(p.Variant),
			"is_prerelease": p.IsPrerelease,
			"target_exe":    p.TargetExe,
		}
	}
	return structpb.NewStruct(fields)
}
