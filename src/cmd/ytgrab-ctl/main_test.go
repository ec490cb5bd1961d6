package main

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		fields map[string]any
		want   string
	}{
		{map[string]any{"kind": "stage", "source": "r1", "from": "idle", "to": "checking"}, "[r1] idle -> checking"},
		{map[string]any{"kind": "log", "source": "poller", "text": "up to date: 1.2.0"}, "[poller] up to date: 1.2.0"},
		{map[string]any{"kind": "progress", "source": "r1", "percent": 50.0, "processed": 1, "total": 2}, "[r1] 1/2 entries"},
		{map[string]any{"kind": "progress", "source": "j1", "percent": 42.5, "speed": "1.00MiB/s", "eta": "00:10"}, "[j1] 42.5% 1.00MiB/s 00:10"},
		{map[string]any{"kind": "failed", "source": "r1", "reason": "network_failure", "error": "boom"}, "[r1] ✗ network_failure: boom"},
	}
	for _, tt := range tests {
		if got := formatEvent(mustStruct(t, tt.fields)); got != tt.want {
			t.Errorf("formatEvent(%v) = %q, want %q", tt.fields, got, tt.want)
		}
	}
}

func TestPrintStruct(t *testing.T) {
	var buf bytes.Buffer
	printStruct(&buf, mustStruct(t, map[string]any{
		"outcome": "update_available",
		"plan":    map[string]any{"variant": "portable", "asset_name": "ytgrab-portable.zip"},
	}))

	want := "  outcome: update_available\n  plan:\n    asset_name: ytgrab-portable.zip\n    variant: portable\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}
