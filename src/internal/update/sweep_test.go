package update

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSweepStale(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)

	for _, name := range []string{"ytgrab-update-a.zip", "ytgrab-update-a-updater.exe", "other-update-b.zip", "notes.txt"} {
		path := filepath.Join(dir, name)
		writeFile(t, path, name)
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, filepath.Join(dir, "ytgrab-update-fresh.exe"), "in flight")

	if n := SweepStale(dir, "ytgrab", time.Hour, quietLogger); n != 2 {
		t.Errorf("expected 2 stale files removed, got %d", n)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	want := []string{"notes.txt", "other-update-b.zip", "ytgrab-update-fresh.exe"}
	if len(left) != len(want) {
		t.Fatalf("left %v, want %v", left, want)
	}
	for i := range want {
		if left[i] != want[i] {
			t.Errorf("left %v, want %v", left, want)
		}
	}
}

func TestSweepStaleMissingDir(t *testing.T) {
	if n := SweepStale(filepath.Join(t.TempDir(), "missing"), "ytgrab", 0, nil); n != 0 {
		t.Errorf("expected nothing removed, got %d", n)
	}
}
