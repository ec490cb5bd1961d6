package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

type fakeRunner struct {
	commands []process.Command
	code     int
	err      error
}

func (r *fakeRunner) Run(_ context.Context, c process.Command, _ events.Sink) (int, error) {
	r.commands = append(r.commands, c)
	return r.code, r.err
}

func toolsDir(t *testing.T, names ...string) (string, models.ToolsConfig) {
	t.Helper()
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "tools"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(base, "tools", withExeSuffix(name)), nil, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return base, models.ToolsConfig{
		Dir:    "tools",
		YTDLP:  "yt-dlp",
		FFmpeg: "ffmpeg",
		Env:    map[string]string{"PYTHONIOENCODING": "utf-8"},
	}
}

var quiet = log.New(io.Discard)

func TestBuildFetchArgs(t *testing.T) {
	f := NewFetcher(nil, models.ToolsConfig{}, "", quiet)
	args := f.BuildFetchArgs("https://example.com/v", "out")

	expected := []string{"--newline", "--no-playlist", "-o", filepath.Join("out", DefaultOutputTemplate), "https://example.com/v"}
	if len(args) != len(expected) {
		t.Fatalf("Expected %d args, got %d: %v", len(expected), len(args), args)
	}
	for i := range expected {
		if args[i] != expected[i] {
			t.Errorf("Arg %d: expected %q, got %q", i, expected[i], args[i])
		}
	}
}

func TestFetch(t *testing.T) {
	base, cfg := toolsDir(t, "yt-dlp")
	cfg.OutputFormat = "%(id)s.%(ext)s"
	runner := &fakeRunner{}
	outDir := filepath.Join(t.TempDir(), "downloads")

	if err := NewFetcher(runner, cfg, base, quiet).Fetch(context.Background(), "https://example.com/v", outDir, nil); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(runner.commands) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.commands))
	}
	c := runner.commands[0]
	if c.Path != filepath.Join(base, "tools", withExeSuffix("yt-dlp")) {
		t.Errorf("unexpected tool path %q", c.Path)
	}
	if c.Env["PYTHONIOENCODING"] != "utf-8" {
		t.Errorf("expected env override passed, got %v", c.Env)
	}
	if c.Args[3] != filepath.Join(outDir, "%(id)s.%(ext)s") {
		t.Errorf("expected output template honoured, got %q", c.Args[3])
	}
	if _, err := os.Stat(outDir); err != nil {
		t.Errorf("expected output dir created: %v", err)
	}
}

func TestFetchRelativeOutputDir(t *testing.T) {
	base, cfg := toolsDir(t, "yt-dlp")
	t.Chdir(t.TempDir())
	runner := &fakeRunner{}

	if err := NewFetcher(runner, cfg, base, quiet).Fetch(context.Background(), "u", "downloads", nil); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	want, err := filepath.Abs("downloads")
	if err != nil {
		t.Fatal(err)
	}
	c := runner.commands[0]
	if c.Dir != want {
		t.Errorf("expected working dir %q, got %q", want, c.Dir)
	}

	// The output template must land in the output dir once, however the
	// tool combines it with its working directory.
	out := c.Args[3]
	if !filepath.IsAbs(out) {
		out = filepath.Join(c.Dir, out)
	}
	if expected := filepath.Join(want, DefaultOutputTemplate); out != expected {
		t.Errorf("expected output %q, got %q", expected, out)
	}
}

func TestFetchNonZeroExit(t *testing.T) {
	base, cfg := toolsDir(t, "yt-dlp")
	runner := &fakeRunner{code: 1}

	if err := NewFetcher(runner, cfg, base, quiet).Fetch(context.Background(), "u", t.TempDir(), nil); err == nil {
		t.Error("expected error for non-zero exit")
	}
}

func TestFetchLaunchFailure(t *testing.T) {
	base, cfg := toolsDir(t, "yt-dlp")
	runner := &fakeRunner{code: -1, err: models.ErrProcessLaunch}

	err := NewFetcher(runner, cfg, base, quiet).Fetch(context.Background(), "u", t.TempDir(), nil)
	if !errors.Is(err, models.ErrProcessLaunch) {
		t.Errorf("expected ErrProcessLaunch, got %v", err)
	}
}

func TestSelfUpdate(t *testing.T) {
	base, cfg := toolsDir(t, "yt-dlp")
	runner := &fakeRunner{}

	if err := NewFetcher(runner, cfg, base, quiet).SelfUpdate(context.Background(), nil); err != nil {
		t.Fatalf("SelfUpdate failed: %v", err)
	}
	if args := runner.commands[0].Args; len(args) != 1 || args[0] != "-U" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestMissingTool(t *testing.T) {
	base, cfg := toolsDir(t)
	cfg.YTDLP = "ytgrab-no-such-tool"
	runner := &fakeRunner{}

	err := NewFetcher(runner, cfg, base, quiet).Fetch(context.Background(), "u", t.TempDir(), nil)
	if !errors.Is(err, models.ErrMissingDependency) {
		t.Errorf("expected ErrMissingDependency, got %v", err)
	}
	if len(runner.commands) != 0 {
		t.Errorf("missing tool must not be run")
	}
}

func TestBuildTranscodeArgs(t *testing.T) {
	args := BuildTranscodeArgs("/input.webm", "/output.mp4")

	expected := []string{
		"-y",
		"-i", "/input.webm",
		"-c:v", VideoCodec,
		"-preset", VideoPreset,
		"-crf", VideoCRF,
		"-c:a", AudioCodec,
		"-b:a", AudioBitrate,
		"-movflags", FastStartFlag,
		"-nostats",
		"/output.mp4",
	}
	if len(args) != len(expected) {
		t.Fatalf("Expected %d args, got %d", len(expected), len(args))
	}
	for i := range expected {
		if args[i] != expected[i] {
			t.Errorf("Arg %d: expected %q, got %q", i, expected[i], args[i])
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/path/to/video.webm", "/path/to/video-converted.mp4"},
		{"video.mkv", "video-converted.mp4"},
		{"/no/ext/file", "/no/ext/file-converted.mp4"},
	}
	for _, test := range tests {
		if got := OutputPath(test.input); got != test.expected {
			t.Errorf("OutputPath(%s) = %s, expected %s", test.input, got, test.expected)
		}
	}
}

func TestTranscode(t *testing.T) {
	base, cfg := toolsDir(t, "ffmpeg")
	in := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(in, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := &fakeRunner{}

	out, err := NewTranscoder(runner, cfg, base, quiet).Transcode(context.Background(), in, "", nil)
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}
	if out != OutputPath(in) {
		t.Errorf("expected default output path, got %q", out)
	}
	if c := runner.commands[0]; c.Args[2] != in || c.Args[len(c.Args)-1] != out {
		t.Errorf("unexpected args %v", c.Args)
	}
}

func TestTranscodeFailureRemovesOutput(t *testing.T) {
	base, cfg := toolsDir(t, "ffmpeg")
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.webm")
	out := filepath.Join(dir, "clip.mp4")
	for _, p := range []string{in, out} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := NewTranscoder(&fakeRunner{code: 1}, cfg, base, quiet).Transcode(context.Background(), in, out, nil); err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("expected partial output removed, stat err %v", err)
	}
}

func TestTranscodeMissingInput(t *testing.T) {
	base, cfg := toolsDir(t, "ffmpeg")
	runner := &fakeRunner{}

	if _, err := NewTranscoder(runner, cfg, base, quiet).Transcode(context.Background(), filepath.Join(base, "nope.webm"), "", nil); err == nil {
		t.Error("expected error for missing input")
	}
	if len(runner.commands) != 0 {
		t.Error("ffmpeg must not run without input")
	}
}
