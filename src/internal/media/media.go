// Package media runs the external downloader and transcoder under the
// process supervisor.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/events"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/process"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// Runner is the part of the supervisor the media tools need
type Runner interface {
	Run(ctx context.Context, c process.Command, sink events.Sink) (int, error)
}

// resolveTool finds name in dir (relative to base when not absolute), then
// on PATH. A missing tool is ErrMissingDependency.
func resolveTool(base, dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: no tool configured", models.ErrMissingDependency)
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%w: %s: %w", models.ErrMissingDependency, name, err)
		}
		return name, nil
	}

	if dir != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(base, dir)
	}
	if dir != "" {
		candidate := filepath.Join(dir, withExeSuffix(name))
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", models.ErrMissingDependency, name, err)
	}
	return path, nil
}

func withExeSuffix(name string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name + ".exe"
	}
	return name
}

// exitError turns a non-zero exit code into an error naming the tool
func exitError(tool string, code int) error {
	if code == 0 {
		return nil
	}
	return fmt.Errorf("%s exited with code %d", tool, code)
}
