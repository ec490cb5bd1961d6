package process

import (
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// StartDetached starts path with its own folder as the working directory and
// returns without waiting. Streams are not redirected; the child is released
// so it keeps running after the caller exits.
func StartDetached(path string, args ...string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(path)
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", models.ErrProcessLaunch, path, err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release %s: %w", path, err)
	}
	return pid, nil
}
