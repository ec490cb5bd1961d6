package update

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// handOff starts whatever replaces the running copy. The installed variant
// runs the setup payload; the portable variant runs the updater binary with
// the three-argument contract.
func (m *Manager) handOff(plan *models.UpdatePlan) error {
	switch plan.Variant {
	case models.VariantInstalled:
		pid, err := m.startDetached(plan.TempPath, m.cfg.Relaunch.InstallerArgs...)
		if err != nil {
			return err
		}
		m.logger.Info("setup payload started", "path", plan.TempPath, "pid", pid)
		return nil

	default:
		updater, err := m.stageUpdater(plan)
		if err != nil {
			return err
		}
		pid, err := m.startDetached(updater, plan.TempPath, plan.InstallDir, plan.TargetExe)
		if err != nil {
			os.Remove(updater)
			return err
		}
		m.logger.Info("updater started", "path", updater, "pid", pid)
		return nil
	}
}

// stageUpdater copies the updater binary out of the install dir so that it
// can be replaced by the payload it is installing.
func (m *Manager) stageUpdater(plan *models.UpdatePlan) (string, error) {
	src := filepath.Join(plan.InstallDir, m.cfg.Relaunch.UpdaterName+exeSuffix())
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("%w: updater %s: %w", models.ErrMissingDependency, src, err)
	}
	defer in.Close()

	dest := filepath.Join(m.cfg.App.TempDir, fmt.Sprintf("%s%s-updater%s", tempPrefix(m.cfg.App.Name), plan.ID, exeSuffix()))
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return "", fmt.Errorf("%w: stage updater: %w", models.ErrTransientIO, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("%w: stage updater: %w", models.ErrTransientIO, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("%w: stage updater: %w", models.ErrTransientIO, err)
	}

	m.logger.Debug("updater staged", "from", src, "to", dest)
	return dest, nil
}
