package update

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// osExecutable is a test seam for os.Executable
var osExecutable = os.Executable

// currentExecutable returns the resolved path of the running binary
func currentExecutable() (string, error) {
	exe, err := osExecutable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Abs(exe)
}

// DetectVariant decides whether exePath is an installed or a portable copy.
// The portable marker file beside the executable wins. Otherwise a copy
// under the installed marker directory is installed and anything else is
// portable.
func DetectVariant(exePath string, app models.AppConfig) models.Variant {
	dir := filepath.Dir(exePath)

	if app.PortableMarker != "" {
		if _, err := os.Stat(filepath.Join(dir, app.PortableMarker)); err == nil {
			return models.VariantPortable
		}
	}

	if marker := os.ExpandEnv(app.InstalledMarker); marker != "" && isUnder(exePath, marker) {
		return models.VariantInstalled
	}

	return models.VariantPortable
}

// isUnder reports whether path lies inside dir. Windows paths compare
// case-insensitively.
func isUnder(path, dir string) bool {
	path, dir = filepath.Clean(path), filepath.Clean(dir)
	if runtime.GOOS == "windows" {
		path, dir = strings.ToLower(path), strings.ToLower(dir)
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// assetNameFor returns the authoritative asset name for variant
func assetNameFor(variant models.Variant, assets models.AssetsConfig) string {
	if variant == models.VariantInstalled {
		return assets.Installed
	}
	return assets.Portable
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
