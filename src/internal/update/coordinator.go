package update

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/version"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// ReleaseSource is the remote release feed
type ReleaseSource interface {
	// ListReleases returns releases newest first
	ListReleases(ctx context.Context) ([]models.ReleaseInfo, error)
	DownloadAsset(ctx context.Context, assetURL, destPath string, progress func(downloaded, total int64)) (int64, error)
}

// Coordinator decides whether an update applies to the running copy and
// fetches its payload.
type Coordinator struct {
	cfg    *models.Config
	feed   ReleaseSource
	logger *log.Logger

	executable func() (string, error)
}

// NewCoordinator creates a coordinator for the configured application
func NewCoordinator(cfg *models.Config, feed ReleaseSource, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		cfg:        cfg,
		feed:       feed,
		logger:     logger.WithPrefix("update"),
		executable: currentExecutable,
	}
}

// CheckForUpdate reads the newest release and resolves it into a plan. A
// Failed result is always returned together with a non-nil error.
func (c *Coordinator) CheckForUpdate(ctx context.Context) (models.CheckResult, error) {
	current := c.cfg.App.CurrentVersion
	result := models.CheckResult{CurrentVersion: current}

	if version.IsDev(current) {
		c.logger.Info("development build, not checking for updates")
		result.Outcome = models.CheckNoUpdate
		return result, nil
	}

	releases, err := c.feed.ListReleases(ctx)
	if err != nil {
		c.logger.Error("failed to fetch release feed", "err", err)
		return failed(result, err)
	}

	latest := c.newest(releases)
	if latest == nil {
		c.logger.Info("release feed is empty")
		result.Outcome = models.CheckNoUpdate
		return result, nil
	}
	result.LatestVersion = latest.Tag

	newer, err := version.IsNewer(current, latest.Tag)
	if err != nil {
		c.logger.Error("cannot compare versions", "current", current, "latest", latest.Tag, "err", err)
		return failed(result, err)
	}
	if !newer {
		c.logger.Info("already up to date", "current", current, "latest", latest.Tag)
		result.Outcome = models.CheckNoUpdate
		return result, nil
	}

	exe, err := c.executable()
	if err != nil {
		err = fmt.Errorf("%w: locate running executable: %w", models.ErrMissingDependency, err)
		c.logger.Error("cannot resolve executable", "err", err)
		return failed(result, err)
	}

	variant := DetectVariant(exe, c.cfg.App)
	want := assetNameFor(variant, c.cfg.Assets)

	asset, ok := findAsset(latest.Assets, want)
	if !ok {
		c.logger.Error("no matching asset in release", "tag", latest.Tag, "variant", variant, "want", want)
		for _, name := range latest.AssetNames() {
			c.logger.Info("available asset", "name", name)
		}
		return failed(result, fmt.Errorf("%w: %s in %s", models.ErrAssetNotFound, want, latest.Tag))
	}

	id := uuid.New().String()
	plan := &models.UpdatePlan{
		ID:             id,
		CurrentVersion: current,
		LatestVersion:  latest.Tag,
		IsPrerelease:   latest.IsPrerelease,
		AssetName:      asset.Name,
		PayloadURL:     asset.DownloadURL,
		Variant:        variant,
		TargetExe:      exe,
		InstallDir:     filepath.Dir(exe),
		TempPath:       tempPayloadPath(c.cfg.App, id, asset.Name),
	}

	c.logger.Info("update available", "current", current, "latest", latest.Tag, "variant", variant, "asset", asset.Name)
	result.Outcome = models.CheckUpdateAvailable
	result.Plan = plan
	return result, nil
}

// Download streams url to destPath, reporting downloaded bytes
func (c *Coordinator) Download(ctx context.Context, url, destPath string, progress func(downloaded, total int64)) error {
	c.logger.Info("downloading payload", "url", url, "dest", destPath)
	n, err := c.feed.DownloadAsset(ctx, url, destPath, progress)
	if err != nil {
		c.logger.Error("download failed", "url", url, "err", err)
		return err
	}
	c.logger.Info("download complete", "bytes", n)
	return nil
}

// newest picks the first release, skipping prereleases when configured
func (c *Coordinator) newest(releases []models.ReleaseInfo) *models.ReleaseInfo {
	for i := range releases {
		if c.cfg.Feed.SkipPrerelease && releases[i].IsPrerelease {
			continue
		}
		return &releases[i]
	}
	return nil
}

func findAsset(assets []models.Asset, name string) (models.Asset, bool) {
	for _, a := range assets {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return models.Asset{}, false
}

// tempPayloadPath names downloads "<app>-update-<id><ext>" so stale ones can
// be swept later.
func tempPayloadPath(app models.AppConfig, id, assetName string) string {
	return filepath.Join(app.TempDir, fmt.Sprintf("%s%s%s", tempPrefix(app.Name), id, filepath.Ext(assetName)))
}

func tempPrefix(appName string) string {
	return appName + "-update-"
}

func failed(result models.CheckResult, err error) (models.CheckResult, error) {
	result.Outcome = models.CheckFailed
	result.Reason = models.FailureReason(err)
	return result, err
}
