package update

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

func TestCheckForUpdateAvailable(t *testing.T) {
	cfg := testConfig(t)
	exe := portableInstall(t)
	src := &fakeSource{releases: []models.ReleaseInfo{
		release("v1.3.0", "ytgrab-setup.exe", "YTGRAB-Portable.zip"),
		release("v1.2.0", "ytgrab-portable.zip"),
	}}

	res, err := newTestCoordinator(cfg, src, exe).CheckForUpdate(context.Background())
	if err != nil {
		t.Fatalf("CheckForUpdate failed: %v", err)
	}
	if res.Outcome != models.CheckUpdateAvailable || res.Plan == nil {
		t.Fatalf("expected update available, got %+v", res)
	}

	plan := res.Plan
	if plan.Variant != models.VariantPortable {
		t.Errorf("expected portable variant, got %s", plan.Variant)
	}
	if plan.AssetName != "YTGRAB-Portable.zip" {
		t.Errorf("expected case-insensitive asset match, got %q", plan.AssetName)
	}
	if plan.TargetExe != exe || plan.InstallDir != filepath.Dir(exe) {
		t.Errorf("unexpected target %q in %q", plan.TargetExe, plan.InstallDir)
	}
	if filepath.Dir(plan.TempPath) != cfg.App.TempDir {
		t.Errorf("temp payload outside temp dir: %q", plan.TempPath)
	}
	base := filepath.Base(plan.TempPath)
	if !strings.HasPrefix(base, "ytgrab-update-") || filepath.Ext(base) != ".zip" {
		t.Errorf("unexpected temp payload name %q", base)
	}
	if plan.ID == "" || !strings.Contains(base, plan.ID) {
		t.Errorf("temp payload %q should carry plan id %q", base, plan.ID)
	}
}

func TestCheckForUpdateNoUpdate(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		releases []models.ReleaseInfo
	}{
		{"empty feed", "1.2.0", nil},
		{"same version", "1.2.0", []models.ReleaseInfo{release("v1.2.0")}},
		{"build metadata", "1.2.0+build7", []models.ReleaseInfo{release("v1.2.0")}},
		{"older tag", "1.2.0", []models.ReleaseInfo{release("v1.1.9")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.App.CurrentVersion = tt.current

			res, err := newTestCoordinator(cfg, &fakeSource{releases: tt.releases}, portableInstall(t)).CheckForUpdate(context.Background())
			if err != nil {
				t.Fatalf("CheckForUpdate failed: %v", err)
			}
			if res.Outcome != models.CheckNoUpdate || res.Plan != nil {
				t.Errorf("expected no update, got %+v", res)
			}
		})
	}
}

func TestCheckForUpdateFailures(t *testing.T) {
	tests := []struct {
		name   string
		src    *fakeSource
		want   error
		reason string
	}{
		{
			name:   "feed error",
			src:    &fakeSource{listErr: models.ErrNetwork},
			want:   models.ErrNetwork,
			reason: "network_failure",
		},
		{
			name:   "asset missing",
			src:    &fakeSource{releases: []models.ReleaseInfo{release("v2.0.0", "ytgrab-setup.exe", "notes.txt")}},
			want:   models.ErrAssetNotFound,
			reason: "asset_not_found",
		},
		{
			name:   "bad tag",
			src:    &fakeSource{releases: []models.ReleaseInfo{release("nightly")}},
			want:   models.ErrInvalidVersion,
			reason: "invalid_version",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestCoordinator(testConfig(t), tt.src, portableInstall(t)).CheckForUpdate(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if res.Outcome != models.CheckFailed || res.Reason != tt.reason {
				t.Errorf("expected failed(%s), got %+v", tt.reason, res)
			}
		})
	}
}

func TestCheckForUpdateInstalledVariant(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.App.InstalledMarker = dir
	exe := filepath.Join(dir, "ytgrab.exe")
	src := &fakeSource{releases: []models.ReleaseInfo{release("1.3.0", "ytgrab-portable.zip", "ytgrab-setup.exe")}}

	res, err := newTestCoordinator(cfg, src, exe).CheckForUpdate(context.Background())
	if err != nil {
		t.Fatalf("CheckForUpdate failed: %v", err)
	}
	if res.Plan.Variant != models.VariantInstalled || res.Plan.AssetName != "ytgrab-setup.exe" {
		t.Errorf("unexpected plan %+v", res.Plan)
	}
}

func TestCheckForUpdatePrerelease(t *testing.T) {
	newest := release("v1.4.0-rc1", "ytgrab-portable.zip")
	newest.IsPrerelease = true
	releases := []models.ReleaseInfo{newest, release("v1.3.0", "ytgrab-portable.zip")}

	cfg := testConfig(t)
	res, err := newTestCoordinator(cfg, &fakeSource{releases: releases}, portableInstall(t)).CheckForUpdate(context.Background())
	if err != nil {
		t.Fatalf("CheckForUpdate failed: %v", err)
	}
	if res.Plan.LatestVersion != "v1.4.0-rc1" || !res.Plan.IsPrerelease {
		t.Errorf("expected newest entry regardless of prerelease flag, got %+v", res.Plan)
	}

	cfg.Feed.SkipPrerelease = true
	res, err = newTestCoordinator(cfg, &fakeSource{releases: releases}, portableInstall(t)).CheckForUpdate(context.Background())
	if err != nil {
		t.Fatalf("CheckForUpdate failed: %v", err)
	}
	if res.Plan.LatestVersion != "v1.3.0" {
		t.Errorf("expected prerelease skipped, got %+v", res.Plan)
	}
}

func TestCheckForUpdateExecutableError(t *testing.T) {
	c := NewCoordinator(testConfig(t), &fakeSource{releases: []models.ReleaseInfo{release("v9.0.0")}}, quietLogger)
	c.executable = func() (string, error) { return "", errBoom }

	_, err := c.CheckForUpdate(context.Background())
	if !errors.Is(err, models.ErrMissingDependency) || !errors.Is(err, errBoom) {
		t.Errorf("expected wrapped missing dependency, got %v", err)
	}
}

func TestCurrentExecutable(t *testing.T) {
	dir := t.TempDir()
	sep := string(filepath.Separator)
	orig := osExecutable
	t.Cleanup(func() { osExecutable = orig })
	osExecutable = func() (string, error) { return dir + sep + "." + sep + "ytgrab.exe", nil }

	got, err := currentExecutable()
	if err != nil {
		t.Fatalf("currentExecutable failed: %v", err)
	}
	if got != filepath.Join(dir, "ytgrab.exe") {
		t.Errorf("expected cleaned path, got %q", got)
	}
}
