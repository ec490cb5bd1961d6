package models

import "time"

// Asset is one downloadable file attached to a release
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

// ReleaseInfo represents one entry of the release feed
type ReleaseInfo struct {
	Tag          string    `json:"tag"`
	Name         string    `json:"name"`
	IsPrerelease bool      `json:"is_prerelease"`
	PublishedAt  time.Time `json:"published_at"`
	ReleaseURL   string    `json:"release_url"`
	Assets       []Asset   `json:"assets"`
}

// AssetNames returns the names of all assets in feed order
func (r *ReleaseInfo) AssetNames() []string {
	names := make([]string, 0, len(r.Assets))
	for _, a := range r.Assets {
		names = append(names, a.Name)
	}
	return names
}

// Variant is the deployment variant of the running copy
type Variant string

const (
	VariantInstalled Variant = "installed"
	VariantPortable  Variant = "portable"
)

// UpdatePlan is the resolved decision of an update check. It is consumed
// once and never mutated.
type UpdatePlan struct {
	ID             string  `json:"id"`
	CurrentVersion string  `json:"current_version"`
	LatestVersion  string  `json:"latest_version"`
	IsPrerelease   bool    `json:"is_prerelease"`
	AssetName      string  `json:"asset_name"`
	PayloadURL     string  `json:"payload_url"`
	Variant        Variant `json:"variant"`
	TargetExe      string  `json:"target_exe"`
	InstallDir     string  `json:"install_dir"`
	TempPath       string  `json:"temp_path"`
}

// CheckOutcome classifies the result of an update check
type CheckOutcome string

const (
	CheckNoUpdate        CheckOutcome = "no_update"
	CheckUpdateAvailable CheckOutcome = "update_available"
	CheckFailed          CheckOutcome = "failed"
)

// CheckResult is NoUpdate, UpdateAvailable(Plan) or Failed(Reason)
type CheckResult struct {
	Outcome        CheckOutcome `json:"outcome"`
	Plan           *UpdatePlan  `json:"plan,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	CurrentVersion string       `json:"current_version"`
	LatestVersion  string       `json:"latest_version,omitempty"`
}

// UpdateStatus represents the status of an update operation
type UpdateStatus struct {
	RunID     string  `json:"run_id"`
	Stage     Stage   `json:"stage"`
	Progress  float64 `json:"progress"`
	Message   string  `json:"message"`
	Error     string  `json:"error,omitempty"`
	Completed bool    `json:"completed"`
}
