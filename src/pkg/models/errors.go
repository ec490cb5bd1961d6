package models

import "errors"

var (
	// ErrTransientIO is returned when a destination is locked or a local write fails.
	ErrTransientIO = errors.New("transient I/O failure")

	// ErrNetwork is returned for non-success HTTP statuses and connectivity errors.
	ErrNetwork = errors.New("network failure")

	// ErrArchiveCorrupt is returned when the payload cannot be opened or has no entries.
	ErrArchiveCorrupt = errors.New("archive corrupt")

	// ErrMissingDependency is returned when an expected executable is absent.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrProcessLaunch is returned when a child process cannot be spawned.
	ErrProcessLaunch = errors.New("process launch failure")

	// ErrAssetNotFound is returned when no release asset matches the deployment variant.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUpdateInProgress is returned when a second update run is requested.
	ErrUpdateInProgress = errors.New("update already in progress")

	// ErrInvalidVersion is returned when a tag or local version is not a dotted version.
	ErrInvalidVersion = errors.New("invalid version")
)

// FailureReason maps an error onto a short reason token
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAssetNotFound):
		return "asset_not_found"
	case errors.Is(err, ErrNetwork):
		return "network_failure"
	case errors.Is(err, ErrArchiveCorrupt):
		return "archive_corrupt"
	case errors.Is(err, ErrMissingDependency):
		return "missing_dependency"
	case errors.Is(err, ErrProcessLaunch):
		return "process_launch_failure"
	case errors.Is(err, ErrTransientIO):
		return "transient_io"
	case errors.Is(err, ErrUpdateInProgress):
		return "update_in_progress"
	case errors.Is(err, ErrInvalidVersion):
		return "invalid_version"
	}
	return "unknown"
}
