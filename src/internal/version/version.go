// Package version compares release tags with the running version.
package version

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
	"golang.org/x/mod/semver"
)

// Normalize turns a tag or version string into a canonical "vMAJOR.MINOR.PATCH".
// Build metadata after "+" is dropped, as is one leading non-digit marker
// such as "v". Missing minor or patch parts count as zero. Prerelease
// suffixes are ignored for ordering.
func Normalize(s string) (string, error) {
	v := strings.TrimSpace(s)
	v, _, _ = strings.Cut(v, "+")
	if v == "" {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidVersion, s)
	}
	if r := rune(v[0]); !unicode.IsDigit(r) {
		v = v[1:]
	}

	canon := semver.Canonical("v" + v)
	if canon == "" {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidVersion, s)
	}
	return strings.TrimSuffix(canon, semver.Prerelease(canon)), nil
}

// Compare returns -1, 0 or +1 as a is older than, equal to or newer than b
func Compare(a, b string) (int, error) {
	na, err := Normalize(a)
	if err != nil {
		return 0, err
	}
	nb, err := Normalize(b)
	if err != nil {
		return 0, err
	}
	return semver.Compare(na, nb), nil
}

// IsNewer reports whether latest is strictly newer than current
func IsNewer(current, latest string) (bool, error) {
	c, err := Compare(current, latest)
	if err != nil {
		return false, err
	}
	return c < 0, nil
}
