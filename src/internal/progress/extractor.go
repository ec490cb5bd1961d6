// Package progress extracts download progress from downloader text output.
//
// The upstream tool's text format is not a stable contract, so this stays a
// single pattern match and never grows into an output grammar.
package progress

import (
	"regexp"
	"strconv"

	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/pkg/models"
)

// progressPattern matches "<n>%" followed later by "<rate>/s" and later still
// by an ETA of H:MM:SS or MM:SS.
var progressPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%.*?(\S+/s).*?(\d+:\d{2}:\d{2}|\d{2}:\d{2})`)

// Parse turns one line of output into a progress sample. It keeps no state
// between calls. Lines that do not match return false and should still be
// logged by the caller.
func Parse(line string) (models.ProgressSample, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return models.ProgressSample{}, false
	}

	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return models.ProgressSample{}, false
	}

	return models.ProgressSample{
		Percent: percent,
		Speed:   m[2],
		ETA:     m[3],
	}, true
}
