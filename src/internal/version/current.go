package version

import "runtime/debug"

// Dev is reported by builds that carry no version stamp
const Dev = "dev"

// Current is stamped at build time:
//
//	go build -ldflags "-X github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/version.Current=v1.3.0"
var Current string

var readBuildInfo = debug.ReadBuildInfo

// Running returns the version of the running binary. The ldflags stamp wins,
// then the module version recorded by "go install module@version". Anything
// else is Dev.
func Running() string {
	if Current != "" {
		return Current
	}
	if info, ok := readBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Dev
}

// IsDev reports whether v is the unstamped development version
func IsDev(v string) bool {
	return v == Dev
}
