// Package version reports the versions of histstats and of the Go runtime it
// was built with.
package version

import (
	"runtime"
	"strings"
)

const Version = "1.2.0"

// GoVersion reports the Go version, without its "go" prefix.
func GoVersion() string {
	return strings.TrimPrefix(runtime.Version(), "go")
}

// DevelGoVersion reports whether the Go toolchain that built the program is a
// development ("tip") version.
func DevelGoVersion() bool {
	return isDevel(GoVersion())
}

func isDevel(vsn string) bool {
	return strings.Count(vsn, " ") > 2 || strings.HasPrefix(vsn, "devel")
}

// String returns a one-line description of the program version, for example:
//
//	histstats 1.2.0 (go 1.24.4)
func String() string {
	return format(Version, GoVersion())
}

func format(version, goVersion string) string {
	if isDevel(goVersion) {
		goVersion = "devel"
	}
	return "histstats " + version + " (go " + goVersion + ")"
}
