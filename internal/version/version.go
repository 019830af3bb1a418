// Package version holds the build version of ancs-intray, stamped with -ldflags.
package version

// Version is the release version.
var Version = "development"

// Commit is the git commit the binary was built from.
var Commit = "unknown"

// String returns Version, suffixed with +Commit when the commit is known.
func String() string {
	if Commit == "" || Commit == "unknown" {
		return Version
	}
	return Version + "+" + Commit
}
