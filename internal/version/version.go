// Package version defines SwiftParcel client version information and build
// metadata.
package version

import (
	"fmt"
	"strings"
)

// CommitHash stores the git commit hash of this build.
//
// This should be set using -ldflags during compilation.
var CommitHash string

const (
	appMajor uint = 1
	appMinor uint = 0
	appPatch uint = 0
)

// Version returns the application version per semantic versioning 2.0.0.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
}

// RichVersion returns the semantic version along with the commit hash when it
// was baked into the build.
func RichVersion() string {
	commit := strings.TrimSpace(CommitHash)
	if commit == "" {
		return Version()
	}
	return fmt.Sprintf("%s commit_hash=%s", Version(), commit)
}
