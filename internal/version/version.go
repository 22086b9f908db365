// Package version holds build identification, stamped via -ldflags at
// release time.
package version

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
)

// String returns the version and commit in one printable token.
func String() string {
	return Version + " (" + GitSHA + ")"
}
