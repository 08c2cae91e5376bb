// Package version reports build metadata, set at link time.
package version

// Version is overridden by the release build via
// -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "dev"

// Get returns the current version.
func Get() string {
	return Version
}
