// Package version provides the gateway's version information.
package version

// version is set at build time via ldflags.
var version = "dev"

// GetVersion returns the version of the toolgate binary.
func GetVersion() string {
	return version
}
