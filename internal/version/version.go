// Package version provides version information for gns3-proxy.
// The Version variable is set at build time via ldflags.
package version

// Version is the current version of gns3-proxy.
// Set at build time via: -ldflags "-X github.com/gns3/gns3-proxy/internal/version.Version=v1.0.0"
// Defaults to "dev" for development builds.
var Version = "dev"
