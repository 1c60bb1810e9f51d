// Package version holds build information injected at link time.
package version

// Version is set with -ldflags "-X github.com/aristath/ledgersync/internal/version.Version=..."
var Version = "dev"
