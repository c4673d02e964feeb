// Package version provides the FlashKV version string.
// The version is set at build time via -ldflags.
package version

import "fmt"

// Version is the current FlashKV version.
// Override at build time: go build -ldflags "-X github.com/flashdb/flashkv/internal/version.Version=0.3.0"
var Version = "0.3.0"

// BuildTime is the build timestamp.
// Override at build time: go build -ldflags "-X github.com/flashdb/flashkv/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var BuildTime = "unknown"

// String returns the version line printed by -version.
func String() string {
	return fmt.Sprintf("flashkv %s (built %s)", Version, BuildTime)
}
