package imagemeta

import (
	"runtime"
	"runtime/debug"
)

// Version is the semantic version of the imagemeta library.
const Version = "0.1.0"

// Toolkit is the x:xmptk value written into XMP packets that name no
// toolkit of their own.
const Toolkit = "imagemeta " + Version

// VersionInfo contains detailed version information.
type VersionInfo struct {
	// Version is the semantic version (e.g., "0.1.0")
	Version string
	// GitCommit is the git commit hash (set via ldflags at build time)
	GitCommit string
	// BuildTime is the build timestamp (set via ldflags at build time)
	BuildTime string
	// GoVersion is the Go version used to build
	GoVersion string
	// Dependencies maps module paths linked into the binary to their versions
	Dependencies map[string]string
}

// GetVersionInfo returns detailed version information.
//
// GitCommit and BuildTime are populated at build time via -ldflags:
//
//	go build -ldflags="-X github.com/simonhull/imagemeta.gitCommit=$(git rev-parse HEAD) \
//	  -X github.com/simonhull/imagemeta.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:   Version,
		GitCommit: gitCommit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.Dependencies = make(map[string]string, len(bi.Deps))
		for _, dep := range bi.Deps {
			info.Dependencies[dep.Path] = dep.Version
		}
	}
	return info
}

// Variables populated at build time via -ldflags.
var (
	gitCommit = "unknown"
	buildTime = "unknown"
)
