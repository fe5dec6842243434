// SPDX-License-Identifier: MIT
//
// Package build carries build metadata (name, version, commit, timestamp)
// embedded into the binary at compile time via -ldflags. During development
// builds without ldflags, sensible defaults are used instead.
package build

// Populated by -ldflags at compile time, e.g.:
//
//	-X pitchtone/pkg/build.buildVersion=v0.3.0
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

type Flags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

var flags = Flags{
	Name:        "pitchtone",
	Description: "Real-time pitch tracker and reference tone synthesizer",
	Time:        "unknown",
	Commit:      "unknown",
	Version:     "dev",
}

// Initialize copies ldflags values into the exported flags, keeping the
// development defaults for any flag that was not set.
func Initialize() {
	if buildName != "" {
		flags.Name = buildName
	}
	if buildTime != "" {
		flags.Time = buildTime
	}
	if buildCommit != "" {
		flags.Commit = buildCommit
	}
	if buildVersion != "" {
		flags.Version = buildVersion
	}
}

// GetBuildFlags returns the current build metadata.
func GetBuildFlags() Flags {
	return flags
}
