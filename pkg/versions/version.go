// Package versions exposes build-time version information for mvnoci.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

const unknown = "unknown"

// Set at build time via -ldflags.
var (
	// Version is the mvnoci release version.
	Version = "dev"
	// Commit is the git commit hash the binary was built from.
	Commit = unknown
	// BuildDate is when the binary was built.
	BuildDate = unknown
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the version information, filling in VCS details from the
// embedded build info when the ldflags values were not set.
func Get() Info {
	return build(Version, Commit, BuildDate)
}

func build(version, commit, date string) Info {
	if version == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					if commit == unknown {
						commit = s.Value
					}
				case "vcs.time":
					if date == unknown {
						date = s.Value
					}
				}
			}
		}
		if commit != unknown {
			version = fmt.Sprintf("build-%.8s", commit)
		}
	}

	if date != unknown {
		if t, err := time.Parse(time.RFC3339, date); err == nil {
			date = t.Format("2006-01-02 15:04:05 MST")
		}
	}

	return Info{
		Version:   version,
		Commit:    commit,
		BuildDate: date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
