// Package version exposes build metadata for the daemon's /version
// endpoint and startup log line.
//
// Version and BuildTime are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/speakerkit/version.Version=1.0.0"
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Set at build time with -ldflags; VCS build info fills the gaps.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the version payload served by the daemon.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get returns the build's version information, preferring ldflags values
// and falling back to embedded VCS build info.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = setting.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			}
		case "vcs.modified":
			info.Dirty = setting.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					info.BuildTime = t.Format(time.RFC3339)
				}
			}
		}
	}
	return info
}

// String renders a one-line version, e.g. "dev-1a2b3c4" or
// "1.0.0-1a2b3c4-dirty".
func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		s = fmt.Sprintf("%s-%s", s, i.GitCommit)
	}
	if i.Dirty {
		s += "-dirty"
	}
	return s
}
