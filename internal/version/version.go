// Package version resolves the version string printed by --version.
package version

import (
	"runtime/debug"
)

// Commit can be set at build time with
// -ldflags "-X 'github.com/idlab-discover/snidpipe/internal/version.Commit=...'".
var Commit = ""

var readBuildInfo = debug.ReadBuildInfo

// Resolve picks, in order: the ldflags version unless it is "dev", the
// module version from build info, the VCS revision recorded by the Go
// toolchain, the ldflags commit, and finally "devel".
func Resolve(ldflags string) string {
	if ldflags != "" && ldflags != "dev" {
		return ldflags
	}
	info, ok := readBuildInfo()
	if ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
		if rev := revision(info); rev != "" {
			return rev
		}
	}
	if Commit != "" {
		return "commit-" + Commit
	}
	return "devel"
}

// revision returns the short vcs.revision, suffixed with "-dirty" when the
// tree had local modifications.
func revision(info *debug.BuildInfo) string {
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if rev == "" {
		return ""
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if dirty {
		rev += "-dirty"
	}
	return rev
}
