// Package version reports what build of osiris is running.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/osiris"

// buildVersion is set via -ldflags "-X pkt.systems/osiris/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Module    string
	Version   string
	Revision  string
	Modified  bool
	GoVersion string
}

// Get reads the build info embedded by the Go toolchain.
func Get() Info {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info, buildVersion)
}

// Current returns the version string without any dirty marker.
func Current() string {
	return Get().Version
}

// Module returns the main module path.
func Module() string {
	return Get().Module
}

// String renders "module version (revision, go)" for the version command.
func (i Info) String() string {
	details := []string{}
	if i.Revision != "" {
		rev := i.Revision
		if i.Modified {
			rev += "+dirty"
		}
		details = append(details, rev)
	}
	if i.GoVersion != "" {
		details = append(details, i.GoVersion)
	}
	if len(details) == 0 {
		return i.Module + " " + i.Version
	}
	return fmt.Sprintf("%s %s (%s)", i.Module, i.Version, strings.Join(details, ", "))
}

// SSHVersion is the software part of the SSH identification string, which
// must not contain spaces.
func (i Info) SSHVersion() string {
	return "osiris_" + strings.ReplaceAll(i.Version, " ", "_")
}

func fromBuildInfo(info *debug.BuildInfo, override string) Info {
	out := Info{
		Module:    defaultModule,
		Version:   "v0.0.0-unknown",
		GoVersion: runtime.Version(),
	}
	if info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			out.Module = path
		}
		if info.GoVersion != "" {
			out.GoVersion = info.GoVersion
		}
		var vcsTime string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				out.Revision = shortRevision(setting.Value)
			case "vcs.time":
				vcsTime = setting.Value
			case "vcs.modified":
				out.Modified = setting.Value == "true"
			}
		}
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			out.Version = strings.TrimSuffix(v, "+dirty")
		} else if pseudo := pseudoVersion(vcsTime, out.Revision); pseudo != "" {
			out.Version = pseudo
		}
	}
	if v := strings.TrimSpace(override); v != "" {
		out.Version = strings.TrimSuffix(v, "+dirty")
	}
	return out
}

func shortRevision(rev string) string {
	rev = strings.TrimSpace(rev)
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// pseudoVersion builds a Go-style pseudo version from VCS metadata.
func pseudoVersion(vcsTime, revision string) string {
	if revision == "" || vcsTime == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, vcsTime)
	if err != nil {
		return ""
	}
	return "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + revision
}
