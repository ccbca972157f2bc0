// Package version reports the kiln build's version, commit and build time.
package version

import (
	"runtime/debug"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/yaklabco/kiln/pkg/ui"
)

// Set at release time with
//
//	-ldflags "-X github.com/yaklabco/kiln/cmd/kiln/version.Version=v1.2.3"
//
// and likewise for Commit and BuildDate (RFC 3339).
var (
	Version   = "dev" //nolint:gochecknoglobals // Populated by ldflags.
	Commit    = ""    //nolint:gochecknoglobals // Populated by ldflags.
	BuildDate = ""    //nolint:gochecknoglobals // Populated by ldflags.
)

// Info is the resolved build identity.
type Info struct {
	Version string
	Commit  string
	Built   time.Time
}

// Resolve prefers ldflags values and falls back to the Go build info: the
// module version for `go install module@version` builds, otherwise the VCS
// revision (suffixed "-dirty" for modified trees).
func Resolve() Info {
	info := Info{
		Version: strings.TrimSpace(Version),
		Commit:  strings.TrimSpace(Commit),
	}
	if t, ok := parseTime(BuildDate); ok {
		info.Built = t
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		if info.Version == "" {
			info.Version = "dev"
		}
		return info
	}

	settings := make(map[string]string, len(bi.Settings))
	for _, s := range bi.Settings {
		settings[s.Key] = s.Value
	}

	if info.Version == "" || info.Version == "dev" {
		switch mv := strings.TrimSpace(bi.Main.Version); {
		case mv != "" && mv != "(devel)":
			info.Version = mv
		case settings["vcs.revision"] != "":
			info.Version = settings["vcs.revision"]
			if settings["vcs.modified"] == "true" {
				info.Version += "-dirty"
			}
		default:
			info.Version = "dev"
		}
	}
	if info.Commit == "" {
		info.Commit = settings["vcs.revision"]
	}
	if info.Built.IsZero() {
		if t, ok := parseTime(settings["vcs.time"]); ok {
			info.Built = t
		}
	}
	return info
}

func parseTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// String joins the non-empty parts with "-".
func (i Info) String() string {
	return strings.Join(i.parts(), "-")
}

// Colorized renders the version line in the CLI help palette.
func (i Info) Colorized() string {
	scheme := ui.GetFangScheme()
	styles := []lipgloss.Style{
		lipgloss.NewStyle().Foreground(scheme.QuotedString),
		lipgloss.NewStyle().Foreground(scheme.Program),
		lipgloss.NewStyle().Foreground(scheme.Flag),
	}
	parts := i.parts()
	for n := range parts {
		parts[n] = styles[n].Render(parts[n])
	}
	return strings.Join(parts, lipgloss.NewStyle().Foreground(scheme.Base).Render("-"))
}

func (i Info) parts() []string {
	parts := []string{i.Version}
	if i.Commit != "" && i.Commit != i.Version {
		parts = append(parts, i.Commit)
	}
	if !i.Built.IsZero() {
		parts = append(parts, i.Built.Local().Format(time.RFC3339))
	}
	return parts
}
