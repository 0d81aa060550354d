// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

import "strings"

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/hotboat/whatsapp-bot/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/hotboat/whatsapp-bot/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/hotboat/whatsapp-bot/internal/buildinfo.BuildDate=...
var BuildDate = ""

// String renders the metadata as "version (commit, date)", "dev" when
// nothing was injected.
func String() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	var extra []string
	if Commit != "" {
		c := Commit
		if len(c) > 7 {
			c = c[:7]
		}
		extra = append(extra, c)
	}
	if BuildDate != "" {
		extra = append(extra, BuildDate)
	}
	if len(extra) == 0 {
		return v
	}
	return v + " (" + strings.Join(extra, ", ") + ")"
}
