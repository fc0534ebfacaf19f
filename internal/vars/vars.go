// Package vars holds build metadata set with -ldflags "-X".
//
//	go build -ldflags "-X github.com/woozymasta/herald/internal/vars.Version=v1.0.0 \
//	  -X github.com/woozymasta/herald/internal/vars.Commit=$(git rev-parse HEAD) \
//	  -X github.com/woozymasta/herald/internal/vars._buildTime=$(date -u +%FT%TZ)"
package vars

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	// Name of the application, also used in the User-Agent of outbound requests
	Name = "Herald"

	// URL of the repository, Discord expects it in the User-Agent of webhook clients
	URL = "https://github.com/woozymasta/herald"
)

var (
	// Version is the git tag of the build
	Version = "dev"

	// Commit is the full git SHA of the build
	Commit = "unknown"

	// BuildTime is the build start, RFC3339 UTC
	BuildTime time.Time

	_buildTime string
)

// BuildInfo is the JSON shape of GET /api/version.
type BuildInfo struct {
	BuildTime time.Time `json:"build_time,omitzero"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Commit    string    `json:"commit"`
	URL       string    `json:"url"`
}

func init() {
	if t, err := time.Parse(time.RFC3339, _buildTime); err == nil {
		BuildTime = t.UTC()
	}
}

// Info returns the build metadata.
func Info() BuildInfo {
	return BuildInfo{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		URL:       URL,
	}
}

// Print writes the build metadata for --version.
func Print() {
	fprint(os.Stdout)
}

func fprint(w io.Writer) {
	built := "unknown"
	if !BuildTime.IsZero() {
		built = BuildTime.Format(time.RFC3339)
	}

	_, _ = fmt.Fprintf(w, "%s %s\ncommit: %s\nbuilt:  %s\nurl:    %s\n", Name, Version, Commit, built, URL)
}

// UserAgent returns the User-Agent of outbound requests (Discord, IP lookup).
func UserAgent() string {
	return fmt.Sprintf("%s (%s, %s)", Name, URL, Version)
}
