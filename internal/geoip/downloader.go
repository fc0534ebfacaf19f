// Package geoip handles downloading, updating, and reading MaxMind GeoLite2 databases
// used to show the country of the public server address.
package geoip

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// EnsureDB checks if the GeoIP database exists at the specified path and if it is recent enough.
// If the file is missing or older than maxAge, it downloads a new copy from the provided URL.
// An empty URL disables downloading; an existing file is then used as is.
func EnsureDB(ctx context.Context, path, url string, maxAge time.Duration) error {
	info, err := os.Stat(path)

	switch {
	case err == nil && (url == "" || time.Since(info.ModTime()) < maxAge):
		log.Debug().Str("path", path).Msg("GeoIP database is up to date")
		return nil
	case err == nil:
		log.Info().Str("path", path).Msg("GeoIP database is outdated, updating...")
	case os.IsNotExist(err) && url != "":
		log.Info().Str("path", path).Msg("GeoIP database missing, downloading...")
	default:
		return err
	}

	return downloadFile(ctx, path, url)
}

// downloadFile downloads a file from a URL to a local path using a temporary file
// to ensure atomic writes.
func downloadFile(ctx context.Context, path string, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download GeoIP database: status %d", resp.StatusCode)
	}

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
