// Package ipresolve looks up the public IP address of the host through a checkip style service.
package ipresolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/woozymasta/herald/internal/models"
	"github.com/woozymasta/herald/internal/vars"
)

// DefaultURL answers with "<body>Current IP Address: 1.2.3.4</body>".
const DefaultURL = "http://checkip.dyndns.org"

// ErrNoAddress is returned when the lookup answer holds no parsable IP address.
var ErrNoAddress = errors.New("no ip address in lookup response")

// Resolver fetches the public address of the host.
type Resolver struct {
	http *http.Client
	url  string
	port int
}

// New creates a resolver that appends port to the address; a zero port leaves the bare IP.
func New(url string, port int, timeout time.Duration) *Resolver {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Resolver{
		http: &http.Client{Timeout: timeout},
		url:  url,
		port: port,
	}
}

// Resolve returns "<ip>:<port>" and the bare IP.
// On any failure it returns models.IPNotFound together with the error so callers can keep a printable value.
func (r *Resolver) Resolve(ctx context.Context) (string, netip.Addr, error) {
	addr, err := r.lookup(ctx)
	if err != nil {
		return models.IPNotFound, netip.Addr{}, err
	}

	if r.port == 0 {
		return addr.String(), addr, nil
	}

	return netip.AddrPortFrom(addr, uint16(r.port)).String(), addr, nil //nolint:gosec // port validated by config
}

func (r *Resolver) lookup(ctx context.Context) (netip.Addr, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return netip.Addr{}, err
	}
	req.Header.Set("User-Agent", vars.UserAgent())

	resp, err := r.http.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("ip lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("ip lookup: %w", err)
	}

	return Parse(string(body))
}

// Parse extracts the address from a checkip answer. Plain text answers
// ("1.2.3.4\n", as ipify or icanhazip return) are accepted too.
func Parse(body string) (netip.Addr, error) {
	text := strings.TrimSpace(body)
	if idx := strings.Index(text, ":"); idx >= 0 && strings.Contains(text, "<") {
		text = text[idx+1:]
		if end := strings.Index(text, "<"); end >= 0 {
			text = text[:end]
		}
		text = strings.TrimSpace(text)
	}

	addr, err := netip.ParseAddr(text)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrNoAddress, text)
	}

	return addr.Unmap(), nil
}
