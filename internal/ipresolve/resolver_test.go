package ipresolve

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/woozymasta/herald/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		body string
		want string
		ok   bool
	}{
		{"<html><head><title>Current IP Check</title></head><body>Current IP Address: 1.2.3.4</body></html>\r\n", "1.2.3.4", true},
		{"1.2.3.4\n", "1.2.3.4", true},
		{"2001:db8::1", "2001:db8::1", true},
		{"<body>Current IP Address: not-an-ip</body>", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		addr, err := Parse(tt.body)
		if tt.ok {
			if err != nil || addr.String() != tt.want {
				t.Fatalf("Parse(%q)=%v,%v want %s", tt.body, addr, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrNoAddress) {
			t.Fatalf("Parse(%q) expected ErrNoAddress, got %v", tt.body, err)
		}
	}
}

func serve(t *testing.T, status int, body string) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv.URL
}

func TestResolve(t *testing.T) {
	url := serve(t, http.StatusOK, "<body>Current IP Address: 1.2.3.4</body>")

	got, addr, err := New(url, 27015, time.Second).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() err=%v", err)
	}
	if got != "1.2.3.4:27015" || addr.String() != "1.2.3.4" {
		t.Fatalf("got %q %v", got, addr)
	}

	bare, _, _ := New(url, 0, time.Second).Resolve(context.Background())
	if bare != "1.2.3.4" {
		t.Fatalf("bare=%q", bare)
	}
}

func TestResolve_Failures(t *testing.T) {
	for name, url := range map[string]string{
		"status":  serve(t, http.StatusServiceUnavailable, "down"),
		"garbage": serve(t, http.StatusOK, "<body>Current IP Address: ???</body>"),
	} {
		got, addr, err := New(url, 27015, time.Second).Resolve(context.Background())
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if got != models.IPNotFound || addr.IsValid() {
			t.Fatalf("%s: got %q %v", name, got, addr)
		}
	}
}
