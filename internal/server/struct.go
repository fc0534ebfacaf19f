package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/woozymasta/herald/internal/models"
)

// Reporter is the part of the status reporter exposed over HTTP.
type Reporter interface {
	OnHostNameChanged(name string)
	OnMapStart(name string)
	Status() models.ReporterStatus
}

// Server holds the dependencies, configuration, and runtime state required
// to handle local API requests.
type Server struct {
	// reporter receives host events and provides the current status.
	reporter Reporter

	// clients tracks a token bucket per remote IP for the hard rate limit.
	clients map[string]*client

	// shutdown is closed to stop the background cleanup of rate limit clients.
	shutdown chan struct{}

	// authToken is the secret token required to access the API endpoints.
	authToken string

	// wg waits for background goroutines on shutdown.
	wg sync.WaitGroup

	// mu guards clients.
	mu sync.Mutex

	// maxBody specifies the maximum allowed size (in bytes) for incoming HTTP request bodies.
	maxBody int64

	// hardLimitCount is the maximum number of requests allowed per IP address
	// within the hardLimitWin duration.
	hardLimitCount int

	// hardLimitWin is the time window duration for the hard rate limiter.
	hardLimitWin time.Duration

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}

// client is the rate limit state of one remote IP.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}
