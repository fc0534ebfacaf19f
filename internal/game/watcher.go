package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/woozymasta/herald/internal/config"
	"github.com/woozymasta/herald/internal/logger"
)

// Listener receives host events. Calls are made from the watcher goroutine
// and must not block for long.
type Listener interface {
	OnHostNameChanged(name string)
	OnMapStart(name string)
}

// QueryFunc performs one A2S_INFO request.
type QueryFunc func() (Snapshot, error)

// Watcher polls the game server and emits events when its hostname or map changes.
// The last good snapshot is kept behind a lock so MapName is safe from any goroutine.
type Watcher struct {
	listener Listener
	query    QueryFunc
	log      zerolog.Logger
	last     Snapshot
	interval time.Duration
	mu       sync.RWMutex
	online   bool
	seen     bool
}

// NewWatcher creates a watcher for the game server described by cfg.
func NewWatcher(cfg config.A2S, listener Listener) *Watcher {
	return NewWatcherFunc(func() (Snapshot, error) {
		return QueryServer(cfg.Host, cfg.Port, cfg)
	}, cfg.PollInterval, listener)
}

// NewWatcherFunc creates a watcher around an arbitrary query function.
func NewWatcherFunc(query QueryFunc, interval time.Duration, listener Listener) *Watcher {
	return &Watcher{
		listener: listener,
		query:    query,
		interval: interval,
		log:      logger.Component("a2s"),
	}
}

// Run polls immediately and then on every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	w.Poll()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}

// Poll performs a single query and dispatches at most one event.
// A new hostname wins over a new map because the hostname handler refreshes the map as well.
func (w *Watcher) Poll() {
	snap, err := w.query()

	w.mu.Lock()
	if err != nil {
		wasOnline := w.online
		w.online = false
		w.mu.Unlock()

		if wasOnline {
			w.log.Warn().Err(err).Msg("Game server stopped answering A2S queries")
		} else {
			w.log.Debug().Err(err).Msg("A2S query failed")
		}
		return
	}

	prev, seen := w.last, w.seen
	w.last = snap
	w.seen = true
	w.online = true
	listener := w.listener
	w.mu.Unlock()

	if listener == nil {
		return
	}

	switch {
	case !seen || prev.Name != snap.Name:
		w.log.Info().Str("hostname", snap.Name).Str("map", snap.Map).Msg("Hostname changed")
		listener.OnHostNameChanged(snap.Name)
	case prev.Map != snap.Map:
		w.log.Info().Str("map", snap.Map).Str("previous", prev.Map).Msg("Map started")
		listener.OnMapStart(snap.Map)
	default:
		w.log.Trace().Uint8("players", snap.Players).Msg("Game server unchanged")
	}
}

// SetListener replaces the event receiver. It lets the receiver be built after the watcher
// when the two depend on each other.
func (w *Watcher) SetListener(listener Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.listener = listener
}

// MapName returns the map of the last successful query.
func (w *Watcher) MapName() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.last.Map
}

// Online reports whether the last query succeeded.
func (w *Watcher) Online() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.online
}
