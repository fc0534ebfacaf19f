package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type event struct {
	kind  string
	value string
}

type recorder struct {
	events []event
	mu     sync.Mutex
}

func (r *recorder) OnHostNameChanged(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{"hostname", name})
}

func (r *recorder) OnMapStart(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{"map", name})
}

func (r *recorder) list() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

// script returns a query function that replays the given results in order, repeating the last one.
func script(results ...any) QueryFunc {
	var (
		mu sync.Mutex
		i  int
	)

	return func() (Snapshot, error) {
		mu.Lock()
		defer mu.Unlock()

		r := results[i]
		if i < len(results)-1 {
			i++
		}
		if err, ok := r.(error); ok {
			return Snapshot{}, err
		}
		return r.(Snapshot), nil
	}
}

func TestPoll_Events(t *testing.T) {
	rec := &recorder{}
	w := NewWatcherFunc(script(
		Snapshot{Name: "srv", Map: "de_dust2"},
		Snapshot{Name: "srv", Map: "de_dust2"},
		Snapshot{Name: "srv", Map: "de_inferno"},
		errors.New("timeout"),
		Snapshot{Name: "srv renamed", Map: "de_nuke"},
	), time.Second, rec)

	for i := 0; i < 5; i++ {
		w.Poll()
	}

	want := []event{
		{"hostname", "srv"},
		{"map", "de_inferno"},
		{"hostname", "srv renamed"},
	}
	got := rec.list()
	if len(got) != len(want) {
		t.Fatalf("events=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d=%v want %v", i, got[i], want[i])
		}
	}

	if w.MapName() != "de_nuke" || !w.Online() {
		t.Fatalf("map=%q online=%v", w.MapName(), w.Online())
	}
}

func TestPoll_FailureKeepsLastMap(t *testing.T) {
	w := NewWatcherFunc(script(
		Snapshot{Name: "srv", Map: "de_dust2"},
		errors.New("down"),
	), time.Second, nil)

	w.Poll()
	w.Poll()

	if w.Online() {
		t.Fatalf("expected offline after failed query")
	}
	if w.MapName() != "de_dust2" {
		t.Fatalf("map=%q", w.MapName())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	rec := &recorder{}
	w := NewWatcherFunc(script(Snapshot{Name: "srv", Map: "de_dust2"}), 5*time.Millisecond, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	if got := rec.list(); len(got) != 1 || got[0].kind != "hostname" {
		t.Fatalf("events=%v", got)
	}
}
