package reporter

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
)

// Reporter states.
const (
	StateUninitialized  = "uninitialized"
	StateAwaitingCreate = "awaiting_create"
	StatePeriodic       = "periodic"
)

const (
	eventLoadNew      = "load_new"
	eventLoadExisting = "load_existing"
	eventCreated      = "created"
	eventLost         = "lost"
)

// newMachine builds the message lifecycle:
//
//	uninitialized --load_new--> awaiting_create --created--> periodic
//	uninitialized --load_existing-----------------------> periodic
//	periodic --lost--> awaiting_create
func newMachine(log zerolog.Logger) *fsm.FSM {
	return fsm.NewFSM(
		StateUninitialized,
		fsm.Events{
			{Name: eventLoadNew, Src: []string{StateUninitialized}, Dst: StateAwaitingCreate},
			{Name: eventLoadExisting, Src: []string{StateUninitialized}, Dst: StatePeriodic},
			{Name: eventCreated, Src: []string{StateAwaitingCreate}, Dst: StatePeriodic},
			{Name: eventLost, Src: []string{StatePeriodic}, Dst: StateAwaitingCreate},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug().
					Str("event", e.Event).
					Str("from", e.Src).
					Str("to", e.Dst).
					Msg("State changed")
			},
		},
	)
}
