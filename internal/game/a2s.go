// Package game observes the local game server through the Source Engine Query (A2S) protocol
// and turns hostname and map changes into host events.
package game

import (
	"github.com/woozymasta/a2s/pkg/a2s"
	"github.com/woozymasta/herald/internal/config"
)

// Snapshot is the part of A2S_INFO the status message cares about.
type Snapshot struct {
	Name       string `json:"name"`
	Map        string `json:"map"`
	Players    byte   `json:"players"`
	MaxPlayers byte   `json:"max_players"`
}

// QueryServer connects to a game server via UDP and requests A2S_INFO.
// It returns server details (such as name, map, players) or an error if the server is unreachable.
func QueryServer(host string, port int, options config.A2S) (Snapshot, error) {
	client, err := a2s.New(host, port)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() { _ = client.Close() }()

	client.BufferSize = options.BufferSize
	client.Timeout = options.Timeout

	info, err := client.GetInfo()
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Name:       info.Name,
		Map:        info.Map,
		Players:    info.Players,
		MaxPlayers: info.MaxPlayers,
	}, nil
}
