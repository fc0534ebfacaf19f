// Package models defines the state snapshots shared between the reporter, the host watchers and the local API.
package models

import "time"

// IPNotFound is the value shown in place of the address when the public IP lookup fails.
const IPNotFound = "IP address not found"

// StatusData is the live snapshot of the observed game server.
// The reporter owns the only mutable instance; everybody else gets copies.
type StatusData struct {
	Timestamp    time.Time `json:"timestamp"`
	MapName      string    `json:"map_name"`
	ServerName   string    `json:"server_name"`
	IPAddress    string    `json:"ip_address"`
	ServerOnline bool      `json:"server_online"`
}

// StatusMessageInfo describes the Discord status message of this server.
// An empty MessageID means the message was not created yet.
type StatusMessageInfo struct {
	WebhookURI      string        `json:"-"`
	MessageID       string        `json:"message_id"`
	ServerName      string        `json:"server_name"`
	IPAddress       string        `json:"ip_address"`
	CountryCode     string        `json:"country_code,omitempty"`
	MessageInterval time.Duration `json:"message_interval"`
}

// HasMessage reports whether a webhook message already exists for the server.
func (i StatusMessageInfo) HasMessage() bool {
	return i.MessageID != ""
}

// ReporterStatus is the externally visible state of the reporter.
type ReporterStatus struct {
	LastSuccess time.Time  `json:"last_success"`
	State       string     `json:"state"`
	MessageID   string     `json:"message_id,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Status      StatusData `json:"status"`
	Ticks       uint64     `json:"ticks"`
	Failures    uint64     `json:"failures"`
}

// StoredMessage is a persisted status message record.
type StoredMessage struct {
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	WebhookKey string    `json:"webhook_key"`
	WebhookID  string    `json:"webhook_id"`
	MessageID  string    `json:"message_id"`
	ServerName string    `json:"server_name"`
	Updates    int64     `json:"updates"`
}

// Host event types accepted by the local API.
const (
	EventHostName = "hostname"
	EventMap      = "map"
)

// EventRequest is the payload a game side plugin posts to report a host event.
type EventRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
