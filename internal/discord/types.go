// Package discord builds the server status webhook message and sends it to Discord.
package discord

import "time"

// Embed field names. Discord renders fields in slice order.
const (
	FieldStatus    = "Status"
	FieldMap       = "Map"
	FieldIPAddress = "IP Address"
	FieldCountry   = "Country"
)

// Status field values.
const (
	StatusOnline  = "Online \U0001F7E2"
	StatusOffline = "Offline \U0001F534"
)

// EmbedTypeRich is the only embed type webhooks are allowed to send.
const EmbedTypeRich = "rich"

// WebhookMessage is the JSON body of an execute or edit webhook request.
type WebhookMessage struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds"`
}

// Embed is a single rich embed block of the message.
type Embed struct {
	Timestamp   time.Time    `json:"timestamp"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        string       `json:"type"`
	URL         string       `json:"url"`
	Fields      []EmbedField `json:"fields"`
}

// EmbedField is a name/value pair rendered inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// webhookResponse is the part of the created message object we need.
type webhookResponse struct {
	ID string `json:"id"`
}

// Field returns a pointer to the first field with exactly the given name, or nil.
func (e *Embed) Field(name string) *EmbedField {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}

	return nil
}

// Clone returns a deep copy of the message, safe to hand out while the original keeps being mutated.
func (m *WebhookMessage) Clone() *WebhookMessage {
	if m == nil {
		return nil
	}

	out := &WebhookMessage{Content: m.Content}
	if m.Embeds != nil {
		out.Embeds = make([]Embed, len(m.Embeds))
		for i, e := range m.Embeds {
			out.Embeds[i] = e
			if e.Fields != nil {
				out.Embeds[i].Fields = append([]EmbedField(nil), e.Fields...)
			}
		}
	}

	return out
}
