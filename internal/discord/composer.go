package discord

import (
	"strings"

	"github.com/woozymasta/herald/internal/models"
)

// CreateMessage builds a fresh status message with a single embed.
// Fields are always Status, Map and IP Address in that order; a Country field
// is appended only when info carries a country code.
func CreateMessage(info models.StatusMessageInfo, status models.StatusData) *WebhookMessage {
	fields := []EmbedField{
		{Name: FieldStatus, Value: StatusOnline, Inline: true},
		{Name: FieldMap, Value: status.MapName, Inline: true},
		{Name: FieldIPAddress, Value: info.IPAddress, Inline: true},
	}

	if info.CountryCode != "" {
		fields = append(fields, EmbedField{
			Name:   FieldCountry,
			Value:  countryValue(info.CountryCode),
			Inline: true,
		})
	}

	return &WebhookMessage{
		Content: "",
		Embeds: []Embed{{
			Title:       info.ServerName,
			Description: "",
			Type:        EmbedTypeRich,
			URL:         "",
			Timestamp:   status.Timestamp,
			Fields:      fields,
		}},
	}
}

// ApplyUpdate refreshes the first embed of msg in place from status and returns msg.
// Only the embed timestamp and the "Map" field change. A message without embeds is returned as is.
func ApplyUpdate(msg *WebhookMessage, status models.StatusData) *WebhookMessage {
	if msg == nil || len(msg.Embeds) == 0 {
		return msg
	}

	embed := &msg.Embeds[0]
	embed.Timestamp = status.Timestamp

	if field := embed.Field(FieldMap); field != nil {
		field.Value = status.MapName
	}

	return msg
}

// SetOnline rewrites the "Status" field of the first embed and returns msg.
func SetOnline(msg *WebhookMessage, online bool) *WebhookMessage {
	if msg == nil || len(msg.Embeds) == 0 {
		return msg
	}

	if field := msg.Embeds[0].Field(FieldStatus); field != nil {
		if online {
			field.Value = StatusOnline
		} else {
			field.Value = StatusOffline
		}
	}

	return msg
}

// countryValue renders an ISO 3166 alpha-2 code as "<flag> CC".
// Codes that are not two ASCII letters are returned without a flag.
func countryValue(code string) string {
	code = strings.ToUpper(code)
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return code
	}

	// Regional indicator symbols start at U+1F1E6 for 'A'
	flag := string([]rune{
		rune(code[0]-'A') + 0x1F1E6,
		rune(code[1]-'A') + 0x1F1E6,
	})

	return flag + " " + code
}
