package discord

import (
	"reflect"
	"testing"
	"time"

	"github.com/woozymasta/herald/internal/models"
)

func testInfo() models.StatusMessageInfo {
	return models.StatusMessageInfo{
		WebhookURI:      "https://discord.com/api/webhooks/1/abc",
		ServerName:      "Imperfect Gamers #1",
		IPAddress:       "1.2.3.4:27015",
		MessageInterval: 5 * time.Minute,
	}
}

func TestCreateMessage_Fields(t *testing.T) {
	ts := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	msg := CreateMessage(testInfo(), models.StatusData{MapName: "de_dust2", IPAddress: "1.2.3.4:27015", Timestamp: ts})

	if len(msg.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(msg.Embeds))
	}

	embed := msg.Embeds[0]
	if embed.Title != "Imperfect Gamers #1" {
		t.Fatalf("title=%q", embed.Title)
	}
	if embed.Type != EmbedTypeRich {
		t.Fatalf("type=%q", embed.Type)
	}
	if !embed.Timestamp.Equal(ts) {
		t.Fatalf("timestamp=%v want %v", embed.Timestamp, ts)
	}

	want := []EmbedField{
		{Name: "Status", Value: "Online 🟢", Inline: true},
		{Name: "Map", Value: "de_dust2", Inline: true},
		{Name: "IP Address", Value: "1.2.3.4:27015", Inline: true},
	}
	if !reflect.DeepEqual(embed.Fields, want) {
		t.Fatalf("fields=%+v\nwant %+v", embed.Fields, want)
	}
}

func TestCreateMessage_MapMirrorsStatus(t *testing.T) {
	for _, name := range []string{"de_inferno", "cs_office", "workshop/123/aim_map", "x"} {
		msg := CreateMessage(testInfo(), models.StatusData{MapName: name})
		if got := msg.Embeds[0].Field(FieldMap).Value; got != name {
			t.Fatalf("map field=%q want %q", got, name)
		}
	}
}

func TestCreateMessage_EmptyValues(t *testing.T) {
	msg := CreateMessage(models.StatusMessageInfo{}, models.StatusData{})

	fields := msg.Embeds[0].Fields
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if fields[1].Value != "" || fields[2].Value != "" {
		t.Fatalf("expected empty map and ip, got %+v", fields)
	}
}

func TestCreateMessage_Country(t *testing.T) {
	info := testInfo()
	info.CountryCode = "de"

	fields := CreateMessage(info, models.StatusData{MapName: "de_dust2"}).Embeds[0].Fields
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(fields))
	}
	if fields[2].Name != FieldIPAddress || fields[3].Name != FieldCountry {
		t.Fatalf("unexpected order: %+v", fields)
	}
	if fields[3].Value != "🇩🇪 DE" {
		t.Fatalf("country=%q", fields[3].Value)
	}
}

func TestApplyUpdate(t *testing.T) {
	msg := CreateMessage(testInfo(), models.StatusData{MapName: "de_dust2"})

	ts := time.Date(2026, 10, 19, 12, 5, 0, 0, time.UTC)
	got := ApplyUpdate(msg, models.StatusData{MapName: "de_inferno", IPAddress: "5.6.7.8:27015", Timestamp: ts})

	if got != msg {
		t.Fatalf("expected message to be updated in place")
	}

	embed := msg.Embeds[0]
	if v := embed.Field(FieldMap).Value; v != "de_inferno" {
		t.Fatalf("map=%q", v)
	}
	if !embed.Timestamp.Equal(ts) {
		t.Fatalf("timestamp=%v", embed.Timestamp)
	}
	if v := embed.Field(FieldIPAddress).Value; v != "1.2.3.4:27015" {
		t.Fatalf("ip address must keep the creation value, got %q", v)
	}
	if v := embed.Field(FieldStatus).Value; v != StatusOnline {
		t.Fatalf("status=%q", v)
	}
}

func TestApplyUpdate_Idempotent(t *testing.T) {
	status := models.StatusData{MapName: "de_nuke", Timestamp: time.Unix(1700000000, 0).UTC()}

	once := ApplyUpdate(CreateMessage(testInfo(), models.StatusData{}), status)
	twice := ApplyUpdate(ApplyUpdate(CreateMessage(testInfo(), models.StatusData{}), status), status)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("apply twice differs:\n%+v\n%+v", once, twice)
	}
}

func TestApplyUpdate_NoEmbeds(t *testing.T) {
	msg := &WebhookMessage{Content: "hello"}
	got := ApplyUpdate(msg, models.StatusData{MapName: "de_dust2", Timestamp: time.Now()})

	if got != msg || got.Content != "hello" || len(got.Embeds) != 0 {
		t.Fatalf("message without embeds must be returned unchanged: %+v", got)
	}

	if ApplyUpdate(nil, models.StatusData{}) != nil {
		t.Fatalf("nil message must stay nil")
	}
}

func TestApplyUpdate_MapFieldCaseSensitive(t *testing.T) {
	msg := &WebhookMessage{Embeds: []Embed{{Fields: []EmbedField{{Name: "map", Value: "old"}}}}}
	ApplyUpdate(msg, models.StatusData{MapName: "new"})

	if msg.Embeds[0].Fields[0].Value != "old" {
		t.Fatalf("field named %q must not match", "map")
	}
}

func TestSetOnline(t *testing.T) {
	msg := CreateMessage(testInfo(), models.StatusData{})

	SetOnline(msg, false)
	if v := msg.Embeds[0].Field(FieldStatus).Value; v != StatusOffline {
		t.Fatalf("status=%q", v)
	}

	SetOnline(msg, true)
	if v := msg.Embeds[0].Field(FieldStatus).Value; v != StatusOnline {
		t.Fatalf("status=%q", v)
	}
}

func TestClone(t *testing.T) {
	msg := CreateMessage(testInfo(), models.StatusData{MapName: "de_dust2"})
	cp := msg.Clone()

	ApplyUpdate(msg, models.StatusData{MapName: "de_mirage"})
	if v := cp.Embeds[0].Field(FieldMap).Value; v != "de_dust2" {
		t.Fatalf("clone shares fields with original: %q", v)
	}
}
