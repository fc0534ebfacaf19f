package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testWebhook = "https://discord.com/api/webhooks/1234/secret-token"

func openTest(t *testing.T) *Repository {
	t.Helper()

	repo, err := New(context.Background(), filepath.Join(t.TempDir(), "herald.db"))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestMessageID_Missing(t *testing.T) {
	repo := openTest(t)

	id, err := repo.MessageID(context.Background(), testWebhook)
	if err != nil {
		t.Fatalf("MessageID() err=%v", err)
	}
	if id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}

func TestSaveMessageID_RoundTrip(t *testing.T) {
	repo := openTest(t)
	ctx := context.Background()

	if err := repo.SaveMessageID(ctx, testWebhook, "111", "srv"); err != nil {
		t.Fatalf("SaveMessageID() err=%v", err)
	}
	if err := repo.SaveMessageID(ctx, testWebhook, "222", "srv"); err != nil {
		t.Fatalf("SaveMessageID() overwrite err=%v", err)
	}

	id, err := repo.MessageID(ctx, testWebhook+"/")
	if err != nil {
		t.Fatalf("MessageID() err=%v", err)
	}
	if id != "222" {
		t.Fatalf("id=%q", id)
	}

	if other, _ := repo.MessageID(ctx, "https://discord.com/api/webhooks/9/other"); other != "" {
		t.Fatalf("other webhook must not share the message, got %q", other)
	}

	if err := repo.SaveMessageID(ctx, testWebhook, "", "srv"); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestTouchAndMessages(t *testing.T) {
	repo := openTest(t)
	ctx := context.Background()

	if err := repo.SaveMessageID(ctx, testWebhook, "111", "My Server"); err != nil {
		t.Fatalf("SaveMessageID() err=%v", err)
	}
	for i := 0; i < 3; i++ {
		if err := repo.TouchMessage(ctx, testWebhook, time.Now()); err != nil {
			t.Fatalf("TouchMessage() err=%v", err)
		}
	}

	messages, err := repo.Messages(ctx)
	if err != nil {
		t.Fatalf("Messages() err=%v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	m := messages[0]
	if m.MessageID != "111" || m.ServerName != "My Server" || m.WebhookID != "1234" || m.Updates != 3 {
		t.Fatalf("unexpected record %+v", m)
	}
	if m.WebhookKey != WebhookKey(testWebhook) {
		t.Fatalf("key=%q", m.WebhookKey)
	}
}

func TestDeleteMessage(t *testing.T) {
	repo := openTest(t)
	ctx := context.Background()

	if err := repo.SaveMessageID(ctx, testWebhook, "111", ""); err != nil {
		t.Fatalf("SaveMessageID() err=%v", err)
	}

	n, err := repo.DeleteMessage(ctx, testWebhook)
	if err != nil || n != 1 {
		t.Fatalf("DeleteMessage() n=%d err=%v", n, err)
	}

	if id, _ := repo.MessageID(ctx, testWebhook); id != "" {
		t.Fatalf("message still stored: %q", id)
	}
}

func TestReopenKeepsMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "herald.db")
	ctx := context.Background()

	repo, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if err := repo.SaveMessageID(ctx, testWebhook, "333", ""); err != nil {
		t.Fatalf("SaveMessageID() err=%v", err)
	}
	_ = repo.Close()

	repo, err = New(ctx, path)
	if err != nil {
		t.Fatalf("reopen err=%v", err)
	}
	defer func() { _ = repo.Close() }()

	if id, _ := repo.MessageID(ctx, testWebhook); id != "333" {
		t.Fatalf("id=%q after reopen", id)
	}
}

func TestWebhookKey_HidesToken(t *testing.T) {
	key := WebhookKey(testWebhook)
	if len(key) != 16 || strings.Contains(key, "secret") {
		t.Fatalf("key=%q", key)
	}
	if webhookID(testWebhook) != "1234" {
		t.Fatalf("webhook id=%q", webhookID(testWebhook))
	}
}
