// Package maintenance provides one-shot tasks over the stored status messages.
package maintenance

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/herald/internal/config"
	"github.com/woozymasta/herald/internal/game"
	"github.com/woozymasta/herald/internal/models"
)

// Store is the part of the repository used by maintenance tasks.
type Store interface {
	DeleteMessage(ctx context.Context, webhookURI string) (int64, error)
	Messages(ctx context.Context) ([]models.StoredMessage, error)
}

// report is printed by the show task.
type report struct {
	Server   *game.Snapshot         `json:"server,omitempty"`
	Error    string                 `json:"server_error,omitempty"`
	Messages []models.StoredMessage `json:"messages"`
}

// Run checks if any maintenance flags are set and executes the corresponding tasks.
// Returns true if a maintenance task was executed (indicating the program should exit).
func Run(ctx context.Context, cfg *config.Config, store Store, out io.Writer) bool {
	switch {
	case cfg.Storage.ResetMessage:
		resetMessage(ctx, cfg, store)
		return true
	case cfg.Storage.Show:
		show(ctx, cfg, store, out)
		return true
	default:
		return false
	}
}

// resetMessage forgets the message of the configured webhook so the next start posts a new one.
func resetMessage(ctx context.Context, cfg *config.Config, store Store) {
	webhook := config.Redact(cfg.Webhook.URI)
	log.Info().Str("webhook", webhook).Msg("Forgetting stored status message...")

	count, err := store.DeleteMessage(ctx, cfg.Webhook.URI)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reset status message")
		return
	}

	if count == 0 {
		log.Info().Str("webhook", webhook).Msg("No status message stored for webhook")
		return
	}

	log.Info().Int64("deleted", count).Msg("Reset finished, a new message will be posted on next start")
}

// show prints the stored messages and a live A2S query of the configured game server as JSON.
func show(ctx context.Context, cfg *config.Config, store Store, out io.Writer) {
	messages, err := store.Messages(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch status messages")
		return
	}

	rep := report{Messages: messages}
	if rep.Messages == nil {
		rep.Messages = []models.StoredMessage{}
	}

	if cfg.A2S.Host != "" {
		snap, err := game.QueryServer(cfg.A2S.Host, cfg.A2S.Port, cfg.A2S)
		if err != nil {
			rep.Error = err.Error()
		} else {
			rep.Server = &snap
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		log.Error().Err(err).Msg("Failed to print report")
	}
}
