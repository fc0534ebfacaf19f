package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/herald/internal/vars"
)

// DefaultTimeout bounds a single webhook request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody limits how much of an error response is kept for logging.
const maxErrorBody = 512

var (
	// ErrTransport wraps network, DNS and timeout failures.
	ErrTransport = errors.New("webhook transport failed")

	// ErrDecode is returned when the create response is not JSON or lacks the message id.
	ErrDecode = errors.New("webhook response decode failed")
)

// StatusError is returned when Discord answers with a non-2xx status code.
type StatusError struct {
	Method string
	Body   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook %s returned status %d: %s", e.Method, e.Code, e.Body)
}

// Client executes and edits webhook messages. It never retries.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient creates a webhook client with the given per request timeout.
// A zero timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: vars.UserAgent(),
	}
}

// Create posts a new message to the webhook and returns the id of the created message.
// The request uses wait=true so Discord answers with the message object.
func (c *Client) Create(ctx context.Context, webhookURI string, msg *WebhookMessage) (string, error) {
	target, err := withQuery(webhookURI, "wait", "true")
	if err != nil {
		return "", err
	}

	body, err := c.do(ctx, http.MethodPost, target, "application/json", msg)
	if err != nil {
		return "", err
	}

	var resp webhookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: empty message id", ErrDecode)
	}

	return resp.ID, nil
}

// Update edits a previously created message in place. The response body is ignored.
func (c *Client) Update(ctx context.Context, webhookURI, messageID string, msg *WebhookMessage) error {
	if messageID == "" {
		return errors.New("webhook update requires a message id")
	}

	u, err := url.Parse(webhookURI)
	if err != nil {
		return fmt.Errorf("parse webhook uri: %w", err)
	}

	target := u.JoinPath("messages", messageID).String()
	_, err = c.do(ctx, http.MethodPatch, target, "application/json-patch+json", msg)

	return err
}

// do serializes msg, sends it and returns the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, target, accept string, msg *WebhookMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	log.Trace().
		Str("method", method).
		Int("status", resp.StatusCode).
		Int("bytes", len(payload)).
		Dur("duration", time.Since(start)).
		Msg("Webhook request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{Method: method, Code: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// withQuery sets a query parameter on a webhook URI, keeping the ones already present (e.g. thread_id).
func withQuery(rawURI, key, value string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("parse webhook uri: %w", err)
	}

	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
