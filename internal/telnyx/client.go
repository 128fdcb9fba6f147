// Package telnyx is the outbound adapter for the Telnyx call-control API.
// It places calls, bridges established legs, starts audio playback, and
// hangs legs up. The adapter is stateless and safe for concurrent use; it
// never retries, and any non-2xx response surfaces as a *ProviderError.
package telnyx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/database/models"
)

const defaultBaseURL = "https://api.telnyx.com/v2"

// errorBodyLimit caps how much of a provider error response is retained for
// logging.
const errorBodyLimit = 2048

// ProviderError is a non-2xx response from the call-control API.
type ProviderError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("telnyx %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Config holds the settings for a Client.
type Config struct {
	// APIKey is the bearer token sent on every request.
	APIKey string
	// ConnectionID is the Telnyx connection/application placing outbound calls.
	ConnectionID string
	// AudioURL is the pre-hosted audio file played into bridged calls.
	AudioURL string
	// BaseURL overrides the production API endpoint; used by tests.
	BaseURL string
}

// Client talks to the Telnyx v2 call-control API.
type Client struct {
	http         *http.Client
	baseURL      string
	apiKey       string
	connectionID string
	audioURL     string
}

// NewClient creates a call-control client with a 30-second request timeout.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:         &http.Client{Timeout: 30 * time.Second},
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		connectionID: cfg.ConnectionID,
		audioURL:     cfg.AudioURL,
	}
}

// CreateOutboundCall asks Telnyx to dial `to`, presenting `from` as caller
// ID. The (session, leg) pair is encoded into client_state so every webhook
// for this leg can be correlated back.
func (c *Client) CreateOutboundCall(ctx context.Context, to, from string, sessionID uuid.UUID, leg models.Leg) error {
	body := map[string]string{
		"to":            to,
		"from":          from,
		"connection_id": c.connectionID,
		"client_state":  EncodeClientState(sessionID, leg),
	}
	if err := c.post(ctx, "create call", "/calls", body); err != nil {
		return err
	}

	slog.Info("outbound call created", "session_id", sessionID, "leg", leg, "to", to)
	return nil
}

// BridgeLegs joins two established legs into one audio path.
func (c *Client) BridgeLegs(ctx context.Context, legID, otherLegID string) error {
	body := map[string]string{"call_control_id": otherLegID}
	return c.post(ctx, "bridge", "/calls/"+legID+"/actions/bridge", body)
}

// StartPlayback begins server-side playback of the configured audio file
// into the given leg. On a bridged call the audio is heard on both legs.
func (c *Client) StartPlayback(ctx context.Context, legID string) error {
	body := map[string]string{"audio_url": c.audioURL}
	return c.post(ctx, "playback", "/calls/"+legID+"/actions/playback_start", body)
}

// HangupLeg forces the provider to terminate a leg. Telnyx answers 422 for
// a leg that already ended; callers are expected to tolerate that.
func (c *Client) HangupLeg(ctx context.Context, legID string) error {
	return c.post(ctx, "hangup", "/calls/"+legID+"/actions/hangup", nil)
}

// post sends one JSON request and maps any non-2xx response to *ProviderError.
func (c *Client) post(ctx context.Context, op, path string, body any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("telnyx %s: marshaling request: %w", op, err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("telnyx %s: building request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telnyx %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &ProviderError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	// Drain so the connection can be reused.
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	return nil
}
