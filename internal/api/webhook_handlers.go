package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prankline/prankline/internal/prank"
	"github.com/prankline/prankline/internal/telnyx"
)

// telnyxEnvelope is the provider's native webhook body. Only the fields the
// ingress needs are modeled; everything else is ignored.
type telnyxEnvelope struct {
	Data struct {
		EventType string `json:"event_type"`
		Payload   struct {
			CallControlID string `json:"call_control_id"`
			ClientState   string `json:"client_state"`
		} `json:"payload"`
	} `json:"data"`
}

// eventTypeMap translates provider event names to the internal enumeration.
// Events not listed here (call.initiated, playback.ended, ...) are
// acknowledged and dropped.
var eventTypeMap = map[string]prank.EventType{
	"call.answered": prank.EventLegAnswered,
	"call.hangup":   prank.EventLegHangup,
	"call.failed":   prank.EventLegFailed,
}

// handleTelnyxWebhook validates, normalizes, and dispatches provider call
// notifications. It always answers 200: Telnyx retries on non-2xx, and
// nothing here is fixed by a retry. Undeliverable events are logged and
// acknowledged as ignored.
func (s *Server) handleTelnyxWebhook(w http.ResponseWriter, r *http.Request) {
	var env telnyxEnvelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&env); err != nil {
		slog.Warn("webhook: malformed payload", "error", err)
		writeWebhookAck(w, false)
		return
	}

	eventType, known := eventTypeMap[env.Data.EventType]
	if !known {
		slog.Debug("webhook: unhandled event type", "event_type", env.Data.EventType)
		writeWebhookAck(w, false)
		return
	}

	sessionID, leg, err := telnyx.DecodeClientState(env.Data.Payload.ClientState)
	if err != nil {
		// Calls placed outside this service (or with mangled state) end up
		// here; they are not ours to orchestrate.
		slog.Warn("webhook: undecodable client_state", "event_type", env.Data.EventType, "error", err)
		writeWebhookAck(w, false)
		return
	}

	ev := prank.Event{
		SessionID: sessionID,
		Type:      eventType,
		Leg:       leg,
		LegID:     env.Data.Payload.CallControlID,
	}

	if err := s.orch.HandleEvent(r.Context(), ev); err != nil {
		switch {
		case errors.Is(err, prank.ErrSessionNotFound),
			errors.Is(err, prank.ErrUnexpectedEvent),
			errors.Is(err, prank.ErrInvalidTransition),
			errors.Is(err, prank.ErrInvalidLeg):
			slog.Warn("webhook: event not applicable",
				"session_id", sessionID, "event", eventType, "leg", leg, "error", err)
		default:
			// Provider or database failure mid-handler. Still acknowledged:
			// replaying the webhook would find the session mid-flight at
			// best and double-dial at worst.
			slog.Error("webhook: event handling failed",
				"session_id", sessionID, "event", eventType, "leg", leg, "error", err)
		}
		writeWebhookAck(w, false)
		return
	}

	writeWebhookAck(w, true)
}

// writeWebhookAck answers the provider with the fixed 200 contract:
// {"status":"ok"} when the event was applied, {"status":"ignored"} otherwise.
func writeWebhookAck(w http.ResponseWriter, applied bool) {
	status := "ok"
	if !applied {
		status = "ignored"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": status}); err != nil {
		slog.Error("failed to encode webhook ack", "error", err)
	}
}
