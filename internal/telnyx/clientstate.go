package telnyx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/database/models"
)

// clientState is the correlation blob carried on every outbound call and
// echoed back by Telnyx on each webhook for that leg. It is the only way the
// webhook ingress recovers which session and leg an event belongs to.
type clientState struct {
	SessionID string `json:"session_id"`
	Leg       string `json:"leg"`
}

// EncodeClientState packs (session, leg) into the base64 JSON form Telnyx
// accepts as client_state.
func EncodeClientState(sessionID uuid.UUID, leg models.Leg) string {
	payload, _ := json.Marshal(clientState{
		SessionID: sessionID.String(),
		Leg:       string(leg),
	})
	return base64.StdEncoding.EncodeToString(payload)
}

// DecodeClientState unpacks an echoed client_state back into (session, leg).
func DecodeClientState(encoded string) (uuid.UUID, models.Leg, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("decoding client_state base64: %w", err)
	}

	var cs clientState
	if err := json.Unmarshal(raw, &cs); err != nil {
		return uuid.Nil, "", fmt.Errorf("unmarshaling client_state: %w", err)
	}

	sessionID, err := uuid.Parse(cs.SessionID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("parsing client_state session id: %w", err)
	}

	leg := models.Leg(cs.Leg)
	if !leg.Valid() {
		return uuid.Nil, "", fmt.Errorf("unknown client_state leg %q", cs.Leg)
	}

	return sessionID, leg, nil
}
