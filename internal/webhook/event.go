package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
	SignatureHeader = "X-Signature"

	// EventOrderCreated is the only event type that triggers issuance.
	// Every other event is acknowledged and ignored.
	EventOrderCreated = "order_created"
)

// Event is the payment platform's webhook envelope.
type Event struct {
	Meta EventMeta `json:"meta"`
	Data EventData `json:"data"`
}

type EventMeta struct {
	EventName string `json:"event_name"`
}

type EventData struct {
	Attributes EventAttributes `json:"attributes"`
}

type EventAttributes struct {
	UserEmail   string `json:"user_email"`
	Identifier  string `json:"identifier"`
	OrderNumber int64  `json:"order_number"`
}

func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	return &ev, nil
}

// Sign computes the hex HMAC-SHA256 of body under secret. Exposed so the
// payment-platform side of tests can produce matching signatures.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the supplied signature against the HMAC of the
// exact received body bytes. A missing secret or signature is a hard
// rejection, never a soft pass.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
