package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook event types emitted by the processor.
const (
	EventSessionCompleted = "checkout.session.completed"
	EventSessionExpired   = "checkout.session.expired"
	EventIntentSucceeded  = "payment_intent.succeeded"
)

// SignatureHeader carries the webhook signature on incoming requests.
const SignatureHeader = "Webhook-Signature"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
)

// Event is a signed processor notification. Processors may redeliver events,
// so handlers must be idempotent.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object EventObject `json:"object"`
	} `json:"data"`
}

// EventObject is the session or intent the event refers to.
type EventObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// OrderID returns the order reference attached to the session at creation.
func (e *Event) OrderID() string {
	return e.Data.Object.Metadata["order_id"]
}

// SessionID returns the processor-side object id the event refers to.
func (e *Event) SessionID() string {
	return e.Data.Object.ID
}

// ParseEvent decodes a verified payload.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, errors.New("event missing id or type")
	}
	return &ev, nil
}

// VerifySignature checks the "t=<unix>,v1=<hex>" header against an
// HMAC-SHA256 of "<unix>.<payload>" with the shared webhook secret. The
// payload must not be trusted until this passes.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return ErrStaleTimestamp
		}
	}

	expected := Sign(payload, secret, time.Unix(ts, 0))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the v1 signature for a payload at a given timestamp.
// Exposed for tests and for the stress tooling.
func Sign(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeaderValue formats the header a sender would attach.
func SignatureHeaderValue(payload []byte, secret string, at time.Time) string {
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), Sign(payload, secret, at))
}

func parseSignatureHeader(header string) (int64, string, error) {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", ErrInvalidSignature
			}
			ts = parsed
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", ErrInvalidSignature
	}
	return ts, sig, nil
}
