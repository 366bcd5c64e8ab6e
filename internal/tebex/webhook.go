package tebex

import (
	"encoding/json"
	"fmt"
	"time"
)

// Webhook types with a dedicated event shape.
const (
	TypeValidation       = "validation.webhook"
	TypePaymentCompleted = "payment.completed"
)

// Webhook is a decoded webhook envelope.
type Webhook struct {
	ID    string
	Date  time.Time
	Type  string
	Event Event
}

// Event is one of ValidationEvent, PaymentCompletedEvent or UnknownEvent.
type Event interface {
	event()
}

// ValidationEvent confirms endpoint liveness. It has no subject.
type ValidationEvent struct{}

// PaymentCompletedEvent carries a completed payment.
type PaymentCompletedEvent struct {
	Payment Payment
}

// UnknownEvent holds any type this package does not model.
type UnknownEvent struct {
	Type    string
	Subject map[string]any
}

func (ValidationEvent) event()       {}
func (PaymentCompletedEvent) event() {}
func (UnknownEvent) event()          {}

type envelope struct {
	ID      *string         `json:"id"`
	Date    *time.Time      `json:"date"`
	Type    *string         `json:"type"`
	Subject json.RawMessage `json:"subject"`
}

// ParseWebhook decodes an authenticated body. A malformed envelope or a
// malformed payment subject is an error; an unrecognized type is not.
func ParseWebhook(body []byte) (*Webhook, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("invalid webhook envelope: %w", err)
	}
	switch {
	case env.ID == nil:
		return nil, fmt.Errorf("invalid webhook envelope: missing id")
	case env.Date == nil:
		return nil, fmt.Errorf("invalid webhook envelope: missing date")
	case env.Type == nil:
		return nil, fmt.Errorf("invalid webhook envelope: missing type")
	}

	w := &Webhook{ID: *env.ID, Date: *env.Date, Type: *env.Type}

	switch w.Type {
	case TypeValidation:
		w.Event = ValidationEvent{}
	case TypePaymentCompleted:
		if isNull(env.Subject) {
			return nil, fmt.Errorf("invalid %s subject: missing", w.Type)
		}
		var p Payment
		if err := json.Unmarshal(env.Subject, &p); err != nil {
			return nil, fmt.Errorf("invalid %s subject: %w", w.Type, err)
		}
		w.Event = PaymentCompletedEvent{Payment: p}
	default:
		subject := map[string]any{}
		if !isNull(env.Subject) {
			if err := json.Unmarshal(env.Subject, &subject); err != nil {
				return nil, fmt.Errorf("invalid %s subject: %w", w.Type, err)
			}
		}
		w.Event = UnknownEvent{Type: w.Type, Subject: subject}
	}

	return w, nil
}

// ValidateWebhook verifies the signature and then parses the body.
func ValidateWebhook(body []byte, signature, secret string) (*Webhook, error) {
	if err := VerifySignature(body, signature, secret); err != nil {
		return nil, err
	}
	return ParseWebhook(body)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
