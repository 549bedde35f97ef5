package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"invoicer/internal/invoice"
)

// InvoiceEventMessage is the wire form of an invoice.Event. It carries
// identifiers only; consumers read the current record from the store.
type InvoiceEventMessage struct {
	Type      string    `json:"type"`
	InvoiceID string    `json:"invoiceId,omitempty"`
	Number    string    `json:"number,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var errMissingType = errors.New("message has no type")

// NewInvoiceEventMessage converts an engine event to its wire form.
func NewInvoiceEventMessage(ev invoice.Event) *InvoiceEventMessage {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &InvoiceEventMessage{
		Type:      string(ev.Type),
		InvoiceID: ev.InvoiceID,
		Number:    ev.Number,
		Count:     ev.Count,
		Timestamp: ts,
	}
}

// Event converts the message back to an engine event.
func (m *InvoiceEventMessage) Event() invoice.Event {
	return invoice.Event{
		Type:      invoice.EventType(m.Type),
		InvoiceID: m.InvoiceID,
		Number:    m.Number,
		Count:     m.Count,
		Timestamp: m.Timestamp,
	}
}

func (m *InvoiceEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InvoiceEventMessageFromJSON decodes a message and rejects payloads without
// an event type.
func InvoiceEventMessageFromJSON(data []byte) (*InvoiceEventMessage, error) {
	var msg InvoiceEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, errMissingType
	}
	return &msg, nil
}
