package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/recordlog"
)

// TransactionChangeMessage announces a committed record log change.
// Amounts travel as their exact decimal text. Deletions only carry the ID.
type TransactionChangeMessage struct {
	MessageID   string               `json:"message_id"`
	Kind        recordlog.ChangeKind `json:"kind"`
	ID          int64                `json:"id"`
	Amount      string               `json:"amount,omitempty"`
	Date        string               `json:"date,omitempty"`
	Time        string               `json:"time,omitempty"`
	Description string               `json:"description,omitempty"`
	Vendor      string               `json:"vendor,omitempty"`
	Category    string               `json:"category,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

// NewTransactionChangeMessage creates a message with a fresh message ID.
func NewTransactionChangeMessage(kind recordlog.ChangeKind, t core.Transaction) *TransactionChangeMessage {
	msg := &TransactionChangeMessage{
		MessageID: uuid.NewString(),
		Kind:      kind,
		ID:        t.ID,
		Timestamp: time.Now().UTC(),
	}
	if kind != recordlog.ChangeDeleted {
		msg.Amount = t.Amount.String()
		msg.Date = t.Date.String()
		msg.Time = t.Time.String()
		msg.Description = t.Description
		msg.Vendor = t.Vendor
		msg.Category = t.Category
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionChangeMessageFromJSON decodes and checks a message.
func TransactionChangeMessageFromJSON(data []byte) (*TransactionChangeMessage, error) {
	var msg TransactionChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case recordlog.ChangeCreated, recordlog.ChangeUpdated, recordlog.ChangeDeleted:
	default:
		return nil, fmt.Errorf("unknown change kind %q", msg.Kind)
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("change message without transaction id")
	}
	return &msg, nil
}

// Transaction rebuilds the transaction carried by a created or updated message.
func (m *TransactionChangeMessage) Transaction() (core.Transaction, error) {
	if m.Kind == recordlog.ChangeDeleted {
		return core.Transaction{ID: m.ID}, nil
	}
	t, err := core.NewTransaction(m.Amount, m.Date, m.Time, m.Description, m.Vendor)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("message %s: %w", m.MessageID, err)
	}
	return t.WithID(m.ID).WithCategory(m.Category), nil
}
