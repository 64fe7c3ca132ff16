package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// RoutingKeyRecorded is the routing key of transaction recorded events.
const RoutingKeyRecorded = "transaction.recorded"

// ErrMalformedMessage marks a delivery that can never be processed.
var ErrMalformedMessage = errors.New("malformed message")

// TransactionRecordedMessage announces a newly recorded income or expense.
// ID is chosen by the producer so that redelivery does not duplicate rows.
type TransactionRecordedMessage struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	OwnerID   string          `json:"owner_id"`
	Amount    decimal.Decimal `json:"amount"`
	Label     string          `json:"label"`
	Icon      string          `json:"icon,omitempty"`
	Date      time.Time       `json:"date"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewTransactionRecordedMessage builds a message for r, assigning an ID
// when r has none.
func NewTransactionRecordedMessage(t core.RecordType, r core.Record) *TransactionRecordedMessage {
	id := r.ID
	if id == "" {
		id = core.NewRecordID()
	}
	return &TransactionRecordedMessage{
		ID:        id,
		Type:      t.String(),
		OwnerID:   r.OwnerID.String(),
		Amount:    r.Amount,
		Label:     r.Label,
		Icon:      r.Icon,
		Date:      r.Date.UTC(),
		Timestamp: time.Now().UTC(),
	}
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return &msg, nil
}

// Record converts the message into a validated record. Every failure
// wraps ErrMalformedMessage.
func (m *TransactionRecordedMessage) Record() (core.RecordType, core.Record, error) {
	t, err := core.ParseRecordType(m.Type)
	if err != nil {
		return "", core.Record{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	owner, err := core.ParseOwnerID(m.OwnerID)
	if err != nil {
		return "", core.Record{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if strings.TrimSpace(m.ID) == "" {
		return "", core.Record{}, fmt.Errorf("%w: missing id", ErrMalformedMessage)
	}
	r := core.Record{
		ID:      m.ID,
		OwnerID: owner,
		Amount:  m.Amount,
		Label:   strings.TrimSpace(m.Label),
		Icon:    m.Icon,
		Date:    m.Date.UTC(),
	}
	if err := r.Validate(); err != nil {
		return "", core.Record{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return t, r, nil
}
