package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  RecordType = "income"
	Expense RecordType = "expense"
)

type (
	// RecordType discriminates the two transaction collections.
	RecordType string

	// OwnerID identifies the user every query is scoped to.
	OwnerID struct {
		uuid.UUID
	}

	Record struct {
		ID      string
		OwnerID OwnerID
		Amount  decimal.Decimal
		Label   string // Category for expenses, source for incomes
		Icon    string
		Date    time.Time
	}

	// Transaction is a Record tagged with the collection it was read from.
	Transaction struct {
		Type RecordType
		Record
	}
)

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidRecordType = errors.New("invalid record type")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyLabel        = errors.New("empty label")
	ErrInvalidDate       = errors.New("invalid date")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrUnexpected        = errors.New("unexpected error")
)

// RecordTypes lists every record type in a fixed order.
func RecordTypes() []RecordType {
	return []RecordType{Income, Expense}
}

func (t RecordType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRecordType, string(t))
	}
}

func (t RecordType) String() string {
	return string(t)
}

// ParseRecordType accepts the lowercase collection name.
func ParseRecordType(s string) (RecordType, error) {
	t := RecordType(strings.ToLower(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

// ParseOwnerID validates the textual form of an owner identifier.
func ParseOwnerID(s string) (OwnerID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OwnerID{}, fmt.Errorf("%w: empty owner id", ErrInvalidIdentifier)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return OwnerID{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	if id == uuid.Nil {
		return OwnerID{}, fmt.Errorf("%w: nil owner id", ErrInvalidIdentifier)
	}
	return OwnerID{UUID: id}, nil
}

// MustOwnerID is ParseOwnerID for literals known to be valid.
func MustOwnerID(s string) OwnerID {
	id, err := ParseOwnerID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// NewOwnerID returns a random owner identifier.
func NewOwnerID() OwnerID {
	return OwnerID{UUID: uuid.New()}
}

// NewRecordID returns a fresh identifier for a stored record.
func NewRecordID() string {
	return uuid.NewString()
}

func (o OwnerID) IsZero() bool {
	return o.UUID == uuid.Nil
}

// Validate checks the invariants enforced when a record is created.
// Aggregation never calls it: stored legacy rows are summed as they are.
func (r Record) Validate() error {
	if r.OwnerID.IsZero() {
		return fmt.Errorf("%w: missing owner", ErrInvalidIdentifier)
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !IsWholeCents(r.Amount) {
		return fmt.Errorf("%w: %s has fractions of a cent", ErrInvalidAmount, r.Amount)
	}
	if strings.TrimSpace(r.Label) == "" {
		return ErrEmptyLabel
	}
	if len(r.Label) > 200 {
		return errors.New("label too long (max 200 characters)")
	}
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Tag attaches the originating collection to a record.
func Tag(t RecordType, records []Record) []Transaction {
	out := make([]Transaction, len(records))
	for i, r := range records {
		out[i] = Transaction{Type: t, Record: r}
	}
	return out
}
