package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"

	"github.com/shopspring/decimal"
)

// Store keeps both collections in memory, keyed by record type.
type Store struct {
	mu    sync.RWMutex
	items map[core.RecordType][]core.Record
}

func New() *Store {
	return &Store{items: make(map[core.RecordType][]core.Record)}
}

// seedRecord is the on-disk shape of a seed file entry.
type seedRecord struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Owner  string          `json:"owner_id"`
	Amount decimal.Decimal `json:"amount"`
	Label  string          `json:"label"`
	Icon   string          `json:"icon"`
	Date   time.Time       `json:"date"`
}

// NewFromFile loads a JSON array of seed records. A missing file yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seeds []seedRecord
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	for i, sr := range seeds {
		t, err := core.ParseRecordType(sr.Type)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		owner, err := core.ParseOwnerID(sr.Owner)
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", i, err)
		}
		s.add(t, core.Record{
			ID:      sr.ID,
			OwnerID: owner,
			Amount:  sr.Amount,
			Label:   sr.Label,
			Icon:    sr.Icon,
			Date:    sr.Date.UTC(),
		})
	}
	return s, nil
}

// Insert stores the record, assigning an ID when missing. A record whose
// ID is already stored is left untouched and returned as stored.
func (s *Store) Insert(_ context.Context, t core.RecordType, r core.Record) (core.Record, error) {
	if err := t.Validate(); err != nil {
		return core.Record{}, err
	}
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	if r.ID == "" {
		r.ID = core.NewRecordID()
	}
	r.Date = r.Date.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items[t] {
		if existing.ID == r.ID {
			return existing, nil
		}
	}
	s.items[t] = append(s.items[t], r)
	return r, nil
}

// Put stores a record as-is. It bypasses validation so tests can model
// legacy rows with zero or negative amounts.
func (s *Store) Put(t core.RecordType, records ...core.Record) {
	for _, r := range records {
		s.add(t, r)
	}
}

func (s *Store) add(t core.RecordType, r core.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[t] = append(s.items[t], r)
}

// Sum implements ledger.Store.
func (s *Store) Sum(ctx context.Context, q ledger.SumQuery) (decimal.NullDecimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.NullDecimal{}, err
	}
	if err := q.Type.Validate(); err != nil {
		return decimal.NullDecimal{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		total   decimal.Decimal
		matched bool
	)
	for _, r := range s.items[q.Type] {
		if r.OwnerID != q.Owner {
			continue
		}
		total = total.Add(r.Amount)
		matched = true
	}
	return decimal.NullDecimal{Decimal: total, Valid: matched}, nil
}

// List implements ledger.Store.
func (s *Store) List(ctx context.Context, q ledger.ListQuery) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Type.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]core.Record, 0)
	for _, r := range s.items[q.Type] {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	core.SortRecords(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
