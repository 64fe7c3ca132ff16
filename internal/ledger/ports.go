package ledger

import (
	"context"
	"time"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// Query shapes consumed by the dashboard engine.
type (
	// SumQuery selects every record of one type owned by Owner.
	SumQuery struct {
		Owner core.OwnerID
		Type  core.RecordType
	}

	// ListQuery selects records of one type owned by Owner, newest first.
	// A zero Since means no lower bound; a zero Limit means no limit.
	ListQuery struct {
		Owner core.OwnerID
		Type  core.RecordType
		Since time.Time
		Limit int
	}
)

type (
	// Store is the read side of the transaction collections.
	Store interface {
		// Sum returns the grouped sum of amounts. When no record matches,
		// the result is invalid (no group) rather than zero.
		Sum(ctx context.Context, q SumQuery) (decimal.NullDecimal, error)

		// List returns matching records ordered by core.CompareRecords.
		// It returns an empty slice, not an error, when nothing matches.
		List(ctx context.Context, q ListQuery) ([]core.Record, error)
	}

	// Writer persists records created elsewhere (ingest, seeding).
	Writer interface {
		Insert(ctx context.Context, t core.RecordType, r core.Record) (core.Record, error)
	}

	// ReadWriter is implemented by every backend.
	ReadWriter interface {
		Store
		Writer
	}
)

// Matches reports whether r satisfies the owner and date filters of q.
func (q ListQuery) Matches(r core.Record) bool {
	if r.OwnerID != q.Owner {
		return false
	}
	return q.Since.IsZero() || !r.Date.Before(q.Since)
}
