package dashboard

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"

	"github.com/shopspring/decimal"
)

// Aggregator computes scalar sums for any record type. It knows nothing
// about which window a caller uses for which type.
type Aggregator struct {
	store ledger.Store
}

func NewAggregator(store ledger.Store) *Aggregator {
	return &Aggregator{store: store}
}

// SumAll returns the all-time total of t for owner, zero when the owner
// has no records of that type.
func (a *Aggregator) SumAll(ctx context.Context, owner core.OwnerID, t core.RecordType) (decimal.Decimal, error) {
	res, err := a.store.Sum(ctx, ledger.SumQuery{Owner: owner, Type: t})
	if err != nil {
		return decimal.Zero, storeError("sum "+t.String(), err)
	}
	if !res.Valid {
		return decimal.Zero, nil
	}
	return res.Decimal, nil
}

// SumSince lists records of t dated at or after since and folds the total
// from that same list, so the total always matches the returned records.
func (a *Aggregator) SumSince(ctx context.Context, owner core.OwnerID, t core.RecordType, since time.Time) (core.WindowTotal, error) {
	records, err := a.store.List(ctx, ledger.ListQuery{Owner: owner, Type: t, Since: since})
	if err != nil {
		return core.WindowTotal{}, storeError("list "+t.String(), err)
	}
	if len(records) == 0 {
		return core.EmptyWindow(), nil
	}
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return core.WindowTotal{Total: total, Transactions: records}, nil
}

// storeError tags a store failure with ErrStoreUnavailable while keeping
// the cause (including context cancellation) inspectable.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}
