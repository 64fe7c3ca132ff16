package dashboard

import (
	"context"

	"bilancio/internal/core"
	"bilancio/internal/ledger"

	"golang.org/x/sync/errgroup"
)

// DefaultRecentLimit is the number of records fetched per type.
const DefaultRecentLimit = 5

// Merger builds the cross-type recent activity feed.
type Merger struct {
	store ledger.Store
}

func NewMerger(store ledger.Store) *Merger {
	return &Merger{store: store}
}

// RecentMerged fetches the perTypeLimit newest records of each type, tags
// them and returns one list ordered by core.CompareTransactions.
func (m *Merger) RecentMerged(ctx context.Context, owner core.OwnerID, perTypeLimit int) ([]core.Transaction, error) {
	if perTypeLimit <= 0 {
		perTypeLimit = DefaultRecentLimit
	}
	types := core.RecordTypes()
	parts := make([][]core.Transaction, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		goSafe(g, func() error {
			recs, err := m.store.List(gctx, ledger.ListQuery{Owner: owner, Type: t, Limit: perTypeLimit})
			if err != nil {
				return storeError("recent "+t.String(), err)
			}
			if len(recs) > perTypeLimit {
				recs = recs[:perTypeLimit]
			}
			parts[i] = core.Tag(t, recs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]core.Transaction, 0, 2*perTypeLimit)
	for _, p := range parts {
		merged = append(merged, p...)
	}
	core.SortTransactions(merged)
	return merged, nil
}
