package dashboard

import (
	"context"
	"fmt"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/ledger/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unlimitedStore ignores the list limit, like a backend that returns more
// rows than requested.
type unlimitedStore struct {
	ledger.Store
}

func (u unlimitedStore) List(ctx context.Context, q ledger.ListQuery) ([]core.Record, error) {
	q.Limit = 0
	return u.Store.List(ctx, q)
}

func TestMerger_TruncatesPerType(t *testing.T) {
	s := memory.New()
	owner := core.NewOwnerID()
	for i := 0; i < 4; i++ {
		s.Put(core.Income, rec(owner, fmt.Sprintf("i%d", i), "1", daysAgo(i)))
		s.Put(core.Expense, rec(owner, fmt.Sprintf("e%d", i), "1", daysAgo(i)))
	}

	got, err := NewMerger(unlimitedStore{s}).RecentMerged(context.Background(), owner, 2)
	require.NoError(t, err)
	require.Len(t, got, 4)

	ids := make([]string, len(got))
	for i, tx := range got {
		ids[i] = tx.Type.String() + ":" + tx.ID
	}
	assert.Equal(t, []string{"income:i0", "expense:e0", "income:i1", "expense:e1"}, ids)
}

func TestMerger_DefaultLimit(t *testing.T) {
	s := memory.New()
	owner := core.NewOwnerID()
	for i := 0; i < 9; i++ {
		s.Put(core.Expense, rec(owner, fmt.Sprintf("e%d", i), "1", daysAgo(i)))
	}

	got, err := NewMerger(s).RecentMerged(context.Background(), owner, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultRecentLimit)
	for _, tx := range got {
		assert.Equal(t, core.Expense, tx.Type)
	}
}

func TestAggregator_SumAllZeroWithoutGroup(t *testing.T) {
	got, err := NewAggregator(memory.New()).SumAll(context.Background(), core.NewOwnerID(), core.Income)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestAggregator_SumSinceEmptyWindow(t *testing.T) {
	s := memory.New()
	owner := core.NewOwnerID()
	s.Put(core.Income, rec(owner, "old", "10", daysAgo(90)))

	got, err := NewAggregator(s).SumSince(context.Background(), owner, core.Income, daysAgo(60))
	require.NoError(t, err)
	assert.True(t, got.Total.IsZero())
	assert.NotNil(t, got.Transactions)
	assert.Empty(t, got.Transactions)
}

func TestAggregator_SumSinceFoldsList(t *testing.T) {
	s := memory.New()
	owner := core.NewOwnerID()
	s.Put(core.Income,
		rec(owner, "a", "1.25", daysAgo(1)),
		rec(owner, "b", "2.50", daysAgo(5)),
		rec(owner, "c", "100", daysAgo(90)),
	)

	got, err := NewAggregator(s).SumSince(context.Background(), owner, core.Income, daysAgo(60))
	require.NoError(t, err)
	assert.Equal(t, "3.75", got.Total.String())
	require.Len(t, got.Transactions, 2)
	assert.Equal(t, "a", got.Transactions[0].ID)
}
