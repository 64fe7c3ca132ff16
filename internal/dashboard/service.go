// Package dashboard derives the point-in-time financial summary of one owner
// from the income and expense collections.
//
// Every summary is recomputed from the store. The sub-queries run
// concurrently and are not mutually transactional: under concurrent writes a
// record may appear in the recent feed before it is reflected in a total
// computed by a sibling query, or the other way around. Within a single
// window the total is always folded from the returned records.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/log"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const day = 24 * time.Hour

// Options tunes the windows and feed size. Zero values take the defaults.
type Options struct {
	IncomeWindow  time.Duration
	ExpenseWindow time.Duration
	RecentLimit   int
	Clock         func() time.Time
	Logger        *log.Logger
}

// DefaultOptions returns the 60 day income window, 30 day expense window
// and five records per type in the recent feed.
func DefaultOptions() Options {
	return Options{
		IncomeWindow:  60 * day,
		ExpenseWindow: 30 * day,
		RecentLimit:   DefaultRecentLimit,
		Clock:         time.Now,
	}
}

// Service assembles FinancialSummary values. It holds no per-request state
// and is safe for concurrent use.
type Service struct {
	agg    *Aggregator
	merger *Merger
	opts   Options
	logger *log.Logger
}

func NewService(store ledger.Store, opts Options) *Service {
	def := DefaultOptions()
	if opts.IncomeWindow <= 0 {
		opts.IncomeWindow = def.IncomeWindow
	}
	if opts.ExpenseWindow <= 0 {
		opts.ExpenseWindow = def.ExpenseWindow
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = def.RecentLimit
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		agg:    NewAggregator(store),
		merger: NewMerger(store),
		opts:   opts,
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

// Summary is BuildSummary at the service clock's current time.
func (s *Service) Summary(ctx context.Context, ownerID string) (core.FinancialSummary, error) {
	return s.BuildSummary(ctx, ownerID, s.opts.Clock())
}

// BuildSummary validates ownerID and computes the summary as of now.
// It either returns a fully populated summary or an error, never both.
func (s *Service) BuildSummary(ctx context.Context, ownerID string, now time.Time) (core.FinancialSummary, error) {
	owner, err := core.ParseOwnerID(ownerID)
	if err != nil {
		return core.FinancialSummary{}, err
	}

	start := time.Now()
	incomeSince := now.Add(-s.opts.IncomeWindow)
	expenseSince := now.Add(-s.opts.ExpenseWindow)

	var (
		totalIncome, totalExpense decimal.Decimal
		incomeWindow              core.WindowTotal
		expenseWindow             core.WindowTotal
		recent                    []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	goSafe(g, func() (err error) {
		totalIncome, err = s.agg.SumAll(gctx, owner, core.Income)
		return err
	})
	goSafe(g, func() (err error) {
		totalExpense, err = s.agg.SumAll(gctx, owner, core.Expense)
		return err
	})
	goSafe(g, func() (err error) {
		incomeWindow, err = s.agg.SumSince(gctx, owner, core.Income, incomeSince)
		return err
	})
	goSafe(g, func() (err error) {
		expenseWindow, err = s.agg.SumSince(gctx, owner, core.Expense, expenseSince)
		return err
	})
	goSafe(g, func() (err error) {
		recent, err = s.merger.RecentMerged(gctx, owner, s.opts.RecentLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Dashboard summary failed",
			log.NewFields().
				WithOwner(owner.String()).
				WithOperation(log.OpSummary).
				WithError(err).
				WithDuration(time.Since(start)).
				ToSlice()...)
		return core.FinancialSummary{}, err
	}

	summary := core.FinancialSummary{
		TotalBalance:       totalIncome.Sub(totalExpense),
		TotalIncome:        totalIncome,
		TotalExpense:       totalExpense,
		Last60DaysIncome:   incomeWindow,
		Last30DaysExpenses: expenseWindow,
		RecentTransactions: recent,
	}
	if summary.RecentTransactions == nil {
		summary.RecentTransactions = []core.Transaction{}
	}

	s.logger.DebugContext(ctx, "Dashboard summary built",
		log.FieldOwnerID, owner.String(),
		log.FieldRecentCount, len(summary.RecentTransactions),
		slog.Group(log.FieldWindowSince,
			string(core.Income), incomeSince.UTC().Format(time.RFC3339),
			string(core.Expense), expenseSince.UTC().Format(time.RFC3339)),
		log.FieldDuration, time.Since(start).Milliseconds())

	return summary, nil
}

// goSafe runs fn on g, turning a panic into ErrUnexpected so a single
// faulty sub-query fails the summary instead of the process.
func goSafe(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", core.ErrUnexpected, r)
			}
		}()
		return fn()
	})
}
