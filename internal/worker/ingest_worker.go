// Package worker persists transactions announced over AMQP.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"bilancio/internal/amqp"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
)

// Stats counts handled messages since start.
type Stats struct {
	Stored   int64
	Rejected int64
	Failed   int64
}

// IngestWorker validates recorded transactions and inserts them.
type IngestWorker struct {
	store  ledger.Writer
	logger *log.Logger

	stored, rejected, failed atomic.Int64
}

func NewIngestWorker(store ledger.Writer, logger *log.Logger) *IngestWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &IngestWorker{store: store, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleRecorded is an amqp.Handler. Invalid content yields an error
// wrapping amqp.ErrMalformedMessage so the delivery is dropped; store errors
// are returned as they are and the delivery is retried.
func (w *IngestWorker) HandleRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	t, rec, err := msg.Record()
	if err != nil {
		w.rejected.Add(1)
		w.logger.WarnContext(ctx, "Rejected transaction message",
			log.NewFields().
				WithRecord(msg.Type, msg.ID, msg.Amount.String()).
				WithOwner(msg.OwnerID).
				WithError(err).
				WithErrorType(log.ErrorTypeValidation).
				ToSlice()...)
		return err
	}

	stored, err := w.store.Insert(ctx, t, rec)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("insert %s %s: %w", t, rec.ID, err)
	}

	w.stored.Add(1)
	w.logger.InfoContext(ctx, "Stored transaction",
		log.NewFields().
			WithRecord(t.String(), stored.ID, stored.Amount.String()).
			WithOwner(stored.OwnerID.String()).
			WithOperation(log.OpIngest).
			ToSlice()...)
	return nil
}

// Run consumes from c until ctx is cancelled.
func (w *IngestWorker) Run(ctx context.Context, c *amqp.Client) error {
	return c.ConsumeTransactions(ctx, w.HandleRecorded)
}

func (w *IngestWorker) Stats() Stats {
	return Stats{
		Stored:   w.stored.Load(),
		Rejected: w.rejected.Load(),
		Failed:   w.failed.Load(),
	}
}
