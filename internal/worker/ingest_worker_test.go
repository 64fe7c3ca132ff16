package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/ledger/memory"
	"bilancio/internal/log"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{ err error }

func (f failingWriter) Insert(context.Context, core.RecordType, core.Record) (core.Record, error) {
	return core.Record{}, f.err
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func recordedMessage(owner core.OwnerID) *amqp.TransactionRecordedMessage {
	return amqp.NewTransactionRecordedMessage(core.Expense, core.Record{
		ID:      "evt-1",
		OwnerID: owner,
		Amount:  decimal.RequireFromString("19.99"),
		Label:   "Books",
		Icon:    "📚",
		Date:    time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC),
	})
}

func TestHandleRecorded_StoresRecord(t *testing.T) {
	store := memory.New()
	w := NewIngestWorker(store, quietLogger())
	owner := core.NewOwnerID()

	msg := recordedMessage(owner)
	require.NoError(t, w.HandleRecorded(context.Background(), msg))
	// Redelivery of the same event does not duplicate it.
	require.NoError(t, w.HandleRecorded(context.Background(), msg))

	got, err := store.List(context.Background(), ledger.ListQuery{Owner: owner, Type: core.Expense})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "evt-1", got[0].ID)
	assert.Equal(t, "Books", got[0].Label)
	assert.Equal(t, int64(2), w.Stats().Stored)
}

func TestHandleRecorded_RejectsMalformed(t *testing.T) {
	store := memory.New()
	w := NewIngestWorker(store, quietLogger())

	msg := recordedMessage(core.NewOwnerID())
	msg.Amount = decimal.NewFromInt(-5)

	err := w.HandleRecorded(context.Background(), msg)
	require.ErrorIs(t, err, amqp.ErrMalformedMessage)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Equal(t, int64(1), w.Stats().Rejected)
}

func TestHandleRecorded_RejectsFractionsOfACent(t *testing.T) {
	store := memory.New()
	w := NewIngestWorker(store, quietLogger())
	owner := core.NewOwnerID()

	msg := recordedMessage(owner)
	msg.Amount = decimal.RequireFromString("0.004")

	err := w.HandleRecorded(context.Background(), msg)
	require.ErrorIs(t, err, amqp.ErrMalformedMessage)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	got, err := store.List(context.Background(), ledger.ListQuery{Owner: owner, Type: core.Expense})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHandleRecorded_StoreFailureIsRetryable(t *testing.T) {
	boom := errors.New("database is locked")
	w := NewIngestWorker(failingWriter{err: boom}, quietLogger())

	err := w.HandleRecorded(context.Background(), recordedMessage(core.NewOwnerID()))
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, amqp.ErrMalformedMessage)
	assert.Equal(t, int64(1), w.Stats().Failed)
}
