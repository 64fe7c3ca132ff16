// Package services holds write-side orchestration shared by the binaries.
package services

import (
	"context"
	"errors"
	"fmt"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/log"
)

// Publisher emits recorded events for the ingest worker.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error
}

// ErrNoSink is returned when a Recorder has neither a writer nor a publisher.
var ErrNoSink = errors.New("recorder has no writer or publisher")

// Recorder validates new records and hands them to the local store, the
// broker, or both. With both configured the store is written first and a
// publish failure is logged rather than returned, the record being saved.
type Recorder struct {
	writer    ledger.Writer
	publisher Publisher
	logger    *log.Logger
}

func NewRecorder(writer ledger.Writer, publisher Publisher, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Recorder{
		writer:    writer,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentApp),
	}
}

// Record stores or publishes rec and returns it with its assigned ID.
func (s *Recorder) Record(ctx context.Context, t core.RecordType, rec core.Record) (core.Record, error) {
	if s.writer == nil && s.publisher == nil {
		return core.Record{}, ErrNoSink
	}
	if err := t.Validate(); err != nil {
		return core.Record{}, err
	}
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	if rec.ID == "" {
		rec.ID = core.NewRecordID()
	}

	if s.writer == nil {
		if err := s.publish(ctx, t, rec); err != nil {
			return core.Record{}, fmt.Errorf("publish %s: %w", t, err)
		}
		return rec, nil
	}

	stored, err := s.writer.Insert(ctx, t, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("save %s: %w", t, err)
	}
	if s.publisher != nil {
		if err := s.publish(ctx, t, stored); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish recorded event",
				log.NewFields().
					WithRecord(t.String(), stored.ID, stored.Amount.String()).
					WithError(err).
					ToSlice()...)
		}
	}
	return stored, nil
}

func (s *Recorder) publish(ctx context.Context, t core.RecordType, rec core.Record) error {
	return s.publisher.PublishTransactionRecorded(ctx, amqp.NewTransactionRecordedMessage(t, rec))
}
