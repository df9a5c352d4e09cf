package ingest

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/csvio"
)

// DefaultBatchSize is the number of rows handed to the batch handler at a
// time. One batch plus the handler's working set is the only row data live
// at any moment, which bounds memory regardless of file size.
const DefaultBatchSize = 500

// BatchHandler consumes one batch of tokenized rows. Handlers are invoked
// strictly in increasing index order and never concurrently with each
// other; the scheduler waits for each to return before reading further.
type BatchHandler func(ctx context.Context, index int, rows []csvio.Record) error

// ProgressFunc receives advisory progress after every batch: rows processed
// so far and percent of the file consumed (0-100, 0 when unknown).
type ProgressFunc func(rowsProcessed, percent int)

// Scheduler drives a tokenizer in bounded batches with sequential
// backpressure. A Scheduler is single-use, like the tokenizer under it.
type Scheduler struct {
	tok       *csvio.Tokenizer
	counting  *csvio.CountingReader // byte progress fallback, may be nil
	batchSize int
	totalRows int // row-based progress when known, 0 otherwise
	progress  ProgressFunc
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithBatchSize overrides the default batch size.
func WithBatchSize(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) SchedulerOption {
	return func(s *Scheduler) { s.progress = fn }
}

// WithByteProgress supplies the counting reader wrapped around the raw
// stream, enabling byte-based percent when total rows are unknown.
func WithByteProgress(cr *csvio.CountingReader) SchedulerOption {
	return func(s *Scheduler) { s.counting = cr }
}

// WithTotalRows enables exact row-based percent when the caller knows the
// file's data row count up front.
func WithTotalRows(n int) SchedulerOption {
	return func(s *Scheduler) { s.totalRows = n }
}

// NewScheduler creates a scheduler over a tokenizer.
func NewScheduler(tok *csvio.Tokenizer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{tok: tok, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run streams the file through the handler batch by batch and returns the
// number of data rows processed.
//
// Failure semantics: a handler error propagates immediately, but every
// prior batch has already been handled; ingestion is partially durable by
// batch, not atomic across the file. Retrying the same file is the recovery
// mechanism; the reconciler's merge and event-append idempotency make the
// retry safe. Cancellation is honored at batch boundaries only: the
// in-flight batch either completes or is never handed over.
func (s *Scheduler) Run(ctx context.Context, handler BatchHandler) (int, error) {
	var (
		batch []csvio.Record
		index int
		rows  int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := handler(ctx, index, batch); err != nil {
			return fmt.Errorf("batch %d: %w", index, err)
		}
		rows += len(batch)
		index++
		batch = nil

		if s.progress != nil {
			s.progress(rows, s.percent(rows))
		}

		// Suspension point: give other work on the runtime a chance to
		// run before the next batch is read.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			runtime.Gosched()
		}
		return nil
	}

	for {
		rec, ok := s.tok.Next()
		if !ok {
			break
		}
		batch = append(batch, rec)
		if len(batch) >= s.batchSize {
			if err := flush(); err != nil {
				return rows, err
			}
		}
	}
	if err := s.tok.Err(); err != nil {
		return rows, fmt.Errorf("read row: %w", err)
	}

	// Final, possibly partial, batch.
	if err := flush(); err != nil {
		return rows, err
	}
	return rows, nil
}

func (s *Scheduler) percent(rows int) int {
	if s.totalRows > 0 {
		return rows * 100 / s.totalRows
	}
	if s.counting != nil {
		return s.counting.Percent()
	}
	return 0
}
