package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/csvio"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/metrics"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/reconcile"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/store"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// resultRetention is how long a finished ingestion stays queryable.
const resultRetention = 5 * time.Minute

// Options configures the ingestion service. Zero values take defaults.
type Options struct {
	BatchSize     int
	MaxFileSize   int64
	MaxConcurrent int
	WaitTimeout   time.Duration
	Timeout       time.Duration
}

func (o *Options) withDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 500 * 1024 * 1024
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 5
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = 30 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Minute
	}
}

// Service orchestrates file ingestions: streaming, batching, reconciling,
// progress fan-out, cancellation, and the concurrency limit.
type Service struct {
	store   store.Store
	rec     *reconcile.Reconciler
	opts    Options
	limiter *limiter

	mu     sync.RWMutex
	active map[string]*activeIngestion
	wg     sync.WaitGroup
}

// activeIngestion tracks one running ingestion. The process goroutine
// writes progress and the final result while handlers read them, so every
// access to progress, result, and the listener list goes through mu.
type activeIngestion struct {
	ID     string
	Cancel context.CancelFunc
	Done   chan struct{}

	mu        sync.Mutex
	progress  Progress
	result    *Result
	listeners []chan Progress
	closed    bool
}

// update mutates the progress snapshot under the lock and fans the new
// snapshot out to all subscribers without blocking on slow ones.
func (a *activeIngestion) update(mutate func(*Progress)) Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	mutate(&a.progress)
	for _, ch := range a.listeners {
		select {
		case ch <- a.progress:
		default:
		}
	}
	return a.progress
}

func (a *activeIngestion) snapshot() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

func (a *activeIngestion) setResult(r *Result) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.result = r
}

func (a *activeIngestion) finalResult() *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

func (a *activeIngestion) closeListeners() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	for _, ch := range a.listeners {
		close(ch)
	}
	a.listeners = nil
}

// NewService creates the ingestion service.
func NewService(st store.Store, rec *reconcile.Reconciler, opts Options) *Service {
	opts.withDefaults()
	return &Service{
		store:   st,
		rec:     rec,
		opts:    opts,
		limiter: newLimiter(opts.MaxConcurrent),
		active:  make(map[string]*activeIngestion),
	}
}

// Store exposes the underlying store for read-side collaborators.
func (s *Service) Store() store.Store {
	return s.store
}

// Start begins an asynchronous ingestion of one file and returns its
// ingestion ID immediately. Use Subscribe for progress and Result for the
// final outcome. declared may be empty, in which case the file type is
// classified from the name.
func (s *Service) Start(fileName string, declared unit.FileType, r io.Reader, size int64) (string, error) {
	if size > s.opts.MaxFileSize {
		return "", fmt.Errorf("file exceeds %dMB limit", s.opts.MaxFileSize/(1024*1024))
	}

	fileType := declared
	if fileType == "" {
		fileType = ClassifyFile(fileName)
	}

	if err := s.limiter.acquire(s.opts.WaitTimeout); err != nil {
		return "", err
	}

	id := uuid.New().String()
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)

	ing := &activeIngestion{
		ID:     id,
		Cancel: cancel,
		progress: Progress{
			IngestionID: id,
			FileName:    fileName,
			FileType:    fileType,
			Phase:       PhaseStarting,
		},
		Done: make(chan struct{}),
	}

	s.mu.Lock()
	s.active[id] = ing
	s.mu.Unlock()

	s.wg.Add(1)
	metrics.ActiveIngestions.Inc()

	go func() {
		defer s.wg.Done()
		defer metrics.ActiveIngestions.Dec()
		defer cancel()
		s.process(ctx, ing, fileName, fileType, r, size)
	}()

	return id, nil
}

// process runs one ingestion end to end.
func (s *Service) process(ctx context.Context, ing *activeIngestion, fileName string, fileType unit.FileType, r io.Reader, size int64) {
	start := time.Now()
	logger := slog.With("ingestion_id", ing.ID, "file", fileName, "type", string(fileType))

	defer func() {
		ing.closeListeners()
		close(ing.Done)
		s.limiter.release()
		s.cleanup(ing.ID, resultRetention)
	}()

	fail := func(stage string, err error) {
		snap := ing.update(func(p *Progress) {
			p.Phase = PhaseFailed
			if ctx.Err() != nil {
				p.Phase = PhaseCancelled
			}
			p.Error = err.Error()
		})
		ing.setResult(&Result{
			IngestionID: ing.ID,
			FileName:    fileName,
			FileType:    fileType,
			TotalRows:   snap.RowsProcessed,
			Inserted:    snap.Inserted,
			Updated:     snap.Updated,
			Events:      snap.Events,
			Warnings:    snap.Warnings,
			GrossSales:  decimal.Zero,
			Duration:    time.Since(start),
			Error:       err.Error(),
		})
		metrics.FilesIngested.WithLabelValues(string(fileType), "failed").Inc()
		logger.Error("ingestion failed", "stage", stage, "error", err)
	}

	ing.update(func(p *Progress) { p.Phase = PhaseReading })

	counting := csvio.WrapReader(r, size)
	tok := csvio.NewTokenizer(counting, csvio.DefaultDelimiter)

	header := tok.Header()
	if err := tok.Err(); err != nil {
		fail("header", fmt.Errorf("read header: %w", err))
		return
	}
	if header == nil {
		fail("header", fmt.Errorf("empty file"))
		return
	}

	// Missing required columns abort before any batch is committed.
	def := Definition(fileType)
	if missing := CheckHeader(header, def); len(missing) > 0 {
		fail("header", fmt.Errorf("missing required columns: %v", missing))
		return
	}

	businessDate, ok := BusinessDate(fileName)
	if !ok {
		now := time.Now().UTC()
		businessDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		logger.Warn("no business date in file name, defaulting", "business_date", businessDate.Format("2006-01-02"))
	}

	fu := &unit.FileUpload{
		ID:           uuid.New(),
		Name:         fileName,
		Type:         fileType,
		BusinessDate: businessDate,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateFileUpload(ctx, fu); err != nil {
		fail("create file upload", err)
		return
	}

	ing.update(func(p *Progress) { p.Phase = PhaseReconciling })

	tally := reconcile.BatchResult{GrossSales: decimal.Zero, FeeTotal: decimal.Zero}

	handler := func(ctx context.Context, index int, recs []csvio.Record) error {
		rows := make([]*unit.Row, 0, len(recs))
		for _, rec := range recs {
			rows = append(rows, ParseRow(rec))
		}

		res, err := s.rec.ApplyBatch(ctx, fu, rows)

		tally.Inserted += res.Inserted
		tally.Updated += res.Updated
		tally.Events += res.Events
		tally.Warnings += res.Warnings
		tally.GrossSales = tally.GrossSales.Add(res.GrossSales)
		tally.FeeTotal = tally.FeeTotal.Add(res.FeeTotal)

		metrics.RowsProcessed.WithLabelValues(string(fileType)).Add(float64(len(recs)))
		metrics.RowsDefaulted.WithLabelValues(string(fileType)).Add(float64(res.Warnings))
		metrics.EventsAppended.Add(float64(res.Events))

		ing.update(func(p *Progress) {
			p.Inserted = tally.Inserted
			p.Updated = tally.Updated
			p.Events = tally.Events
			p.Warnings = tally.Warnings
		})

		return err
	}

	sched := NewScheduler(tok,
		WithBatchSize(s.opts.BatchSize),
		WithByteProgress(counting),
		WithProgress(func(rows, percent int) {
			ing.update(func(p *Progress) {
				p.RowsProcessed = rows
				p.Percent = percent
			})
		}),
	)

	rows, runErr := sched.Run(ctx, handler)

	// Batches already applied stay applied. On success the file is marked
	// processed; on failure it stays unprocessed and a retry is the
	// recovery mechanism (the merge and event-append idempotency make
	// re-running the same file safe).
	fu.RowCount = rows
	fu.Processed = runErr == nil
	if err := s.store.UpdateFileUpload(ctx, fu); err != nil {
		logger.Error("update file upload failed", "error", err)
	}

	if runErr != nil {
		fail("reconcile", runErr)
		return
	}

	if err := s.store.PutFileMetrics(ctx, store.FileMetrics{
		FileUploadID: fu.ID,
		Rows:         rows,
		Warnings:     tally.Warnings,
		Events:       tally.Events,
		GrossSales:   tally.GrossSales,
	}); err != nil {
		logger.Error("store file metrics failed", "error", err)
	}

	ing.update(func(p *Progress) {
		p.Phase = PhaseComplete
		p.RowsProcessed = rows
		p.Percent = 100
	})

	ing.setResult(&Result{
		IngestionID:  ing.ID,
		FileUploadID: fu.ID,
		FileName:     fileName,
		FileType:     fileType,
		BusinessDate: businessDate,
		TotalRows:    rows,
		Inserted:     tally.Inserted,
		Updated:      tally.Updated,
		Events:       tally.Events,
		Warnings:     tally.Warnings,
		GrossSales:   tally.GrossSales,
		Duration:     time.Since(start),
	})

	metrics.FilesIngested.WithLabelValues(string(fileType), "complete").Inc()
	metrics.IngestDuration.WithLabelValues(string(fileType)).Observe(time.Since(start).Seconds())

	logger.Info("ingestion complete",
		"rows", rows,
		"inserted", tally.Inserted,
		"updated", tally.Updated,
		"events", tally.Events,
		"warnings", tally.Warnings,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Subscribe returns a channel receiving progress updates for an ingestion.
// The channel is closed when the ingestion finishes.
func (s *Service) Subscribe(id string) (<-chan Progress, error) {
	s.mu.RLock()
	ing, ok := s.active[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ingestion: %s", id)
	}

	ch := make(chan Progress, 16)
	ing.mu.Lock()
	defer ing.mu.Unlock()
	if ing.closed {
		// Already finished: deliver the last snapshot and close.
		ch <- ing.progress
		close(ch)
		return ch, nil
	}
	ing.listeners = append(ing.listeners, ch)
	ch <- ing.progress
	return ch, nil
}

// Cancel aborts an in-flight ingestion. Batches already committed remain;
// the in-flight batch either completes or is discarded whole.
func (s *Service) Cancel(id string) error {
	s.mu.RLock()
	ing, ok := s.active[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown ingestion: %s", id)
	}
	ing.Cancel()
	return nil
}

// Result returns the final result of an ingestion, nil while still running.
func (s *Service) Result(id string) (*Result, error) {
	s.mu.RLock()
	ing, ok := s.active[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ingestion: %s", id)
	}
	return ing.finalResult(), nil
}

// ProgressOf returns the latest progress snapshot for an ingestion.
func (s *Service) ProgressOf(id string) (Progress, error) {
	s.mu.RLock()
	ing, ok := s.active[id]
	s.mu.RUnlock()
	if !ok {
		return Progress{}, fmt.Errorf("unknown ingestion: %s", id)
	}
	return ing.snapshot(), nil
}

// ActiveCount returns the number of ingestions currently running.
func (s *Service) ActiveCount() int {
	return s.limiter.active()
}

// Wait blocks until all in-flight ingestions finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cleanup drops a finished ingestion from the active map after a delay so
// late result polls still succeed.
func (s *Service) cleanup(id string, after time.Duration) {
	time.AfterFunc(after, func() {
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	})
}
