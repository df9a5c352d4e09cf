package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Postgres is the pgx-backed Store. Schema and migrations are owned by the
// platform team's tooling; this store expects the following tables:
//
//	file_uploads     (id uuid pk, name, file_type, business_date, row_count,
//	                  processed, created_at)
//	canonical_units  (trgid text pk, stage, fiscal_week, order_closed_on,
//	                  data jsonb)
//	lifecycle_events (id uuid pk, trgid, stage, event_date, file_upload_id,
//	                  business_date, fiscal_week, fiscal_day,
//	                  unique (trgid, stage, file_upload_id))
//	file_metrics     (file_upload_id uuid pk, rows, warnings, events,
//	                  gross_sales)
//
// The canonical record, per-field merge clocks included, round-trips through
// the jsonb data column; the duplicated stage/week/date columns exist only
// for filtered bulk reads. Per-field merging happens in the reconciler under
// its per-trgid lock, so the store only ever sees whole-record upserts.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store over an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// WithBatch runs fn inside one transaction, so every canonical mutation of
// the batch commits atomically. Any error, context cancellation included,
// rolls the whole batch back.
func (p *Postgres) WithBatch(ctx context.Context, fn func(BatchStore) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(postgresBatch{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// postgresBatch routes the canonical-merge statements through the batch
// transaction.
type postgresBatch struct {
	tx pgx.Tx
}

func (b postgresBatch) GetUnit(ctx context.Context, trgid string) (*unit.UnitRecord, error) {
	return getUnit(ctx, b.tx, trgid)
}

func (b postgresBatch) PutUnit(ctx context.Context, rec *unit.UnitRecord) error {
	return putUnit(ctx, b.tx, rec)
}

func (b postgresBatch) AppendEvent(ctx context.Context, ev *unit.LifecycleEvent) (bool, error) {
	return appendEvent(ctx, b.tx, ev)
}

func (p *Postgres) CreateFileUpload(ctx context.Context, fu *unit.FileUpload) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO file_uploads (id, name, file_type, business_date, row_count, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		fu.ID, fu.Name, string(fu.Type), fu.BusinessDate, fu.RowCount, fu.Processed, fu.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file upload: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateFileUpload(ctx context.Context, fu *unit.FileUpload) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE file_uploads SET row_count = $2, processed = $3 WHERE id = $1`,
		fu.ID, fu.RowCount, fu.Processed,
	)
	if err != nil {
		return fmt.Errorf("update file upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetFileUpload(ctx context.Context, id uuid.UUID) (*unit.FileUpload, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, file_type, business_date, row_count, processed, created_at
		FROM file_uploads WHERE id = $1`, id)
	return scanFileUpload(row)
}

func (p *Postgres) ListFileUploads(ctx context.Context) ([]unit.FileUpload, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, file_type, business_date, row_count, processed, created_at
		FROM file_uploads ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list file uploads: %w", err)
	}
	defer rows.Close()

	var out []unit.FileUpload
	for rows.Next() {
		fu, err := scanFileUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fu)
	}
	return out, rows.Err()
}

// DeleteFileUpload removes the upload, its events, and its derived metrics
// in one transaction. Canonical unit rows are intentionally untouched.
func (p *Postgres) DeleteFileUpload(ctx context.Context, id uuid.UUID) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM lifecycle_events WHERE file_upload_id = $1`, id); err != nil {
		return fmt.Errorf("delete events: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM file_metrics WHERE file_upload_id = $1`, id); err != nil {
		return fmt.Errorf("delete metrics: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM file_uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// querier is the subset of pgxpool.Pool and pgx.Tx the canonical-merge
// statements run on, so the same SQL serves both the pool and a batch
// transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (p *Postgres) GetUnit(ctx context.Context, trgid string) (*unit.UnitRecord, error) {
	return getUnit(ctx, p.pool, trgid)
}

func getUnit(ctx context.Context, q querier, trgid string) (*unit.UnitRecord, error) {
	var data []byte
	err := q.QueryRow(ctx, `SELECT data FROM canonical_units WHERE trgid = $1`, trgid).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get unit %s: %w", trgid, err)
	}

	var rec unit.UnitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode unit %s: %w", trgid, err)
	}
	return &rec, nil
}

func (p *Postgres) PutUnit(ctx context.Context, rec *unit.UnitRecord) error {
	return putUnit(ctx, p.pool, rec)
}

func putUnit(ctx context.Context, q querier, rec *unit.UnitRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode unit %s: %w", rec.TRGID, err)
	}

	var week *int
	if w, ok := rec.FiscalWeek.Get(); ok {
		week = &w
	}
	var closed *time.Time
	if c, ok := rec.OrderClosedOn.Get(); ok {
		closed = &c
	}

	_, err = q.Exec(ctx, `
		INSERT INTO canonical_units (trgid, stage, fiscal_week, order_closed_on, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (trgid) DO UPDATE
		SET stage = EXCLUDED.stage,
		    fiscal_week = EXCLUDED.fiscal_week,
		    order_closed_on = EXCLUDED.order_closed_on,
		    data = EXCLUDED.data`,
		rec.TRGID, int(rec.Stage), week, closed, data,
	)
	if err != nil {
		return fmt.Errorf("upsert unit %s: %w", rec.TRGID, err)
	}
	return nil
}

func (p *Postgres) ListUnits(ctx context.Context, f UnitFilter) ([]unit.UnitRecord, error) {
	query := `SELECT data FROM canonical_units WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Stage != nil {
		query += ` AND stage = ` + arg(int(*f.Stage))
	}
	if f.WeekFrom != nil {
		query += ` AND fiscal_week >= ` + arg(*f.WeekFrom)
	}
	if f.WeekTo != nil {
		query += ` AND fiscal_week <= ` + arg(*f.WeekTo)
	}
	if f.From != nil {
		query += ` AND order_closed_on >= ` + arg(*f.From)
	}
	if f.To != nil {
		query += ` AND order_closed_on <= ` + arg(*f.To)
	}
	query += ` ORDER BY trgid`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var out []unit.UnitRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec unit.UnitRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode unit: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) CountUnits(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM canonical_units`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count units: %w", err)
	}
	return n, nil
}

// AppendEvent relies on the unique (trgid, stage, file_upload_id) constraint
// for idempotency: re-ingesting a file never duplicates events.
func (p *Postgres) AppendEvent(ctx context.Context, ev *unit.LifecycleEvent) (bool, error) {
	return appendEvent(ctx, p.pool, ev)
}

func appendEvent(ctx context.Context, q querier, ev *unit.LifecycleEvent) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO lifecycle_events
			(id, trgid, stage, event_date, file_upload_id, business_date, fiscal_week, fiscal_day)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (trgid, stage, file_upload_id) DO NOTHING`,
		ev.ID, ev.TRGID, int(ev.Stage), ev.EventDate, ev.FileUploadID,
		ev.BusinessDate, ev.FiscalWeek, ev.FiscalDay,
	)
	if err != nil {
		return false, fmt.Errorf("append event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) ListEvents(ctx context.Context, f EventFilter) ([]unit.LifecycleEvent, error) {
	query := `
		SELECT id, trgid, stage, event_date, file_upload_id, business_date, fiscal_week, fiscal_day
		FROM lifecycle_events WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.TRGID != "" {
		query += ` AND trgid = ` + arg(f.TRGID)
	}
	if f.Stage != nil {
		query += ` AND stage = ` + arg(int(*f.Stage))
	}
	if f.FileUploadID != nil {
		query += ` AND file_upload_id = ` + arg(*f.FileUploadID)
	}
	if f.From != nil {
		query += ` AND event_date >= ` + arg(*f.From)
	}
	if f.To != nil {
		query += ` AND event_date <= ` + arg(*f.To)
	}
	query += ` ORDER BY event_date, trgid`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []unit.LifecycleEvent
	for rows.Next() {
		var (
			ev    unit.LifecycleEvent
			stage int
		)
		if err := rows.Scan(&ev.ID, &ev.TRGID, &stage, &ev.EventDate,
			&ev.FileUploadID, &ev.BusinessDate, &ev.FiscalWeek, &ev.FiscalDay); err != nil {
			return nil, err
		}
		ev.Stage = unit.Stage(stage)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (p *Postgres) PutFileMetrics(ctx context.Context, fm FileMetrics) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO file_metrics (file_upload_id, rows, warnings, events, gross_sales)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (file_upload_id) DO UPDATE
		SET rows = EXCLUDED.rows,
		    warnings = EXCLUDED.warnings,
		    events = EXCLUDED.events,
		    gross_sales = EXCLUDED.gross_sales`,
		fm.FileUploadID, fm.Rows, fm.Warnings, fm.Events, fm.GrossSales,
	)
	if err != nil {
		return fmt.Errorf("upsert file metrics: %w", err)
	}
	return nil
}

func (p *Postgres) ListFileMetrics(ctx context.Context) ([]FileMetrics, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT file_upload_id, rows, warnings, events, gross_sales
		FROM file_metrics ORDER BY file_upload_id`)
	if err != nil {
		return nil, fmt.Errorf("list file metrics: %w", err)
	}
	defer rows.Close()

	var out []FileMetrics
	for rows.Next() {
		var fm FileMetrics
		var gross string
		if err := rows.Scan(&fm.FileUploadID, &fm.Rows, &fm.Warnings, &fm.Events, &gross); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(gross)
		if err != nil {
			return nil, fmt.Errorf("decode gross sales: %w", err)
		}
		fm.GrossSales = d
		out = append(out, fm)
	}
	return out, rows.Err()
}

// row is the subset of pgx.Row / pgx.Rows used by scanFileUpload.
type row interface {
	Scan(dest ...any) error
}

func scanFileUpload(r row) (*unit.FileUpload, error) {
	var (
		fu       unit.FileUpload
		fileType string
	)
	err := r.Scan(&fu.ID, &fu.Name, &fileType, &fu.BusinessDate, &fu.RowCount, &fu.Processed, &fu.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan file upload: %w", err)
	}
	fu.Type = unit.FileType(fileType)
	return &fu, nil
}
