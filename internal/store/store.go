// Package store defines the persistence contract for the reconciliation
// engine and provides two implementations: an in-memory store (tests and
// standalone runs) and a PostgreSQL store over pgx.
//
// The contract mirrors what the engine needs and nothing more: upsert of
// canonical unit rows by trgid, append-only insert of lifecycle events with
// duplicate suppression on (trgid, stage, file upload), filtered bulk reads
// for aggregation, and cascade delete of a file upload's events and derived
// metrics. Canonical unit rows are never deleted by a file-upload cascade,
// since they may still be backed by other files.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// UnitFilter selects canonical unit rows for bulk reads. Nil fields are
// ignored. The date range applies to the order-closed date.
type UnitFilter struct {
	Stage    *unit.Stage
	WeekFrom *int
	WeekTo   *int
	From     *time.Time
	To       *time.Time
}

// EventFilter selects lifecycle events. Zero/nil fields are ignored. The
// date range applies to the event date.
type EventFilter struct {
	TRGID        string
	Stage        *unit.Stage
	FileUploadID *uuid.UUID
	From         *time.Time
	To           *time.Time
}

// FileMetrics is the per-file derived summary recorded when ingestion of a
// file completes. Deleting the file upload removes it.
type FileMetrics struct {
	FileUploadID uuid.UUID       `json:"fileUploadId"`
	Rows         int             `json:"rows"`
	Warnings     int             `json:"warnings"`
	Events       int             `json:"events"`
	GrossSales   decimal.Decimal `json:"grossSales"`
}

// BatchStore is the store view available inside WithBatch: the
// canonical-merge operations of one batch, which must commit together or
// not at all.
type BatchStore interface {
	GetUnit(ctx context.Context, trgid string) (*unit.UnitRecord, error)
	PutUnit(ctx context.Context, rec *unit.UnitRecord) error
	AppendEvent(ctx context.Context, ev *unit.LifecycleEvent) (bool, error)
}

// Store is the persistence contract. Only the reconciler writes canonical
// rows and events; the aggregator reads.
type Store interface {
	// WithBatch runs fn against a transactional view. The mutations fn
	// makes through the view become visible only when fn returns nil; any
	// error discards the whole batch.
	WithBatch(ctx context.Context, fn func(BatchStore) error) error

	// File uploads.
	CreateFileUpload(ctx context.Context, fu *unit.FileUpload) error
	UpdateFileUpload(ctx context.Context, fu *unit.FileUpload) error
	GetFileUpload(ctx context.Context, id uuid.UUID) (*unit.FileUpload, error)
	ListFileUploads(ctx context.Context) ([]unit.FileUpload, error)

	// DeleteFileUpload removes the upload, its lifecycle events, and its
	// derived metrics. Canonical unit rows are left in place.
	DeleteFileUpload(ctx context.Context, id uuid.UUID) error

	// Canonical unit rows.
	GetUnit(ctx context.Context, trgid string) (*unit.UnitRecord, error)
	PutUnit(ctx context.Context, rec *unit.UnitRecord) error
	ListUnits(ctx context.Context, f UnitFilter) ([]unit.UnitRecord, error)
	CountUnits(ctx context.Context) (int, error)

	// Lifecycle events. AppendEvent reports false when an event for the
	// same (trgid, stage, file upload) triple already exists.
	AppendEvent(ctx context.Context, ev *unit.LifecycleEvent) (bool, error)
	ListEvents(ctx context.Context, f EventFilter) ([]unit.LifecycleEvent, error)

	// Derived per-file metrics.
	PutFileMetrics(ctx context.Context, fm FileMetrics) error
	ListFileMetrics(ctx context.Context) ([]FileMetrics, error)
}

// matchUnit applies a UnitFilter to a canonical record.
func matchUnit(rec *unit.UnitRecord, f UnitFilter) bool {
	if f.Stage != nil && rec.Stage != *f.Stage {
		return false
	}
	if f.WeekFrom != nil || f.WeekTo != nil {
		week, ok := rec.FiscalWeek.Get()
		if !ok {
			return false
		}
		if f.WeekFrom != nil && week < *f.WeekFrom {
			return false
		}
		if f.WeekTo != nil && week > *f.WeekTo {
			return false
		}
	}
	if f.From != nil || f.To != nil {
		closed, ok := rec.OrderClosedOn.Get()
		if !ok {
			return false
		}
		if f.From != nil && closed.Before(*f.From) {
			return false
		}
		if f.To != nil && closed.After(*f.To) {
			return false
		}
	}
	return true
}

// matchEvent applies an EventFilter to a lifecycle event.
func matchEvent(ev *unit.LifecycleEvent, f EventFilter) bool {
	if f.TRGID != "" && ev.TRGID != f.TRGID {
		return false
	}
	if f.Stage != nil && ev.Stage != *f.Stage {
		return false
	}
	if f.FileUploadID != nil && ev.FileUploadID != *f.FileUploadID {
		return false
	}
	if f.From != nil && ev.EventDate.Before(*f.From) {
		return false
	}
	if f.To != nil && ev.EventDate.After(*f.To) {
		return false
	}
	return true
}
