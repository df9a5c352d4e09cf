package ingest

import (
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Phase indicates the current stage of an ingestion.
type Phase string

const (
	PhaseStarting    Phase = "starting"
	PhaseReading     Phase = "reading"
	PhaseReconciling Phase = "reconciling"
	PhaseComplete    Phase = "complete"
	PhaseFailed      Phase = "failed"
	PhaseCancelled   Phase = "cancelled"
)

// Progress is the advisory per-batch progress snapshot pushed to
// subscribers. It has no effect on correctness.
type Progress struct {
	IngestionID   string        `json:"ingestionId"`
	FileName      string        `json:"fileName"`
	FileType      unit.FileType `json:"fileType"`
	Phase         Phase         `json:"phase"`
	RowsProcessed int           `json:"rowsProcessed"`
	Percent       int           `json:"percent"`
	Inserted      int           `json:"inserted"`
	Updated       int           `json:"updated"`
	Events        int           `json:"events"`
	Warnings      int           `json:"warnings"`
	Error         string        `json:"error,omitempty"`
}

// Result is the final outcome of one ingestion. Partial success is
// reported, not hidden: Warnings counts defaulted/skipped rows and Error
// carries the first fatal error, if any.
type Result struct {
	IngestionID  string          `json:"ingestionId"`
	FileUploadID uuid.UUID       `json:"fileUploadId"`
	FileName     string          `json:"fileName"`
	FileType     unit.FileType   `json:"fileType"`
	BusinessDate time.Time       `json:"businessDate"`
	TotalRows    int             `json:"totalRows"`
	Inserted     int             `json:"inserted"`
	Updated      int             `json:"updated"`
	Events       int             `json:"events"`
	Warnings     int             `json:"warnings"`
	GrossSales   decimal.Decimal `json:"grossSales"`
	Duration     time.Duration   `json:"duration"`
	Error        string          `json:"error,omitempty"`
}
