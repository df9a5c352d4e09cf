package unit

import (
	"time"

	"github.com/google/uuid"
)

// FileType classifies an export file by its content.
type FileType string

const (
	FileSales      FileType = "Sales"
	FileInbound    FileType = "Inbound"
	FileOutbound   FileType = "Outbound"
	FileInventory  FileType = "Inventory"
	FileMonthly    FileType = "Monthly"
	FileProduction FileType = "Production"
	FileUnknown    FileType = "Unknown"
)

// FileUpload identifies one ingestion run. It is created when ingestion
// starts and updated (RowCount, Processed) when ingestion completes; the
// reconciler itself never mutates it.
type FileUpload struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Type         FileType  `json:"type"`
	BusinessDate time.Time `json:"businessDate"`
	RowCount     int       `json:"rowCount"`
	Processed    bool      `json:"processed"`
	CreatedAt    time.Time `json:"createdAt"`
}
