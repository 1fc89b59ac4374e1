package model

import "time"

// DocumentStatus tracks whether an upload finished writing its bytes.
type DocumentStatus string

const (
	// StatusPending marks a reserved part number whose object may not exist yet.
	StatusPending DocumentStatus = "pending"
	// StatusCommitted marks a document whose bytes are stored and retrievable.
	StatusCommitted DocumentStatus = "committed"
)

// Document maps a part number to the stored object holding its file.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID          int64          `json:"id"`
	PartNumber  string         `json:"part_number"`
	FileName    string         `json:"file_name"`
	StorageKey  string         `json:"storage_key"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	Status      DocumentStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
