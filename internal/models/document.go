package models

import "time"

// DocumentStatus tracks the external ingestion job's progress
type DocumentStatus string

const (
	DocumentNew        DocumentStatus = "new"
	DocumentProcessing DocumentStatus = "processing"
	DocumentProcessed  DocumentStatus = "processed"
	DocumentFailed     DocumentStatus = "failed"
)

// ReferenceDocument is an admin-curated legal source. Its description
// embedding is used for coarse document selection only.
type ReferenceDocument struct {
	ID          int64          `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	FileName    *string        `json:"file_name,omitempty" db:"file_name"`
	Status      DocumentStatus `json:"status" db:"status"`
	Language    *string        `json:"language,omitempty" db:"language"`
	Description *string        `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// Chunk is one indexed slice of a reference document
type Chunk struct {
	ID         string  `json:"id"`
	DocumentID int64   `json:"reference_document_id"`
	Language   string  `json:"language"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity,omitempty"`
	Metadata   JSONB   `json:"metadata,omitempty"`
}
