package models

import (
	"encoding/json"
	"time"
)

// StepLog is the append-only telemetry row written for every pipeline step
type StepLog struct {
	ID        int64           `json:"id" db:"id"`
	MessageID *int64          `json:"message_id,omitempty" db:"message_id"`
	StepName  string          `json:"step_name" db:"step_name"`
	Input     json.RawMessage `json:"input,omitempty" db:"input"`
	Output    json.RawMessage `json:"output,omitempty" db:"output"`
	TimeSec   float64         `json:"time_sec" db:"time_sec"`
	Error     bool            `json:"error" db:"error"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// MessageLog is a raw LLM exchange kept in the logs database
type MessageLog struct {
	ID        int64           `json:"id" db:"id"`
	MessageID int64           `json:"message_id" db:"message_id"`
	Response  json.RawMessage `json:"response" db:"response"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Prompt is a named prompt override stored in the database
type Prompt struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Value       string    `json:"value" db:"value"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
