package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/db"
)

// Exchange is the raw request and response of an answer generation
type Exchange struct {
	Request         any     `json:"request"`
	Response        string  `json:"response"`
	SourceDocuments []int64 `json:"source_documents"`
}

// ExchangeSink appends exchanges to the log tier
type ExchangeSink interface {
	Write(ctx context.Context, messageID int64, exchange Exchange) error
}

// PgxSink writes exchanges to the message_logs table of the logs database
type PgxSink struct {
	db *db.Database
}

// NewPgxSink creates a sink over the logs database
func NewPgxSink(database *db.Database) *PgxSink {
	return &PgxSink{db: database}
}

// Write implements ExchangeSink
func (s *PgxSink) Write(ctx context.Context, messageID int64, exchange Exchange) error {
	payload, err := json.Marshal(exchange)
	if err != nil {
		return fmt.Errorf("failed to encode exchange: %w", err)
	}
	if _, err := s.db.Pool.Exec(ctx,
		`INSERT INTO message_logs (message_id, response) VALUES ($1, $2)`,
		messageID, payload,
	); err != nil {
		return fmt.Errorf("failed to write message log: %w", err)
	}
	return nil
}

// LogrusSink writes exchanges as structured log entries. Used when no logs
// database is configured.
type LogrusSink struct {
	logger logrus.FieldLogger
}

// NewLogrusSink creates a sink over logger
func NewLogrusSink(logger logrus.FieldLogger) *LogrusSink {
	return &LogrusSink{logger: logger}
}

// Write implements ExchangeSink
func (s *LogrusSink) Write(ctx context.Context, messageID int64, exchange Exchange) error {
	s.logger.WithFields(logrus.Fields{
		"message_id":       messageID,
		"source_documents": exchange.SourceDocuments,
		"response":         exchange.Response,
	}).Info("LLM exchange")
	return nil
}

// MemorySink keeps exchanges in memory
type MemorySink struct {
	mu      sync.Mutex
	entries map[int64][]Exchange
}

// NewMemorySink creates an empty sink
func NewMemorySink() *MemorySink {
	return &MemorySink{entries: make(map[int64][]Exchange)}
}

// Write implements ExchangeSink
func (s *MemorySink) Write(ctx context.Context, messageID int64, exchange Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[messageID] = append(s.entries[messageID], exchange)
	return nil
}

// For returns the exchanges written for messageID
func (s *MemorySink) For(messageID int64) []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exchange(nil), s.entries[messageID]...)
}
