package llm

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// InstrumentedClient wraps a Client and Embedder with logging, metrics and
// a per-model circuit breaker
type InstrumentedClient struct {
	client   Client
	embedder Embedder
	breaker  *CircuitBreaker
	logger   logrus.FieldLogger
	embedTag string
}

// NewInstrumentedClient wraps client. embedder may be nil. breaker may be nil
// to disable fail-fast behaviour.
func NewInstrumentedClient(client Client, embedder Embedder, embeddingModel string, breaker *CircuitBreaker, logger logrus.FieldLogger) *InstrumentedClient {
	return &InstrumentedClient{
		client:   client,
		embedder: embedder,
		breaker:  breaker,
		logger:   logger,
		embedTag: embeddingModel,
	}
}

// Complete implements Client
func (c *InstrumentedClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var out string
	err := c.observe(req.Purpose, req.Model, func() error {
		var err error
		out, err = c.client.Complete(ctx, req)
		return err
	})
	return out, err
}

// CompleteStructured implements Client
func (c *InstrumentedClient) CompleteStructured(ctx context.Context, req CompletionRequest, out any) error {
	return c.observe(req.Purpose, req.Model, func() error {
		return c.client.CompleteStructured(ctx, req, out)
	})
}

// Embed implements Embedder
func (c *InstrumentedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := c.observe("embedding", c.embedTag, func() error {
		var err error
		out, err = c.embedder.Embed(ctx, text)
		return err
	})
	return out, err
}

func (c *InstrumentedClient) observe(purpose, model string, fn func() error) error {
	start := time.Now()

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(model, fn)
	} else {
		err = fn()
	}

	latency := time.Since(start)
	recordRequest(purpose, model, err, latency)

	entry := c.logger.WithFields(logrus.Fields{
		"purpose":    purpose,
		"model":      model,
		"latency_ms": latency.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("LLM request failed")
	} else {
		entry.Debug("LLM request completed")
	}
	return err
}
