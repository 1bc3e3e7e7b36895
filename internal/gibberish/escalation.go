package gibberish

import (
	"context"
	"fmt"
	"time"

	"github.com/nizami/nizami-backend/internal/llm"
	"github.com/nizami/nizami-backend/internal/prompts"
)

// LLMEscalator asks a chat model for a second opinion on suspicious input
type LLMEscalator struct {
	client  llm.Client
	prompts prompts.Renderer
	model   llm.ModelOptions
	timeout time.Duration
}

// NewLLMEscalator creates an escalator. A zero timeout means 10 seconds.
func NewLLMEscalator(client llm.Client, renderer prompts.Renderer, model llm.ModelOptions, timeout time.Duration) *LLMEscalator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLMEscalator{client: client, prompts: renderer, model: model, timeout: timeout}
}

// Judge implements Escalator
func (e *LLMEscalator) Judge(ctx context.Context, text string) (*Judgment, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	system, err := e.prompts.Render(prompts.GibberishClassifier, nil)
	if err != nil {
		return nil, err
	}

	var judgment Judgment
	req := e.model.Request(prompts.GibberishClassifier,
		llm.System(system),
		llm.User("Classify this text: "+text),
	)
	if err := e.client.CompleteStructured(ctx, req, &judgment); err != nil {
		return nil, fmt.Errorf("gibberish escalation: %w", err)
	}
	return &judgment, nil
}
