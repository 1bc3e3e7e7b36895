package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the provider answers without content
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Reasoning effort hints
const (
	EffortMinimal = "minimal"
	EffortLow     = "low"
	EffortMedium  = "medium"
)

// Message is one chat-completion message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system message
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant message
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// CompletionRequest is the single shape every call site uses. Call sites
// vary only the data: model, messages, temperature or effort hint.
type CompletionRequest struct {
	// Purpose names the call site (router, summary, legal_answer, ...). It
	// labels metrics and logs and lets test fakes script replies.
	Purpose         string    `json:"purpose"`
	Model           string    `json:"model"`
	Messages        []Message `json:"messages"`
	Temperature     *float32  `json:"temperature,omitempty"`
	ReasoningEffort string    `json:"reasoning_effort,omitempty"`
	// SchemaName names the structured output schema. Defaults to Purpose.
	SchemaName string `json:"schema_name,omitempty"`
}

// Client is the chat-completion service
type Client interface {
	// Complete returns the text of the first choice
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// CompleteStructured constrains the reply to the JSON schema of out and
	// decodes it into out, which must be a pointer to a struct
	CompleteStructured(ctx context.Context, req CompletionRequest, out any) error
}

// Embedder is the embedding service
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Float32 returns a pointer to v, for CompletionRequest.Temperature
func Float32(v float32) *float32 { return &v }

// ModelOptions is the per call-site model selection
type ModelOptions struct {
	Name            string
	ReasoningEffort string
	Temperature     *float32
}

// Request builds a CompletionRequest for this model
func (o ModelOptions) Request(purpose string, messages ...Message) CompletionRequest {
	return CompletionRequest{
		Purpose:         purpose,
		Model:           o.Name,
		Messages:        messages,
		Temperature:     o.Temperature,
		ReasoningEffort: o.ReasoningEffort,
	}
}
