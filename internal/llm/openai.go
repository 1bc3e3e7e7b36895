package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// OpenAIConfig configures the OpenAI-compatible client
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	EmbeddingModel string
}

// OpenAIClient implements Client and Embedder on top of go-openai
type OpenAIClient struct {
	client         *openai.Client
	embeddingModel string
}

// NewOpenAIClient creates a client. Every call carries cfg.Timeout and is
// never retried.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(clientConfig),
		embeddingModel: cfg.EmbeddingModel,
	}
}

// Complete sends a chat completion request
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, buildChatRequest(req))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return firstContent(resp)
}

// CompleteStructured sends a chat completion request constrained to the
// JSON schema generated from out
func (c *OpenAIClient) CompleteStructured(ctx context.Context, req CompletionRequest, out any) error {
	schema, err := jsonschema.GenerateSchemaForType(out)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	name := req.SchemaName
	if name == "" {
		name = req.Purpose
	}
	if name == "" {
		name = "response"
	}

	chatReq := buildChatRequest(req)
	chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: schema,
			Strict: true,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return fmt.Errorf("structured completion failed: %w", err)
	}

	content, err := firstContent(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to decode structured response: %w", err)
	}
	return nil
}

// Embed returns the embedding vector of text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Data[0].Embedding, nil
}

func buildChatRequest(req CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:           req.Model,
		Messages:        messages,
		ReasoningEffort: req.ReasoningEffort,
	}
	if req.Temperature != nil {
		chatReq.Temperature = *req.Temperature
	}
	return chatReq
}

func firstContent(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// MarshalRequest serializes a request for exchange logs
func MarshalRequest(req CompletionRequest) json.RawMessage {
	data, err := json.Marshal(req)
	if err != nil {
		return nil
	}
	return data
}
