package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nizami/nizami-backend/internal/models"
)

// QdrantConfig configures QdrantStore
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantStore searches a Qdrant collection whose points carry
// reference_document_id, language and page_content payload fields
type QdrantStore struct {
	config     QdrantConfig
	httpClient *http.Client
	baseURL    string
}

// NewQdrantStore creates a store over the Qdrant REST API
func NewQdrantStore(config QdrantConfig) *QdrantStore {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &QdrantStore{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    strings.TrimRight(config.URL, "/"),
	}
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// SearchFiltered restricts the search to points of documentIDs
func (q *QdrantStore) SearchFiltered(ctx context.Context, embedding []float32, documentIDs []int64, k int) ([]models.Chunk, error) {
	filter := map[string]any{
		"must": []map[string]any{
			{
				"key":   "reference_document_id",
				"match": map[string]any{"any": documentIDs},
			},
		},
	}
	return q.search(ctx, embedding, k, filter)
}

// SearchGlobal searches the whole collection
func (q *QdrantStore) SearchGlobal(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error) {
	return q.search(ctx, embedding, k, nil)
}

func (q *QdrantStore) search(ctx context.Context, embedding []float32, limit int, filter map[string]any) ([]models.Chunk, error) {
	url := fmt.Sprintf("%s/collections/%s/points/search", q.baseURL, q.config.Collection)

	payload := map[string]any{
		"vector":       embedding,
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil {
		payload["filter"] = filter
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.config.APIKey != "" {
		req.Header.Set("api-key", q.config.APIKey)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant search failed (%d): %s", resp.StatusCode, body)
	}

	var searchResp struct {
		Result []qdrantPoint `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode qdrant response: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(searchResp.Result))
	for _, p := range searchResp.Result {
		chunks = append(chunks, p.chunk())
	}
	return chunks, nil
}

func (p qdrantPoint) chunk() models.Chunk {
	c := models.Chunk{
		ID:         strings.Trim(string(p.ID), `"`),
		Similarity: p.Score,
		Metadata:   models.JSONB(p.Payload),
	}
	if id, ok := p.Payload["reference_document_id"].(float64); ok {
		c.DocumentID = int64(id)
	}
	if lang, ok := p.Payload["language"].(string); ok {
		c.Language = lang
	}
	if text, ok := p.Payload["page_content"].(string); ok {
		c.Text = text
	} else if text, ok := p.Payload["document"].(string); ok {
		c.Text = text
	}
	return c
}
