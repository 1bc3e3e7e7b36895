// Package llmtest provides scripted Client and Embedder fakes.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nizami/nizami-backend/internal/llm"
)

// Reply is one scripted answer. Err wins over Text.
type Reply struct {
	Text string
	Err  error
}

// Fake is a Client whose replies are scripted per request purpose. Replies
// are consumed in order; the last reply of a purpose repeats.
type Fake struct {
	mu       sync.Mutex
	replies  map[string][]Reply
	fallback func(req llm.CompletionRequest) (string, error)
	calls    []llm.CompletionRequest
}

// NewFake creates an empty fake
func NewFake() *Fake {
	return &Fake{replies: make(map[string][]Reply)}
}

// On scripts text replies for purpose
func (f *Fake) On(purpose string, texts ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range texts {
		f.replies[purpose] = append(f.replies[purpose], Reply{Text: t})
	}
	return f
}

// OnJSON scripts a structured reply for purpose
func (f *Fake) OnJSON(purpose string, v any) *Fake {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return f.On(purpose, string(data))
}

// Fail scripts an error for purpose
func (f *Fake) Fail(purpose string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[purpose] = append(f.replies[purpose], Reply{Err: err})
	return f
}

// Default answers every unscripted purpose
func (f *Fake) Default(fn func(req llm.CompletionRequest) (string, error)) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = fn
	return f
}

// Complete implements llm.Client
func (f *Fake) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)

	queue := f.replies[req.Purpose]
	if len(queue) == 0 {
		if f.fallback != nil {
			return f.fallback(req)
		}
		return "", fmt.Errorf("llmtest: no reply scripted for %q", req.Purpose)
	}

	reply := queue[0]
	if len(queue) > 1 {
		f.replies[req.Purpose] = queue[1:]
	}
	return reply.Text, reply.Err
}

// CompleteStructured implements llm.Client
func (f *Fake) CompleteStructured(ctx context.Context, req llm.CompletionRequest, out any) error {
	text, err := f.Complete(ctx, req)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(text), out)
}

// Calls returns every request received so far
func (f *Fake) Calls() []llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.CompletionRequest(nil), f.calls...)
}

// CallsFor returns the requests received for purpose
func (f *Fake) CallsFor(purpose string) []llm.CompletionRequest {
	var out []llm.CompletionRequest
	for _, c := range f.Calls() {
		if c.Purpose == purpose {
			out = append(out, c)
		}
	}
	return out
}

// Embedder maps texts to vectors. Unknown texts get a zero vector of Dim.
type Embedder struct {
	mu      sync.Mutex
	Vectors map[string][]float32
	Dim     int
	Err     error
	calls   int
}

// NewEmbedder creates an embedder with dim-sized default vectors
func NewEmbedder(dim int) *Embedder {
	return &Embedder{Vectors: make(map[string][]float32), Dim: dim}
}

// Embed implements llm.Embedder
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.Err != nil {
		return nil, e.Err
	}
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	return make([]float32, e.Dim), nil
}

// Calls returns how many times Embed was invoked
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
