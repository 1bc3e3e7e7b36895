package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/repository/memory"
)

// MemoryStore is a brute-force in-memory chunk store
type MemoryStore struct {
	mu      sync.RWMutex
	entries []memoryEntry
	// FilterErr, when set, is returned by SearchFiltered
	FilterErr error
	filtered  int
	global    int
}

type memoryEntry struct {
	chunk     models.Chunk
	embedding []float32
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add indexes a chunk
func (m *MemoryStore) Add(chunk models.Chunk, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, memoryEntry{chunk: chunk, embedding: embedding})
}

// SearchFiltered implements the retriever's chunk store
func (m *MemoryStore) SearchFiltered(ctx context.Context, embedding []float32, documentIDs []int64, k int) ([]models.Chunk, error) {
	m.mu.Lock()
	m.filtered++
	m.mu.Unlock()

	if m.FilterErr != nil {
		return nil, m.FilterErr
	}
	allowed := make(map[int64]struct{}, len(documentIDs))
	for _, id := range documentIDs {
		allowed[id] = struct{}{}
	}
	return m.rank(embedding, k, func(c models.Chunk) bool {
		_, ok := allowed[c.DocumentID]
		return ok
	}), nil
}

// SearchGlobal implements the retriever's chunk store
func (m *MemoryStore) SearchGlobal(ctx context.Context, embedding []float32, k int) ([]models.Chunk, error) {
	m.mu.Lock()
	m.global++
	m.mu.Unlock()
	return m.rank(embedding, k, func(models.Chunk) bool { return true }), nil
}

// Searches returns how many filtered and global searches ran
func (m *MemoryStore) Searches() (filtered, global int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filtered, m.global
}

func (m *MemoryStore) rank(embedding []float32, k int, keep func(models.Chunk) bool) []models.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		chunk    models.Chunk
		distance float64
	}
	var candidates []scored
	for _, e := range m.entries {
		if !keep(e.chunk) {
			continue
		}
		candidates = append(candidates, scored{chunk: e.chunk, distance: memory.CosineDistance(embedding, e.embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	out := make([]models.Chunk, len(candidates))
	for i, c := range candidates {
		out[i] = c.chunk
		out[i].Similarity = 1 - c.distance
	}
	return out
}
