package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is a brute-force Index used by tests and as the in-process
// double when no Qdrant cluster is reachable. It is never the production
// backend.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs map[string]Document
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex returns an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]Document)}
}

func (m *MemoryIndex) Upsert(_ context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range docs {
		m.docs[d.ID] = d
	}
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, embedding []float32, limit int, filter Filter) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]SearchHit, 0, len(m.docs))
	for _, d := range m.docs {
		if !matchesFilter(d, filter) {
			continue
		}
		hits = append(hits, SearchHit{
			ID:      d.ID,
			Score:   cosineSimilarity(embedding, d.Embedding),
			Payload: d.Payload,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *MemoryIndex) FetchAll(_ context.Context, filter Filter, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 1000
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		if !matchesFilter(d, filter) {
			continue
		}
		out = append(out, d)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryIndex) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.docs, id)
	}
	return nil
}

func (m *MemoryIndex) Close() error { return nil }

func matchesFilter(d Document, f Filter) bool {
	if f.User != "" {
		if u, _ := d.Payload["user"].(string); u != f.User {
			return false
		}
	}
	if f.DocType != "" {
		dt, _ := d.Payload["docType"].(string)
		if dt == "" {
			dt = string(DocTypeThought)
		}
		if dt != string(f.DocType) {
			return false
		}
	}
	if f.CreatedAtFromEpochMs > 0 {
		epoch, ok := asInt64(d.Payload["created_at_epoch"])
		if !ok || epoch < f.CreatedAtFromEpochMs {
			return false
		}
	}
	for _, tag := range f.Tags {
		if !containsTag(d.Payload["tags"], tag) {
			return false
		}
	}
	return true
}

func containsTag(v any, tag string) bool {
	tags, ok := v.([]string)
	if !ok {
		return false
	}
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
