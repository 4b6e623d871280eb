// Package lexical is the BM25-ish half of hybrid retrieval. No
// BM25 library exists anywhere in the example pack, so this reuses the
// service's own gorm/Postgres connection: a generated tsvector column over
// a thought's text/summary/tags, weighted A/B/C and ranked with ts_rank,
// with per-field weights {text x2, summary x1.5, tags x1}.
package lexical

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/kart-io/thoughtweave/internal/model"
)

// Hit is one lexical match against a user's thoughts.
type Hit struct {
	ID               string
	Score            float64
	CreatedAtEpochMs int64
}

// Filter narrows a lexical search the same way vectorstore.Filter narrows
// a k-NN one.
type Filter struct {
	User                 string
	Tags                 []string
	CreatedAtFromEpochMs int64
}

// Index is the lexical-search surface the retrieval engine depends on. It
// only ever covers thought documents: conversation content is encrypted at
// rest and has no plaintext column to index (conversations participate in
// hybrid retrieval through the vector index alone).
type Index interface {
	Search(ctx context.Context, query string, filter Filter, limit int) ([]Hit, error)
}

// PGIndex implements Index against Postgres's tsvector/ts_rank machinery.
// EnsureSchema must be called once (normally from the server bootstrap,
// after Factory.AutoMigrate) to create the generated column and its GIN
// index; Search assumes they already exist.
type PGIndex struct {
	db *gorm.DB
}

var _ Index = (*PGIndex)(nil)

// NewPGIndex wraps an already-open gorm/Postgres connection.
func NewPGIndex(db *gorm.DB) *PGIndex {
	return &PGIndex{db: db}
}

// EnsureSchema adds the generated tsvector column and its GIN index to the
// thoughts table if they don't already exist. Safe to call on every
// startup. Postgres-only: gorm's AutoMigrate has no concept of generated
// columns, so this is raw SQL, the one stdlib-adjacent piece of the
// retrieval stack.
func (p *PGIndex) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`ALTER TABLE thoughts ADD COLUMN IF NOT EXISTS search_vector tsvector
			GENERATED ALWAYS AS (
				setweight(to_tsvector('english', coalesce(text, '')), 'A') ||
				setweight(to_tsvector('english', coalesce(summary, '')), 'B') ||
				setweight(to_tsvector('english', coalesce(tags::text, '')), 'C')
			) STORED`,
		`CREATE INDEX IF NOT EXISTS idx_thoughts_search_vector ON thoughts USING GIN (search_vector)`,
	}
	for _, stmt := range stmts {
		if err := p.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("lexical: ensure schema: %w", err)
		}
	}
	return nil
}

// Search ranks thoughts via ts_rank against a websearch_to_tsquery built
// from query. websearch_to_tsquery tolerates loose natural-language input
// (quotes, "or", "-exclude"),
// though it is stemming-based rather than edit-distance fuzzy — the
// closest approximation Postgres full-text search offers.
func (p *PGIndex) Search(ctx context.Context, query string, filter Filter, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 100
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	q := p.db.WithContext(ctx).Table("thoughts").
		Select("id, created_at_epoch_ms, ts_rank(search_vector, websearch_to_tsquery('english', ?)) AS score", query).
		Where("owner = ? AND deleted_at IS NULL", filter.User).
		Where("search_vector @@ websearch_to_tsquery('english', ?)", query)
	if filter.CreatedAtFromEpochMs > 0 {
		q = q.Where("created_at_epoch_ms >= ?", filter.CreatedAtFromEpochMs)
	}
	for _, tag := range filter.Tags {
		q = q.Where("tags LIKE ?", "%\""+tag+"\"%")
	}

	var rows []struct {
		ID               string
		CreatedAtEpochMs int64
		Score            float64
	}
	if err := q.Order("score DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("lexical: search: %w", err)
	}

	hits := make([]Hit, len(rows))
	for i, r := range rows {
		hits[i] = Hit{ID: r.ID, Score: r.Score, CreatedAtEpochMs: r.CreatedAtEpochMs}
	}
	return hits, nil
}

// MemoryIndex is a driver-agnostic term-frequency scorer used by package
// tests (sqlite has no tsvector support) and as the in-process double for
// any environment without a live Postgres connection. It approximates
// the same field weights with simple weighted substring counting rather
// than true BM25.
type MemoryIndex struct {
	docs map[string]memDoc
}

type memDoc struct {
	user             string
	text             string
	summary          string
	tags             model.StringSet
	createdAtEpochMs int64
}

// NewMemoryIndex returns an empty in-memory lexical index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docs: make(map[string]memDoc)}
}

// Put (re)indexes a thought's plaintext fields. Called whenever a thought
// is captured or re-indexed so the memory double tracks the same content
// the production tsvector column would.
func (m *MemoryIndex) Put(id, user, text, summary string, tags model.StringSet, createdAtEpochMs int64) {
	m.docs[id] = memDoc{user: user, text: text, summary: summary, tags: tags, createdAtEpochMs: createdAtEpochMs}
}

var _ Index = (*MemoryIndex)(nil)

func (m *MemoryIndex) Search(_ context.Context, query string, filter Filter, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 100
	}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var hits []Hit
	for id, d := range m.docs {
		if d.user != filter.User {
			continue
		}
		if filter.CreatedAtFromEpochMs > 0 && d.createdAtEpochMs < filter.CreatedAtFromEpochMs {
			continue
		}
		ok := true
		for _, tag := range filter.Tags {
			if !d.tags.Contains(tag) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		score := weightedTermScore(terms, strings.ToLower(d.text), 2.0) +
			weightedTermScore(terms, strings.ToLower(d.summary), 1.5) +
			weightedTermScore(terms, strings.ToLower(strings.Join(d.tags, " ")), 1.0)
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{ID: id, Score: score, CreatedAtEpochMs: d.createdAtEpochMs})
	}

	sortHitsDescending(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func weightedTermScore(terms []string, field string, weight float64) float64 {
	if field == "" {
		return 0
	}
	var score float64
	for _, t := range terms {
		score += float64(strings.Count(field, t)) * weight
	}
	return score
}

func sortHitsDescending(hits []Hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
