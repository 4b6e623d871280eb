// Package retrieval implements the hybrid search engine: query
// preparation, a BM25+k-NN union fused by reciprocal rank fusion, a score
// formula blending search/recency/decisionScore, and optional LLM
// query-rewrite/HyDE enhancement.
package retrieval

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/thoughtweave/internal/lexical"
	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/vectorstore"
	"github.com/kart-io/thoughtweave/pkg/llm"
)

// rrfK is the reciprocal-rank-fusion smoothing constant, matching
// enhancer.MergeEmbeddingResults.
const rrfK = 60.0

const (
	defaultThoughtLimit      = 25
	defaultConversationLimit = 3
	searchWeight             = 0.40
	recencyWeight            = 0.15
	decisionWeight           = 0.05
	recencyHorizon           = 365 * 24 * time.Hour
)

// hashtagPattern pulls #word tokens out of a query for tag-filter
// augmentation during query preparation.
var hashtagPattern = regexp.MustCompile(`#([A-Za-z0-9_-]{1,50})`)

// synonyms is a small fixed expansion table. Expanded
// terms widen the lexical query only; the original text is kept verbatim
// for embedding and for diagnostics.
var synonyms = map[string][]string{
	"why":     {"reason", "rationale", "because", "decision", "chose"},
	"bug":     {"error", "issue", "problem", "broken", "fix"},
	"decide":  {"decision", "chose", "rationale", "why"},
	"todo":    {"task", "pending", "action-item"},
	"learn":   {"learning", "tutorial", "course", "study"},
	"meeting": {"standup", "sync", "discussion", "call"},
}

var timeHints = []string{"yesterday", "today", "this week", "last week", "last month"}

// TimeWindow bounds a search by creation epoch. A zero value means no
// lower bound.
type TimeWindow struct {
	FromEpochMs int64
	ToEpochMs   int64
}

// Filter narrows retrieval to one user's documents.
type Filter struct {
	User       string
	Tags       []string
	TimeWindow *TimeWindow
}

// Hit is one ranked retrieval result, carrying enough of the vector
// payload for the synthesizer and HTTP layer to render it without a
// second fetch.
type Hit struct {
	ID               string
	DocType          vectorstore.DocType
	Score            float64 // fused final score
	CreatedAtEpochMs int64
	DecisionScore    float64
	Text             string
	Summary          string
	Tags             model.StringSet
	Kind             model.Kind
	Title            string // conversation-only
}

// Result holds the two interleaved result lists, one per document type.
type Result struct {
	Thoughts      []Hit
	Conversations []Hit
	Degraded      bool // true if the hybrid path fell back to lexical-only
}

// Config tunes the engine beyond its defaults; the rewrite/HyDE fields
// are optional enhancements gated off by default, leaving plain
// synonym-expansion-only preparation as the default behavior.
type Config struct {
	ThoughtLimit       int
	ConversationLimit  int
	EnableQueryRewrite bool
	EnableHyDE         bool
}

// Engine is the hybrid retrieval engine. All collaborators are
// constructor-injected; Lexical/Vectors/Chat may independently fail per
// request without the engine itself erroring; a dead backend degrades
// the result, never fails the call.
type Engine struct {
	Lexical  lexical.Index
	Vectors  vectorstore.Index
	Embedder llm.EmbeddingProvider
	Chat     llm.ChatProvider // optional: query rewrite / HyDE only
	Config   Config
}

// NewEngine wires an Engine, applying default limits where unset.
func NewEngine(lex lexical.Index, vectors vectorstore.Index, embedder llm.EmbeddingProvider, chat llm.ChatProvider, cfg Config) *Engine {
	if cfg.ThoughtLimit <= 0 {
		cfg.ThoughtLimit = defaultThoughtLimit
	}
	if cfg.ConversationLimit <= 0 {
		cfg.ConversationLimit = defaultConversationLimit
	}
	return &Engine{Lexical: lex, Vectors: vectors, Embedder: embedder, Chat: chat, Config: cfg}
}

// Retrieve runs query preparation, hybrid search, fusion, and scoring.
// It never returns an error: a completely failed search is an empty
// Result — the synthesizer must handle
// emptiness, not a propagated error.
func (e *Engine) Retrieve(ctx context.Context, query string, filter Filter) Result {
	prepared := e.prepareQuery(ctx, query, filter)

	thoughtHits, degraded := e.searchDocType(ctx, prepared, filter, vectorstore.DocTypeThought, e.Config.ThoughtLimit)
	convHits, _ := e.searchDocType(ctx, prepared, filter, vectorstore.DocTypeConversation, e.Config.ConversationLimit)

	return Result{Thoughts: thoughtHits, Conversations: convHits, Degraded: degraded}
}

// preparedQuery carries the outputs of query preparation.
type preparedQuery struct {
	original      string
	lexicalQuery  string
	embedding     []float32
	extraTags     []string
	detectedHints []string
}

func (e *Engine) prepareQuery(ctx context.Context, query string, filter Filter) preparedQuery {
	p := preparedQuery{original: query}

	for _, m := range hashtagPattern.FindAllStringSubmatch(query, -1) {
		p.extraTags = append(p.extraTags, m[1])
	}

	lower := strings.ToLower(query)
	for _, hint := range timeHints {
		if strings.Contains(lower, hint) {
			p.detectedHints = append(p.detectedHints, hint)
		}
	}

	expanded := []string{query}
	for _, word := range strings.Fields(lower) {
		word = strings.Trim(word, ".,!?;:")
		if syns, ok := synonyms[word]; ok {
			expanded = append(expanded, syns...)
		}
	}
	p.lexicalQuery = strings.Join(expanded, " ")

	embedInput := query
	if e.Config.EnableQueryRewrite && e.Chat != nil {
		if rewritten, err := e.Chat.Generate(ctx, "Rewrite this search query to be more specific and retrieval-friendly, respond with only the rewritten query:\n\n"+query, ""); err == nil && strings.TrimSpace(rewritten) != "" {
			embedInput = rewritten
		}
	}

	if e.Embedder != nil {
		embedding, err := e.Embedder.EmbedSingle(ctx, embedInput)
		if err != nil {
			logger.Warnw("retrieval: embed query failed", "error", err.Error())
		} else {
			p.embedding = embedding
			if e.Config.EnableHyDE && e.Chat != nil {
				if hyde, err := e.Chat.Generate(ctx, "Write a short hypothetical note that would answer this query, for embedding purposes only:\n\n"+query, ""); err == nil && strings.TrimSpace(hyde) != "" {
					if hydeEmbedding, err := e.Embedder.EmbedSingle(ctx, hyde); err == nil {
						p.embedding = averageVectors(p.embedding, hydeEmbedding)
					}
				}
			}
		}
	}

	return p
}

func (e *Engine) searchDocType(ctx context.Context, p preparedQuery, filter Filter, docType vectorstore.DocType, limit int) ([]Hit, bool) {
	var fromEpoch int64
	if filter.TimeWindow != nil {
		fromEpoch = filter.TimeWindow.FromEpochMs
	}
	tags := append(append([]string{}, filter.Tags...), p.extraTags...)

	var lexHits []lexical.Hit
	var lexErr error
	if e.Lexical != nil && docType == vectorstore.DocTypeThought {
		lexHits, lexErr = e.Lexical.Search(ctx, p.lexicalQuery, lexical.Filter{User: filter.User, Tags: tags, CreatedAtFromEpochMs: fromEpoch}, 100)
		if lexErr != nil {
			logger.Warnw("retrieval: lexical search failed", "error", lexErr.Error())
		}
	}

	var vecHits []vectorstore.SearchHit
	var vecErr error
	if e.Vectors != nil && len(p.embedding) > 0 {
		vecHits, vecErr = e.Vectors.Search(ctx, p.embedding, 50, vectorstore.Filter{User: filter.User, DocType: docType, Tags: tags, CreatedAtFromEpochMs: fromEpoch})
		if vecErr != nil {
			logger.Warnw("retrieval: vector search failed", "docType", docType, "error", vecErr.Error())
		}
	}

	degraded := vecErr != nil || (e.Vectors == nil && docType == vectorstore.DocTypeThought)
	fused := fuse(lexHits, vecHits)
	hits := make([]Hit, 0, len(fused))
	for id, rrf := range fused {
		h := toHit(id, docType, rrf.payload, rrf.createdAtEpochMs)
		hits = append(hits, h)
		hits[len(hits)-1].Score = rrf.score // temporarily store raw rrf score; normalized below
	}

	normalizeSearchScores(hits)
	now := time.Now()
	for i := range hits {
		recency := recencyScore(hits[i].CreatedAtEpochMs, now)
		hits[i].Score = searchWeight*hits[i].Score + recencyWeight*recency + decisionWeight*hits[i].DecisionScore
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].CreatedAtEpochMs != hits[j].CreatedAtEpochMs {
			return hits[i].CreatedAtEpochMs > hits[j].CreatedAtEpochMs
		}
		return hits[i].ID > hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, degraded
}

type fusedEntry struct {
	score            float64
	payload          map[string]any
	createdAtEpochMs int64
}

// fuse implements reciprocal rank fusion across the lexical and vector
// result sets (k=60 smoothing).
func fuse(lexHits []lexical.Hit, vecHits []vectorstore.SearchHit) map[string]*fusedEntry {
	out := make(map[string]*fusedEntry)
	for rank, h := range lexHits {
		e, ok := out[h.ID]
		if !ok {
			e = &fusedEntry{createdAtEpochMs: h.CreatedAtEpochMs}
			out[h.ID] = e
		}
		e.score += 1.0 / (rrfK + float64(rank+1))
	}
	for rank, h := range vecHits {
		e, ok := out[h.ID]
		if !ok {
			e = &fusedEntry{}
			out[h.ID] = e
		}
		e.score += 1.0 / (rrfK + float64(rank+1))
		e.payload = h.Payload
		if epoch, ok := asInt64(h.Payload["created_at_epoch"]); ok {
			e.createdAtEpochMs = epoch
		}
	}
	return out
}

func toHit(id string, docType vectorstore.DocType, payload map[string]any, createdAtEpochMs int64) Hit {
	h := Hit{ID: id, DocType: docType, CreatedAtEpochMs: createdAtEpochMs}
	if payload == nil {
		return h
	}
	if v, ok := payload["text"].(string); ok {
		h.Text = v
	}
	if v, ok := payload["summary"].(string); ok {
		h.Summary = v
	}
	if v, ok := payload["title"].(string); ok {
		h.Title = v
	}
	if v, ok := payload["kind"].(string); ok {
		h.Kind = model.Kind(v)
	}
	if v, ok := payload["decision_score"].(float64); ok {
		h.DecisionScore = v
	}
	if tags := toStringSlice(payload["tags"]); tags != nil {
		h.Tags = model.StringSet(tags)
	}
	if epoch, ok := asInt64(payload["created_at_epoch"]); ok && h.CreatedAtEpochMs == 0 {
		h.CreatedAtEpochMs = epoch
	}
	return h
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
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

// normalizeSearchScores min-max normalizes the fused RRF score in place to
// [0,1] so the 0.40 weight in the final formula operates on a comparable
// scale regardless of how many sources contributed to the fusion.
func normalizeSearchScores(hits []Hit) {
	if len(hits) == 0 {
		return
	}
	min, max := hits[0].Score, hits[0].Score
	for _, h := range hits {
		if h.Score < min {
			min = h.Score
		}
		if h.Score > max {
			max = h.Score
		}
	}
	spread := max - min
	for i := range hits {
		if spread <= 0 {
			hits[i].Score = 1
			continue
		}
		hits[i].Score = (hits[i].Score - min) / spread
	}
}

// recencyScore is 1 at "now" and decays linearly to 0 at recencyHorizon.
func recencyScore(createdAtEpochMs int64, now time.Time) float64 {
	if createdAtEpochMs <= 0 {
		return 0
	}
	age := now.Sub(time.UnixMilli(createdAtEpochMs))
	if age <= 0 {
		return 1
	}
	score := 1 - float64(age)/float64(recencyHorizon)
	return math.Max(0, math.Min(1, score))
}

func averageVectors(a, b []float32) []float32 {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]float32, len(a))
	for i := range a {
		if i < len(b) {
			out[i] = (a[i] + b[i]) / 2
		} else {
			out[i] = a[i]
		}
	}
	return out
}
