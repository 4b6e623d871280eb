package retrieval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/thoughtweave/internal/lexical"
	"github.com/kart-io/thoughtweave/internal/retrieval"
	"github.com/kart-io/thoughtweave/internal/vectorstore"
)

// fakeEmbedder returns a fixed-direction unit vector per distinct text so
// identical texts land on identical embeddings.
type fakeEmbedder struct{}

func (fakeEmbedder) Name() string { return "fake" }

func (f fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.EmbedSingle(ctx, t)
	}
	return out, nil
}

func (fakeEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r)
	}
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	return vec, nil
}

func thoughtDoc(id, user, text string, createdAtEpochMs int64, tags []string, decisionScore float64) vectorstore.Document {
	emb, _ := fakeEmbedder{}.EmbedSingle(context.Background(), text)
	return vectorstore.Document{
		ID:        id,
		Embedding: emb,
		Payload: map[string]any{
			"docType": string(vectorstore.DocTypeThought),
			"text":    text, "summary": "", "tags": tags,
			"created_at_epoch": createdAtEpochMs,
			"decision_score":   decisionScore,
			"user":             user,
		},
	}
}

func newEngine(t *testing.T, docs ...vectorstore.Document) (*retrieval.Engine, *lexical.MemoryIndex) {
	t.Helper()
	vectors := vectorstore.NewMemoryIndex()
	require.NoError(t, vectors.Upsert(context.Background(), docs))
	lex := lexical.NewMemoryIndex()
	return retrieval.NewEngine(lex, vectors, fakeEmbedder{}, nil, retrieval.Config{}), lex
}

func TestRetrieveFiltersByUser(t *testing.T) {
	engine, _ := newEngine(t,
		thoughtDoc("t_1", "alice", "postgres tuning notes", 1000, nil, 0),
		thoughtDoc("t_2", "bob", "postgres tuning notes", 1000, nil, 0),
	)

	result := engine.Retrieve(context.Background(), "postgres tuning", retrieval.Filter{User: "alice"})
	require.Len(t, result.Thoughts, 1)
	require.Equal(t, "t_1", result.Thoughts[0].ID)
}

func TestRetrieveRespectsTimeWindow(t *testing.T) {
	engine, _ := newEngine(t,
		thoughtDoc("t_old", "alice", "postgres tuning", 1000, nil, 0),
		thoughtDoc("t_new", "alice", "postgres tuning", 9000, nil, 0),
	)

	result := engine.Retrieve(context.Background(), "postgres", retrieval.Filter{
		User:       "alice",
		TimeWindow: &retrieval.TimeWindow{FromEpochMs: 5000},
	})
	require.Len(t, result.Thoughts, 1)
	require.Equal(t, "t_new", result.Thoughts[0].ID)
}

func TestRetrieveRespectsTagFilter(t *testing.T) {
	engine, _ := newEngine(t,
		thoughtDoc("t_tagged", "alice", "database migration plan", 1000, []string{"infra"}, 0),
		thoughtDoc("t_plain", "alice", "database migration plan", 1000, nil, 0),
	)

	result := engine.Retrieve(context.Background(), "migration", retrieval.Filter{User: "alice", Tags: []string{"infra"}})
	require.Len(t, result.Thoughts, 1)
	require.Equal(t, "t_tagged", result.Thoughts[0].ID)
}

func TestRetrieveHashtagInQueryNarrowsTags(t *testing.T) {
	engine, _ := newEngine(t,
		thoughtDoc("t_tagged", "alice", "kubernetes outage retro", 1000, []string{"oncall"}, 0),
		thoughtDoc("t_plain", "alice", "kubernetes outage retro", 1000, nil, 0),
	)

	result := engine.Retrieve(context.Background(), "outage #oncall", retrieval.Filter{User: "alice"})
	require.Len(t, result.Thoughts, 1)
	require.Equal(t, "t_tagged", result.Thoughts[0].ID)
}

func TestRetrieveSeparatesDocTypes(t *testing.T) {
	convEmb, _ := fakeEmbedder{}.EmbedSingle(context.Background(), "postgres discussion")
	conv := vectorstore.Document{
		ID:        "conv_1",
		Embedding: convEmb,
		Payload: map[string]any{
			"docType": string(vectorstore.DocTypeConversation),
			"title":   "postgres chat", "text": "Q: postgres\n\nA: yes", "summary": "",
			"created_at_epoch": int64(2000), "user": "alice",
		},
	}
	engine, _ := newEngine(t, thoughtDoc("t_1", "alice", "postgres notes", 1000, nil, 0), conv)

	result := engine.Retrieve(context.Background(), "postgres", retrieval.Filter{User: "alice"})
	require.Len(t, result.Thoughts, 1)
	require.Len(t, result.Conversations, 1)
	require.Equal(t, "conv_1", result.Conversations[0].ID)
	require.Equal(t, "postgres chat", result.Conversations[0].Title)
}

func TestRetrieveEmptyOnNoBackends(t *testing.T) {
	engine := retrieval.NewEngine(nil, nil, nil, nil, retrieval.Config{})
	result := engine.Retrieve(context.Background(), "anything", retrieval.Filter{User: "alice"})
	require.Empty(t, result.Thoughts)
	require.Empty(t, result.Conversations)
	require.True(t, result.Degraded)
}

func TestRetrieveScoreBlendsDecisionAndRecency(t *testing.T) {
	now := time.Now().UnixMilli()
	engine, _ := newEngine(t,
		thoughtDoc("t_decision", "alice", "we chose redis over memcached", now, nil, 1.0),
	)

	result := engine.Retrieve(context.Background(), "redis", retrieval.Filter{User: "alice"})
	require.Len(t, result.Thoughts, 1)
	// A lone hit normalizes its search component to 1 and was created
	// "now", so final = 0.40*1 + 0.15*~1 + 0.05*1.
	require.InDelta(t, 0.60, result.Thoughts[0].Score, 0.02)
}

func TestRetrieveLexicalFallbackWithoutEmbedder(t *testing.T) {
	lex := lexical.NewMemoryIndex()
	lex.Put("t_1", "alice", "terraform drift detection", "", nil, 1000)

	engine := retrieval.NewEngine(lex, nil, nil, nil, retrieval.Config{})
	result := engine.Retrieve(context.Background(), "terraform drift", retrieval.Filter{User: "alice"})
	require.True(t, result.Degraded)
	require.Len(t, result.Thoughts, 1)
	require.Equal(t, "t_1", result.Thoughts[0].ID)
}
