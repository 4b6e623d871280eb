package indexer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kart-io/thoughtweave/internal/capture"
	"github.com/kart-io/thoughtweave/internal/crypto"
	"github.com/kart-io/thoughtweave/internal/indexer"
	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/queue"
	"github.com/kart-io/thoughtweave/internal/rawstore"
	"github.com/kart-io/thoughtweave/internal/store"
	"github.com/kart-io/thoughtweave/internal/vectorstore"
	"github.com/kart-io/thoughtweave/pkg/llm"
)

type stubEmbedder struct{}

func (stubEmbedder) Name() string { return "stub" }

func (s stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = s.EmbedSingle(ctx, t)
	}
	return out, nil
}

func (stubEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 4)
	for i, r := range text {
		vec[i%4] += float32(r % 17)
	}
	return vec, nil
}

type stubChat struct{ response string }

func (s *stubChat) Name() string { return "stub" }

func (s *stubChat) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return "", errors.New("unused")
}

func (s *stubChat) Generate(_ context.Context, _, _ string) (string, error) {
	return s.response, nil
}

type fixture struct {
	capture *capture.Service
	worker  *indexer.Worker
	meta    store.Factory
	queue   *queue.MemoryQueue
	vectors *vectorstore.MemoryIndex
	env     *crypto.Envelope
}

func newFixture(t *testing.T, chatResponse string) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	f := store.New(db)
	require.NoError(t, f.AutoMigrate())

	raw, err := rawstore.NewFSStore(t.TempDir())
	require.NoError(t, err)

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 3)
	}
	env, err := crypto.New(key)
	require.NoError(t, err)

	q := queue.NewMemoryQueue()
	vectors := vectorstore.NewMemoryIndex()
	chat := &stubChat{response: chatResponse}

	return &fixture{
		capture: capture.NewService(raw, f, q),
		worker:  indexer.NewWorker(raw, f, vectors, q, env, stubEmbedder{}, chat),
		meta:    f,
		queue:   q,
		vectors: vectors,
		env:     env,
	}
}

// drain processes every queued job exactly once.
func (fx *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Give the worker one pass over the pending jobs, then stop it.
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	_ = fx.worker.Run(ctx, 10, 50*time.Millisecond)
}

func TestIndexThoughtWritesDerivedFieldsAndVector(t *testing.T) {
	fx := newFixture(t, `{"tags":["postgres","tuning","database"],"category":"engineering","intent":"note","entities":["PostgreSQL"]}`)
	ctx := context.Background()

	res, err := fx.capture.Capture(ctx, "alice", model.CaptureRequest{
		Text: "Tuned shared_buffers and checkpoint settings on the PostgreSQL primary because writes were stalling under load.",
	})
	require.NoError(t, err)

	fx.drain(t)

	th, err := fx.meta.Thoughts().Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	require.NotNil(t, th.IndexedAt)
	require.NotEmpty(t, th.Summary)
	require.Equal(t, model.CategoryEngineering, th.Category)
	require.Equal(t, model.IntentNote, th.Intent)
	require.Contains(t, th.AutoTags, "postgres")
	require.Contains(t, th.Entities, "PostgreSQL")

	docs, err := fx.vectors.FetchAll(ctx, vectorstore.Filter{User: "alice", DocType: vectorstore.DocTypeThought}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, res.ID, docs[0].ID)
	require.NotEmpty(t, docs[0].Embedding)
}

func TestIndexThoughtIsIdempotent(t *testing.T) {
	fx := newFixture(t, `{"tags":["alpha","beta","gamma"],"category":"other","intent":"note","entities":[]}`)
	ctx := context.Background()

	res, err := fx.capture.Capture(ctx, "alice", model.CaptureRequest{
		Text: "A note long enough to be summarized by the model rather than truncated, covering several unremarkable details.",
	})
	require.NoError(t, err)
	fx.drain(t)

	first, err := fx.meta.Thoughts().Get(ctx, "alice", res.ID)
	require.NoError(t, err)

	// Replay the same job.
	require.NoError(t, fx.queue.Send(ctx, model.IndexJob{
		Type: model.IndexJobThought, ThoughtID: res.ID, User: "alice",
		RawStoreKey: fmt.Sprintf("thoughts/alice/%s/%s.json", first.CreatedAt.Format("2006-01-02"), res.ID),
	}))
	fx.drain(t)

	second, err := fx.meta.Thoughts().Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	require.Equal(t, first.Summary, second.Summary)
	require.Equal(t, first.AutoTags, second.AutoTags)
	require.Equal(t, first.Category, second.Category)

	docs, err := fx.vectors.FetchAll(ctx, vectorstore.Filter{User: "alice"}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1, "re-processing must upsert, not duplicate")
}

func TestIndexThoughtDropsNoneSentinelAndCapsEntities(t *testing.T) {
	fx := newFixture(t, `{"tags":["none","postgres","NONE","tuning"],"category":"engineering","intent":"note","entities":["One","Two","Three","Four","Five"]}`)
	ctx := context.Background()

	res, err := fx.capture.Capture(ctx, "alice", model.CaptureRequest{
		Text: "Tuned the connection pool on the primary database after the incident last week showed saturation.",
		Tags: []string{"infra"},
	})
	require.NoError(t, err)
	fx.drain(t)

	th, err := fx.meta.Thoughts().Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	require.NotContains(t, th.AutoTags, "none")
	require.NotContains(t, th.AutoTags, "NONE")
	require.Contains(t, th.AutoTags, "postgres")
	require.Len(t, th.Entities, 3, "entities are capped at three")

	docs, err := fx.vectors.FetchAll(ctx, vectorstore.Filter{User: "alice"}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	tags, _ := docs[0].Payload["tags"].([]string)
	require.NotContains(t, tags, "none")
	require.Contains(t, tags, "infra")
}

func TestIndexThoughtFallsBackOnMalformedTagJSON(t *testing.T) {
	fx := newFixture(t, "I will not answer in JSON, sorry.")
	ctx := context.Background()

	res, err := fx.capture.Capture(ctx, "alice", model.CaptureRequest{
		Text: "Fixed a nil pointer panic in the golang worker pool; the bug only showed under races.",
	})
	require.NoError(t, err)
	fx.drain(t)

	th, err := fx.meta.Thoughts().Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	require.NotNil(t, th.IndexedAt, "heuristic fallback must still index the thought")
	require.NotEmpty(t, th.Category)
	require.NotEmpty(t, th.Intent)
}

func TestIndexThoughtLinksRelatedThoughts(t *testing.T) {
	fx := newFixture(t, `{"tags":["x","y","z"],"category":"other","intent":"note","entities":[]}`)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := fx.capture.Capture(ctx, "alice", model.CaptureRequest{
			Text: fmt.Sprintf("Thought number %d about very similar subject matter entirely.", i),
		})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}
	fx.drain(t)

	// Re-index the first thought now that the other two are searchable.
	first, err := fx.meta.Thoughts().Get(ctx, "alice", ids[0])
	require.NoError(t, err)
	require.NoError(t, fx.queue.Send(ctx, model.IndexJob{
		Type: model.IndexJobThought, ThoughtID: ids[0], User: "alice",
		RawStoreKey: fmt.Sprintf("thoughts/alice/%s/%s.json", first.CreatedAt.Format("2006-01-02"), ids[0]),
	}))
	fx.drain(t)

	th, err := fx.meta.Thoughts().Get(ctx, "alice", ids[0])
	require.NoError(t, err)
	require.NotEmpty(t, th.RelatedIDs)
	require.NotContains(t, th.RelatedIDs, ids[0], "a thought never relates to itself")
	require.LessOrEqual(t, len(th.RelatedIDs), 5)
}

func TestIndexConversationBuildsTranscriptDocument(t *testing.T) {
	fx := newFixture(t, `{"tags":["a","b","c"],"category":"other","intent":"note","entities":[]}`)
	ctx := context.Background()

	// Persist a conversation with two encrypted messages directly.
	now := time.Now()
	conv := &model.Conversation{
		ID: "conv_test", User: "alice", Title: "Postgres chat",
		Status: model.ConversationActive, CreatedAt: now, UpdatedAt: now,
		PK: "user#alice", SK: "conv#conv_test", GSI3PK: "user#alice", GSI3SKEpochMs: now.UnixMilli(),
	}
	require.NoError(t, fx.meta.Conversations().Create(ctx, conv))

	for i, m := range []struct {
		role    model.MessageRole
		content string
	}{
		{model.RoleUser, "How do I tune postgres?"},
		{model.RoleAssistant, "Raise shared_buffers."},
	} {
		id := fmt.Sprintf("msg_%d", i)
		cipher, err := fx.env.Encrypt(m.content, crypto.AAD{ConversationID: conv.ID, MessageID: id, UserID: "alice"})
		require.NoError(t, err)
		require.NoError(t, fx.meta.Messages().Create(ctx, &model.Message{
			ID: id, ConversationID: conv.ID, Role: m.role, Ciphertext: cipher,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
			PK:        "conv#" + conv.ID, SK: fmt.Sprintf("msg#%d#%s", now.Add(time.Duration(i)*time.Second).UnixMilli(), id),
		}))
	}

	require.NoError(t, fx.queue.Send(ctx, model.IndexJob{Type: model.IndexJobConversation, ConversationID: conv.ID, User: "alice"}))
	fx.drain(t)

	docs, err := fx.vectors.FetchAll(ctx, vectorstore.Filter{User: "alice", DocType: vectorstore.DocTypeConversation}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, conv.ID, docs[0].ID)

	text, _ := docs[0].Payload["text"].(string)
	require.Contains(t, text, "Q: How do I tune postgres?")
	require.Contains(t, text, "A: Raise shared_buffers.")

	got, err := fx.meta.Conversations().Get(ctx, "alice", conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.IndexedAt)
}
