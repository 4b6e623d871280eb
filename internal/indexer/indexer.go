// Package indexer drains the index queue and enriches thought and
// conversation documents into the vector index and the metadata store's
// derived fields. It holds no durable state: every operation
// is an idempotent upsert keyed by the thought/conversation id, so
// redelivery of the same job is always safe.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/thoughtweave/internal/crypto"
	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/pkg/fanout"
	"github.com/kart-io/thoughtweave/internal/queue"
	"github.com/kart-io/thoughtweave/internal/rawstore"
	"github.com/kart-io/thoughtweave/internal/store"
	"github.com/kart-io/thoughtweave/internal/vectorstore"
	"github.com/kart-io/thoughtweave/pkg/infra/pool"
	"github.com/kart-io/thoughtweave/pkg/llm"
)

// maxInFlight bounds concurrent message processing per worker so a big
// batch cannot overwhelm the LLM/embedding backend.
const maxInFlight = 10

// embedChars is the prefix of a thought's text the embedding call covers.
const embedChars = 8192

// relatedK is the k-NN fan-out for related-thought linkage; up to 5 of the
// 6 nearest neighbours survive after excluding the thought itself.
const relatedK = 6
const maxRelated = 5

// rawRecord mirrors the JSON shape internal/capture writes to the raw
// object store.
type rawRecord struct {
	ID               string                `json:"id"`
	User             string                `json:"user"`
	OriginalText     string                `json:"originalText"`
	SanitizedText    string                `json:"sanitizedText"`
	Kind             model.Kind            `json:"kind"`
	Tags             model.StringSet       `json:"tags"`
	Context          *model.CaptureContext `json:"context,omitempty"`
	CreatedAtEpochMs int64                 `json:"createdAtEpochMs"`
}

// Worker is the indexer's runtime: it owns no state across Run calls
// beyond its collaborators, all of which are constructor-injected.
type Worker struct {
	Raw      rawstore.Store
	Meta     store.Factory
	Vectors  vectorstore.Index
	Queue    queue.IndexQueue
	Envelope *crypto.Envelope
	Embedder llm.EmbeddingProvider
	Chat     llm.ChatProvider
}

// NewWorker wires the indexer's collaborators.
func NewWorker(raw rawstore.Store, meta store.Factory, vectors vectorstore.Index, q queue.IndexQueue, env *crypto.Envelope, embedder llm.EmbeddingProvider, chat llm.ChatProvider) *Worker {
	return &Worker{Raw: raw, Meta: meta, Vectors: vectors, Queue: q, Envelope: env, Embedder: embedder, Chat: chat}
}

// Run pulls batches from the queue until ctx is cancelled, processing each
// batch with bounded concurrency and reporting per-message success/failure
// back to the queue (the partial-batch-failure contract).
func (w *Worker) Run(ctx context.Context, batchSize int, wait time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := w.Queue.Receive(ctx, batchSize, wait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Errorw("indexer: receive failed", "error", err.Error())
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		fanout.MapBounded(ctx, pool.DefaultPool, maxInFlight, msgs, func(ctx context.Context, m queue.Message) struct{} {
			w.processOne(ctx, m)
			return struct{}{}
		})
	}
}

func (w *Worker) processOne(ctx context.Context, m queue.Message) {
	job, err := m.Job()
	if err != nil {
		logger.Errorw("indexer: malformed job, dropping", "error", err.Error())
		_ = m.Fail()
		return
	}

	var procErr error
	switch job.Type {
	case model.IndexJobThought:
		procErr = w.indexThought(ctx, job)
	case model.IndexJobConversation:
		procErr = w.indexConversation(ctx, job)
	default:
		procErr = fmt.Errorf("indexer: unknown job type %q", job.Type)
	}

	if procErr != nil {
		logger.Warnw("indexer: job failed, will redeliver", "type", job.Type, "user", job.User, "error", procErr.Error())
		_ = m.Fail()
		return
	}
	_ = m.Ack()
}

func (w *Worker) indexThought(ctx context.Context, job model.IndexJob) error {
	blob, err := w.Raw.Get(ctx, job.RawStoreKey)
	if err != nil {
		return fmt.Errorf("fetch raw blob: %w", err)
	}
	var rec rawRecord
	if err := json.Unmarshal(blob, &rec); err != nil {
		return fmt.Errorf("unmarshal raw blob: %w", err)
	}

	text := rec.SanitizedText
	embedInput := text
	if len(embedInput) > embedChars {
		embedInput = embedInput[:embedChars]
	}
	embedding, err := w.Embedder.EmbedSingle(ctx, embedInput)
	if err != nil {
		return fmt.Errorf("embed thought: %w", err)
	}

	summary := summarize(ctx, w.Chat, text)
	tagResult := smartTags(ctx, w.Chat, text)
	unified := dropNone(rec.Tags.Union(tagResult.Tags))

	related, err := w.relatedThoughts(ctx, job.User, job.ThoughtID, embedding)
	if err != nil {
		logger.Warnw("indexer: related-thought lookup failed", "thoughtId", job.ThoughtID, "error", err.Error())
		related = nil
	}

	decisionScore := 0.0
	if t, err := w.Meta.Thoughts().Get(ctx, job.User, job.ThoughtID); err == nil {
		decisionScore = t.DecisionScore
	}

	payload := map[string]any{
		"docType": string(vectorstore.DocTypeThought),
		"text":    text, "summary": summary, "tags": []string(unified),
		"kind": string(rec.Kind), "category": string(tagResult.Category), "intent": string(tagResult.Intent),
		"entities": []string(tagResult.Entities), "created_at_epoch": rec.CreatedAtEpochMs,
		"decision_score": decisionScore, "user": job.User,
	}
	if rec.Context != nil {
		if raw, err := json.Marshal(rec.Context); err == nil {
			payload["context"] = string(raw)
		}
	}
	if err := w.Vectors.Upsert(ctx, []vectorstore.Document{{ID: job.ThoughtID, Embedding: embedding, Payload: payload}}); err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}

	now := time.Now()
	updated := &model.Thought{
		ID: job.ThoughtID, User: job.User,
		Summary: summary, AutoTags: tagResult.Tags, Category: tagResult.Category, Intent: tagResult.Intent,
		Entities: tagResult.Entities, RelatedIDs: related, EmbeddingRef: job.ThoughtID,
		IndexedAt: &now, DecisionScore: decisionScore,
	}
	if err := w.Meta.Thoughts().UpdateIndexed(ctx, updated); err != nil {
		return fmt.Errorf("update derived fields: %w", err)
	}
	return nil
}

func (w *Worker) relatedThoughts(ctx context.Context, user, selfID string, embedding []float32) (model.StringSet, error) {
	hits, err := w.Vectors.Search(ctx, embedding, relatedK, vectorstore.Filter{User: user, DocType: vectorstore.DocTypeThought})
	if err != nil {
		return nil, err
	}
	out := make(model.StringSet, 0, maxRelated)
	for _, h := range hits {
		if h.ID == selfID {
			continue
		}
		out = append(out, h.ID)
		if len(out) >= maxRelated {
			break
		}
	}
	return out, nil
}

func (w *Worker) indexConversation(ctx context.Context, job model.IndexJob) error {
	conv, err := w.Meta.Conversations().Get(ctx, job.User, job.ConversationID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	var all []*model.Message
	cursor := ""
	for {
		page, next, hasMore, err := w.Meta.Messages().Page(ctx, job.ConversationID, cursor, 200)
		if err != nil {
			return fmt.Errorf("load messages: %w", err)
		}
		all = append(all, page...)
		if !hasMore {
			break
		}
		cursor = next
	}

	citedTags := model.StringSet{}
	citedIDs := model.StringSet{}
	transcript := ""
	plaintexts := make([]string, len(all))
	for i, m := range all {
		plaintext, err := w.Envelope.Decrypt(m.Ciphertext, crypto.AAD{ConversationID: job.ConversationID, MessageID: m.ID, UserID: job.User})
		if err != nil {
			logger.Warnw("indexer: message decryption failed during conversation index", "messageId", m.ID)
			plaintext = crypto.DecryptedSentinel
		}
		plaintexts[i] = plaintext
		if m.Role == model.RoleUser {
			transcript += "Q: " + plaintext + "\n\n"
		} else {
			transcript += "A: " + plaintext + "\n\n"
			for _, c := range m.Citations {
				citedTags = citedTags.Union(c.Tags)
			}
			citedIDs = citedIDs.Union(m.SearchedThoughtIDs)
		}
	}

	embedding, err := w.Embedder.EmbedSingle(ctx, transcript)
	if err != nil {
		return fmt.Errorf("embed conversation: %w", err)
	}

	summary := conv.Title
	switch {
	case len(all) > 2:
		firstSix := plaintexts
		if len(firstSix) > 6 {
			firstSix = firstSix[:6]
		}
		summary = summarizeConversation(ctx, w.Chat, conv.Title, firstSix)
	case len(all) > 0:
		summary = conv.Title + ": " + plaintexts[0]
	}

	payload := map[string]any{
		"docType": string(vectorstore.DocTypeConversation),
		"title":   conv.Title, "text": transcript, "summary": summary,
		"tags": []string(citedTags), "messageCount": conv.MessageCount,
		"citedThoughtIds":  []string(citedIDs),
		"created_at_epoch": conv.CreatedAt.UnixMilli(), "updated_at_epoch": conv.UpdatedAt.UnixMilli(),
		"user": job.User,
	}
	if err := w.Vectors.Upsert(ctx, []vectorstore.Document{{ID: job.ConversationID, Embedding: embedding, Payload: payload}}); err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}

	return w.Meta.Conversations().MarkIndexed(ctx, job.ConversationID, time.Now())
}

func summarizeConversation(ctx context.Context, chat llm.ChatProvider, title string, firstSix []string) string {
	if chat == nil {
		return title
	}
	transcript := ""
	for i, p := range firstSix {
		transcript += fmt.Sprintf("%d. %s\n", i+1, p)
	}
	prompt := fmt.Sprintf("Conversation titled %q. First messages:\n%s\nSummarize this conversation in one sentence, at most 20 words.", title, transcript)
	out, err := chat.Generate(ctx, prompt, "")
	if err != nil {
		return title
	}
	return truncateWords(out, 20)
}
