// Package conversation implements the conversation state machine: an
// ordered, encrypted, multi-turn dialog that reuses retrieval and
// synthesis, and triggers re-indexing so conversations stay searchable.
package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/thoughtweave/internal/crypto"
	"github.com/kart-io/thoughtweave/internal/ids"
	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/pkg/fanout"
	"github.com/kart-io/thoughtweave/internal/queue"
	"github.com/kart-io/thoughtweave/internal/retrieval"
	"github.com/kart-io/thoughtweave/internal/store"
	"github.com/kart-io/thoughtweave/internal/synthesis"
	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
	"github.com/kart-io/thoughtweave/pkg/infra/pool"
)

// decryptFanOut bounds concurrent message decryption.
const decryptFanOut = 10

// reindexDebounce is the minimum gap between conversation re-index
// enqueues.
const reindexDebounce = 10 * time.Second

const defaultIncludeHistory = 10

// Service implements every conversation operation.
type Service struct {
	Meta      store.Factory
	Envelope  *crypto.Envelope
	Queue     queue.IndexQueue
	Retrieval *retrieval.Engine
	Synth     *synthesis.Synthesizer
}

// NewService wires a conversation Service.
func NewService(meta store.Factory, env *crypto.Envelope, q queue.IndexQueue, retr *retrieval.Engine, synth *synthesis.Synthesizer) *Service {
	return &Service{Meta: meta, Envelope: env, Queue: q, Retrieval: retr, Synth: synth}
}

// Create inserts a conversation row and, if initialMessage is present,
// synchronously runs the full send-message flow.
func (s *Service) Create(ctx context.Context, user, title string, initialMessage *string, captureContext *model.CaptureContext) (*model.Conversation, *model.DecryptedMessage, *model.DecryptedMessage, error) {
	now := time.Now()
	conv := &model.Conversation{
		ID:        ids.NewConversationID(),
		User:      user,
		Title:     title,
		Status:    model.ConversationActive,
		CreatedAt: now, UpdatedAt: now,
	}
	conv.PK = "user#" + user
	conv.SK = "conv#" + conv.ID
	conv.GSI3PK = "user#" + user
	conv.GSI3SKEpochMs = now.UnixMilli()

	if err := s.Meta.Conversations().Create(ctx, conv); err != nil {
		return nil, nil, nil, fmt.Errorf("conversation: create: %w", err)
	}
	_ = s.Meta.UserMeta().Bump(ctx, user, now)

	if initialMessage == nil || *initialMessage == "" {
		return conv, nil, nil, nil
	}

	userMsg, assistantMsg, err := s.SendMessage(ctx, user, conv.ID, *initialMessage, nil, nil, defaultIncludeHistory)
	if err != nil {
		return conv, nil, nil, err
	}
	return conv, userMsg, assistantMsg, nil
}

// List paginates conversations most-recent-first by updatedAt.
func (s *Service) List(ctx context.Context, user string, status model.ConversationStatus, cursor string, limit int) ([]*model.Conversation, string, bool, error) {
	return s.Meta.Conversations().List(ctx, user, store.ConversationListFilter{Status: status, Cursor: cursor, Limit: limit})
}

// Get returns the conversation and a decrypted page of its messages.
func (s *Service) Get(ctx context.Context, user, id, cursor string, limit int) (*model.Conversation, []*model.DecryptedMessage, string, bool, error) {
	conv, err := s.Meta.Conversations().Get(ctx, user, id)
	if err != nil {
		return nil, nil, "", false, twerrors.ErrConversationNotFound.WithCause(err)
	}

	rows, nextCursor, hasMore, err := s.Meta.Messages().Page(ctx, id, cursor, limit)
	if err != nil {
		return nil, nil, "", false, fmt.Errorf("conversation: page messages: %w", err)
	}

	decrypted := s.decryptAll(ctx, id, user, rows)
	return conv, decrypted, nextCursor, hasMore, nil
}

// Update applies a conditional title/status change.
func (s *Service) Update(ctx context.Context, user, id string, title *string, status *model.ConversationStatus) error {
	now := time.Now()
	if err := s.Meta.Conversations().Update(ctx, user, id, title, status, now); err != nil {
		return twerrors.ErrConversationStatusConflict.WithCause(err)
	}
	_ = s.Meta.UserMeta().Bump(ctx, user, now)
	return nil
}

// Delete batch-removes a conversation's messages then tombstones the row.
// Idempotent: deleting an already-deleted conversation is a no-op success,
// since Conversations().Get already excludes deleted rows and a repeat
// Delete on a missing row is treated as already-satisfied.
func (s *Service) Delete(ctx context.Context, user, id string) error {
	if _, err := s.Meta.Conversations().Get(ctx, user, id); err != nil {
		return nil
	}
	if err := s.Meta.Messages().DeleteAll(ctx, id); err != nil {
		return fmt.Errorf("conversation: delete messages: %w", err)
	}
	if err := s.Meta.Conversations().Delete(ctx, user, id); err != nil {
		return fmt.Errorf("conversation: delete: %w", err)
	}
	_ = s.Meta.UserMeta().Bump(ctx, user, time.Now())
	return nil
}

// SendMessage runs the full send protocol: read history, persist
// the user message, retrieve, synthesize, persist the assistant message,
// bump the conversation, and debounce a re-index enqueue.
func (s *Service) SendMessage(ctx context.Context, user, id, content string, timeWindow *retrieval.TimeWindow, tags []string, includeHistory int) (*model.DecryptedMessage, *model.DecryptedMessage, error) {
	if includeHistory <= 0 {
		includeHistory = defaultIncludeHistory
	}

	conv, err := s.Meta.Conversations().Get(ctx, user, id)
	if err != nil {
		return nil, nil, twerrors.ErrConversationNotFound.WithCause(err)
	}

	// Step 1: last N messages, decrypted, chronological.
	lastN, err := s.Meta.Messages().LastN(ctx, id, includeHistory)
	if err != nil {
		return nil, nil, fmt.Errorf("conversation: load history: %w", err)
	}
	history := s.decryptAll(ctx, id, user, lastN)
	reverseMessages(history)
	historyTranscript := make([]string, 0, len(history))
	for _, m := range history {
		prefix := "Q"
		if m.Role == model.RoleAssistant {
			prefix = "A"
		}
		historyTranscript = append(historyTranscript, prefix+": "+m.Content)
	}

	// Step 2: persist the user message.
	now := time.Now()
	userMsgID := ids.NewMessageID()
	cipher, err := s.Envelope.Encrypt(content, crypto.AAD{ConversationID: id, MessageID: userMsgID, UserID: user})
	if err != nil {
		return nil, nil, fmt.Errorf("conversation: encrypt user message: %w", err)
	}
	userRow := &model.Message{
		ID: userMsgID, ConversationID: id, Role: model.RoleUser, Ciphertext: cipher, CreatedAt: now,
		PK: "conv#" + id, SK: fmt.Sprintf("msg#%d#%s", now.UnixMilli(), userMsgID),
	}
	if err := s.Meta.Messages().Create(ctx, userRow); err != nil {
		return nil, nil, fmt.Errorf("conversation: store user message: %w", err)
	}
	userMsg := &model.DecryptedMessage{Message: *userRow, Content: content}

	// Step 3: embed + retrieve.
	filter := retrieval.Filter{User: user, Tags: tags, TimeWindow: timeWindow}
	retrieved := s.Retrieval.Retrieve(ctx, content, filter)

	// Step 4: synthesize in conversational mode.
	synthCtx := toSynthesisContext(retrieved)
	result := s.Synth.Synthesize(ctx, synthesis.Request{
		Query: content, Context: synthCtx.items, ConversationHits: synthCtx.convHits, PriorMessages: historyTranscript,
	})

	searchedIDs := make(model.StringSet, 0, len(retrieved.Thoughts))
	for i, h := range retrieved.Thoughts {
		if i >= 6 {
			break
		}
		searchedIDs = append(searchedIDs, h.ID)
	}

	// Step 5: persist the assistant message, atomically bump the
	// conversation.
	assistantMsgID := ids.NewMessageID()
	assistantCipher, err := s.Envelope.Encrypt(result.Answer, crypto.AAD{ConversationID: id, MessageID: assistantMsgID, UserID: user})
	if err != nil {
		return nil, nil, fmt.Errorf("conversation: encrypt assistant message: %w", err)
	}
	assistantNow := time.Now()
	assistantRow := &model.Message{
		ID: assistantMsgID, ConversationID: id, Role: model.RoleAssistant, Ciphertext: assistantCipher, CreatedAt: assistantNow,
		PK: "conv#" + id, SK: fmt.Sprintf("msg#%d#%s", assistantNow.UnixMilli(), assistantMsgID),
		Citations: result.Citations, SearchedThoughtIDs: searchedIDs, Confidence: result.Confidence,
	}
	if err := s.Meta.Messages().Create(ctx, assistantRow); err != nil {
		return nil, nil, fmt.Errorf("conversation: store assistant message: %w", err)
	}
	assistantMsg := &model.DecryptedMessage{Message: *assistantRow, Content: result.Answer}

	if err := s.Meta.Conversations().BumpAfterMessage(ctx, id, 2, assistantNow); err != nil {
		logger.Warnw("conversation: bump after message failed", "conversationId", id, "error", err.Error())
	}
	_ = s.Meta.UserMeta().Bump(ctx, user, assistantNow)

	// Step 6: debounced re-index.
	indexedAt := conv.IndexedAt
	if indexedAt == nil || assistantNow.Sub(*indexedAt) > reindexDebounce {
		if s.Queue != nil {
			if err := s.Queue.Send(ctx, model.IndexJob{Type: model.IndexJobConversation, ConversationID: id, User: user, CreatedAtEpochMs: assistantNow.UnixMilli()}); err != nil {
				logger.Warnw("conversation: re-index enqueue failed", "conversationId", id, "error", err.Error())
			}
		}
	}

	return userMsg, assistantMsg, nil
}

func (s *Service) decryptAll(ctx context.Context, conversationID, user string, rows []*model.Message) []*model.DecryptedMessage {
	return fanout.MapBounded(ctx, pool.DefaultPool, decryptFanOut, rows, func(_ context.Context, m *model.Message) *model.DecryptedMessage {
		plaintext, err := s.Envelope.Decrypt(m.Ciphertext, crypto.AAD{ConversationID: conversationID, MessageID: m.ID, UserID: user})
		if err != nil {
			logger.Warnw("conversation: message decryption failed", "messageId", m.ID)
			plaintext = crypto.DecryptedSentinel
		}
		return &model.DecryptedMessage{Message: *m, Content: plaintext}
	})
}

func reverseMessages(msgs []*model.DecryptedMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

type synthesisContext struct {
	items    []synthesis.ContextItem
	convHits []synthesis.ConversationHit
}

func toSynthesisContext(r retrieval.Result) synthesisContext {
	items := make([]synthesis.ContextItem, 0, len(r.Thoughts))
	for _, h := range r.Thoughts {
		items = append(items, synthesis.ContextItem{
			ID: h.ID, CreatedAt: time.UnixMilli(h.CreatedAtEpochMs), Summary: h.Summary, Text: h.Text,
			Score: h.Score, Kind: h.Kind, Tags: h.Tags,
		})
	}
	convHits := make([]synthesis.ConversationHit, 0, len(r.Conversations))
	for _, h := range r.Conversations {
		convHits = append(convHits, synthesis.ConversationHit{
			ID: h.ID, CreatedAt: time.UnixMilli(h.CreatedAtEpochMs), Title: h.Title, Summary: h.Summary, Score: h.Score,
		})
	}
	return synthesisContext{items: items, convHits: convHits}
}
