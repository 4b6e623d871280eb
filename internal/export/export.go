// Package export implements the incremental sync contract: everything a
// user created or changed since a client-supplied watermark, decrypted,
// plus the ids of anything deleted since then. The response's
// syncTimestamp is echoed back as the next watermark, so a client that
// persists it sees every change exactly once.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"golang.org/x/sync/errgroup"

	"github.com/kart-io/thoughtweave/internal/crypto"
	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/pkg/fanout"
	"github.com/kart-io/thoughtweave/internal/store"
	"github.com/kart-io/thoughtweave/pkg/infra/pool"
)

// decryptFanOut bounds concurrent message decryption during an export.
const decryptFanOut = 10

// Conversation is one exported conversation with its full decrypted
// message history.
type Conversation struct {
	*model.Conversation
	Messages []*model.DecryptedMessage `json:"messages"`
}

// Result is the full export payload.
type Result struct {
	Thoughts      []*model.Thought `json:"thoughts"`
	Conversations []*Conversation  `json:"conversations"`
	Deleted       []string         `json:"deleted"`
	SyncTimestamp int64            `json:"syncTimestamp"`
}

// Service assembles exports from the metadata store.
type Service struct {
	Meta     store.Factory
	Envelope *crypto.Envelope
}

// NewService wires an export Service.
func NewService(meta store.Factory, env *crypto.Envelope) *Service {
	return &Service{Meta: meta, Envelope: env}
}

// Export returns every thought and conversation created or updated at or
// after since, with conversation messages decrypted, plus deleted ids.
// since = 0 produces a full export. Export never partially succeeds
// silently: any store error fails the whole call.
func (s *Service) Export(ctx context.Context, user string, sinceEpochMs int64) (*Result, error) {
	syncTimestamp := time.Now().UnixMilli()

	thoughts, deletedThoughtIDs, err := s.Meta.Thoughts().ExportSince(ctx, user, sinceEpochMs)
	if err != nil {
		return nil, fmt.Errorf("export: thoughts: %w", err)
	}

	convRows, err := s.Meta.Conversations().ExportSince(ctx, user, sinceEpochMs)
	if err != nil {
		return nil, fmt.Errorf("export: conversations: %w", err)
	}

	deletedConvIDs, err := s.Meta.Conversations().DeletedSince(ctx, user, sinceEpochMs)
	if err != nil {
		return nil, fmt.Errorf("export: deleted conversations: %w", err)
	}

	conversations := make([]*Conversation, len(convRows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decryptFanOut)
	for i, conv := range convRows {
		i, conv := i, conv
		g.Go(func() error {
			msgs, err := s.allMessages(gctx, conv.ID)
			if err != nil {
				return fmt.Errorf("export: messages for %s: %w", conv.ID, err)
			}
			conversations[i] = &Conversation{
				Conversation: conv,
				Messages:     s.decryptAll(gctx, conv.ID, user, msgs),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	deleted := append(append([]string{}, deletedThoughtIDs...), deletedConvIDs...)

	return &Result{
		Thoughts:      thoughts,
		Conversations: conversations,
		Deleted:       deleted,
		SyncTimestamp: syncTimestamp,
	}, nil
}

// allMessages drains the message pages for one conversation in
// chronological order.
func (s *Service) allMessages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	var all []*model.Message
	cursor := ""
	for {
		page, next, hasMore, err := s.Meta.Messages().Page(ctx, conversationID, cursor, 100)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if !hasMore {
			return all, nil
		}
		cursor = next
	}
}

// decryptAll decrypts a batch of messages with bounded parallelism. A
// message whose AAD no longer verifies is exported with the sentinel
// placeholder rather than failing the export.
func (s *Service) decryptAll(ctx context.Context, conversationID, user string, rows []*model.Message) []*model.DecryptedMessage {
	return fanout.MapBounded(ctx, pool.DefaultPool, decryptFanOut, rows, func(_ context.Context, m *model.Message) *model.DecryptedMessage {
		plaintext, err := s.Envelope.Decrypt(m.Ciphertext, crypto.AAD{ConversationID: conversationID, MessageID: m.ID, UserID: user})
		if err != nil {
			logger.Warnw("export: message decryption failed", "messageId", m.ID)
			plaintext = crypto.DecryptedSentinel
		}
		return &model.DecryptedMessage{Message: *m, Content: plaintext}
	})
}
