package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/thoughtweave/internal/model"
)

// MessageStore is the metadata-row repository for Message. Messages are
// exclusively owned by their conversation; every query is scoped by
// conversationId.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	// LastN returns the most recent n messages for a conversation,
	// most-recent-first.
	LastN(ctx context.Context, conversationID string, n int) ([]*model.Message, error)
	// Page returns messages chronologically, paginated from an optional
	// cursor (a sort key), for the Get-conversation HTTP endpoint.
	Page(ctx context.Context, conversationID, cursor string, limit int) (rows []*model.Message, nextCursor string, hasMore bool, err error)
	// DeleteAll batch-deletes every message for a conversation, in
	// chunks <= 25 to bound the blast radius of any single statement.
	DeleteAll(ctx context.Context, conversationID string) error
}

type messages struct {
	db *gorm.DB
}

func newMessages(db *gorm.DB) MessageStore { return &messages{db: db} }

func (s *messages) Create(ctx context.Context, m *model.Message) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pk"}, {Name: "sk"}},
			DoNothing: true,
		}).
		Create(m).Error
}

func (s *messages) LastN(ctx context.Context, conversationID string, n int) ([]*model.Message, error) {
	if n <= 0 {
		n = 10
	}
	var rows []*model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sk DESC").
		Limit(n).
		Find(&rows).Error
	return rows, err
}

func (s *messages) Page(ctx context.Context, conversationID, cursor string, limit int) ([]*model.Message, string, bool, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sk ASC")
	if cursor != "" {
		q = q.Where("sk > ?", cursor)
	}

	var rows []*model.Message
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, "", false, err
	}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	nextCursor := ""
	if hasMore && len(rows) > 0 {
		nextCursor = rows[len(rows)-1].SK
	}
	return rows, nextCursor, hasMore, nil
}

func (s *messages) DeleteAll(ctx context.Context, conversationID string) error {
	const chunk = 25
	for {
		var ids []string
		err := s.db.WithContext(ctx).Model(&model.Message{}).
			Where("conversation_id = ?", conversationID).
			Limit(chunk).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("list message chunk: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete message chunk: %w", err)
		}
		if len(ids) < chunk {
			return nil
		}
	}
}
