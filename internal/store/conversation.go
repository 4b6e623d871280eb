package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/thoughtweave/internal/model"
)

// ConversationListFilter narrows a conversation list scan.
type ConversationListFilter struct {
	Status model.ConversationStatus
	Cursor string
	Limit  int
}

// ConversationStore is the metadata-row repository for Conversation.
type ConversationStore interface {
	Create(ctx context.Context, c *model.Conversation) error
	Get(ctx context.Context, user, id string) (*model.Conversation, error)
	List(ctx context.Context, user string, filter ConversationListFilter) (rows []*model.Conversation, nextCursor string, hasMore bool, err error)
	// Update applies a conditional field update; returns
	// gorm.ErrRecordNotFound if the row doesn't exist (or isn't owned by
	// user).
	Update(ctx context.Context, user, id string, title *string, status *model.ConversationStatus, updatedAt time.Time) error
	// BumpAfterMessage atomically increments messageCount by delta and
	// sets updatedAt/gsi3sk — never a read-modify-write.
	BumpAfterMessage(ctx context.Context, id string, delta int, updatedAt time.Time) error
	MarkIndexed(ctx context.Context, id string, indexedAt time.Time) error
	Delete(ctx context.Context, user, id string) error
	ExportSince(ctx context.Context, user string, sinceEpochMs int64) ([]*model.Conversation, error)
	// DeletedSince returns the ids of conversations tombstoned at or
	// after sinceEpochMs.
	DeletedSince(ctx context.Context, user string, sinceEpochMs int64) ([]string, error)
}

type conversations struct {
	db *gorm.DB
}

func newConversations(db *gorm.DB) ConversationStore { return &conversations{db: db} }

func (s *conversations) Create(ctx context.Context, c *model.Conversation) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pk"}, {Name: "sk"}},
			DoNothing: true,
		}).
		Create(c).Error
}

func (s *conversations) Get(ctx context.Context, user, id string) (*model.Conversation, error) {
	var c model.Conversation
	err := s.db.WithContext(ctx).
		Where("owner = ? AND id = ? AND status != ?", user, id, model.ConversationDeleted).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *conversations) List(ctx context.Context, user string, filter ConversationListFilter) ([]*model.Conversation, string, bool, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := s.db.WithContext(ctx).
		Where("owner = ? AND status != ?", user, model.ConversationDeleted).
		Order("gsi3sk DESC, id DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Cursor != "" {
		beforeEpoch, beforeID, err := decodeThoughtCursor(filter.Cursor)
		if err != nil {
			return nil, "", false, err
		}
		q = q.Where("(gsi3sk < ?) OR (gsi3sk = ? AND id < ?)", beforeEpoch, beforeEpoch, beforeID)
	}

	var rows []*model.Conversation
	if err := q.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, "", false, err
	}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	nextCursor := ""
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		nextCursor = encodeThoughtCursor(last.GSI3SKEpochMs, last.ID)
	}
	return rows, nextCursor, hasMore, nil
}

func (s *conversations) Update(ctx context.Context, user, id string, title *string, status *model.ConversationStatus, updatedAt time.Time) error {
	updates := map[string]any{"updated_at": updatedAt}
	if title != nil {
		updates["title"] = *title
	}
	if status != nil {
		updates["status"] = *status
	}
	result := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("owner = ? AND id = ? AND status != ?", user, id, model.ConversationDeleted).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *conversations) BumpAfterMessage(ctx context.Context, id string, delta int, updatedAt time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"message_count": gorm.Expr("message_count + ?", delta),
			"updated_at":    updatedAt,
			"gsi3sk":        updatedAt.UnixMilli(),
		}).Error
}

func (s *conversations) MarkIndexed(ctx context.Context, id string, indexedAt time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("indexed_at", indexedAt).Error
}

func (s *conversations) Delete(ctx context.Context, user, id string) error {
	result := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("owner = ? AND id = ?", user, id).
		Updates(map[string]any{
			"status":     model.ConversationDeleted,
			"updated_at": time.Now(),
		})
	return result.Error
}

func (s *conversations) DeletedSince(ctx context.Context, user string, sinceEpochMs int64) ([]string, error) {
	var rows []model.Conversation
	err := s.db.WithContext(ctx).
		Select("id").
		Where("owner = ? AND status = ? AND updated_at >= ?",
			user, model.ConversationDeleted, time.UnixMilli(sinceEpochMs)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *conversations) ExportSince(ctx context.Context, user string, sinceEpochMs int64) ([]*model.Conversation, error) {
	var rows []*model.Conversation
	err := s.db.WithContext(ctx).
		Where("owner = ? AND status != ? AND (created_at >= ? OR updated_at >= ?)",
			user, model.ConversationDeleted, time.UnixMilli(sinceEpochMs), time.UnixMilli(sinceEpochMs)).
		Find(&rows).Error
	return rows, err
}
