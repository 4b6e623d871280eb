package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/thoughtweave/internal/model"
)

// ThoughtListFilter narrows a thought list/export scan. Zero values mean
// "no filter" for that dimension.
type ThoughtListFilter struct {
	Kind      model.Kind
	Tags      []string
	FromEpoch int64
	ToEpoch   int64
	Cursor    string
	Limit     int
}

// ThoughtStore is the metadata-row repository for Thought.
type ThoughtStore interface {
	// Create writes the row with a conditional "attribute_not_exists(pk)"
	// check (ON CONFLICT DO NOTHING on the pk/sk unique index). inserted
	// reports whether this call actually wrote the row; false means the
	// capture is an idempotent replay.
	Create(ctx context.Context, t *model.Thought) (inserted bool, err error)
	Get(ctx context.Context, user, id string) (*model.Thought, error)
	GetMany(ctx context.Context, user string, ids []string) ([]*model.Thought, error)
	List(ctx context.Context, user string, filter ThoughtListFilter) (thoughts []*model.Thought, nextCursor string, hasMore bool, err error)
	Count(ctx context.Context, user string, filter ThoughtListFilter) (int64, error)
	// UpdateIndexed persists the indexer's derived fields for an
	// already-existing row.
	UpdateIndexed(ctx context.Context, t *model.Thought) error
	SoftDelete(ctx context.Context, user, id string, at time.Time) error
	// ExportSince returns every live thought with createdAt or
	// indexedAt >= sinceEpochMs, plus the ids of anything soft-deleted
	// since then.
	ExportSince(ctx context.Context, user string, sinceEpochMs int64) (changed []*model.Thought, deletedIDs []string, err error)
}

type thoughts struct {
	db *gorm.DB
}

func newThoughts(db *gorm.DB) ThoughtStore { return &thoughts{db: db} }

func (s *thoughts) Create(ctx context.Context, t *model.Thought) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pk"}, {Name: "sk"}},
			DoNothing: true,
		}).
		Create(t)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *thoughts) Get(ctx context.Context, user, id string) (*model.Thought, error) {
	var t model.Thought
	err := s.db.WithContext(ctx).
		Where("owner = ? AND id = ? AND deleted_at IS NULL", user, id).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *thoughts) GetMany(ctx context.Context, user string, ids []string) ([]*model.Thought, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*model.Thought
	err := s.db.WithContext(ctx).
		Where("owner = ? AND id IN ? AND deleted_at IS NULL", user, ids).
		Find(&out).Error
	return out, err
}

func (s *thoughts) scoped(db *gorm.DB, user string, filter ThoughtListFilter) *gorm.DB {
	q := db.Where("owner = ? AND deleted_at IS NULL", user)
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.FromEpoch > 0 {
		q = q.Where("created_at_epoch_ms >= ?", filter.FromEpoch)
	}
	if filter.ToEpoch > 0 {
		q = q.Where("created_at_epoch_ms <= ?", filter.ToEpoch)
	}
	for _, tag := range filter.Tags {
		// jsonb-serialized StringSet stored as a JSON array text column;
		// a LIKE match against the quoted tag is adequate here because
		// tags are restricted to [A-Za-z0-9_-]{1,50} and can't contain
		// '"' to produce a false positive.
		q = q.Where("tags LIKE ?", "%\""+tag+"\"%")
	}
	return q
}

func (s *thoughts) List(ctx context.Context, user string, filter ThoughtListFilter) ([]*model.Thought, string, bool, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	q := s.scoped(s.db.WithContext(ctx), user, filter).Order("created_at_epoch_ms DESC, id DESC")

	if filter.Cursor != "" {
		beforeEpoch, beforeID, err := decodeThoughtCursor(filter.Cursor)
		if err != nil {
			return nil, "", false, err
		}
		q = q.Where(
			"(created_at_epoch_ms < ?) OR (created_at_epoch_ms = ? AND id < ?)",
			beforeEpoch, beforeEpoch, beforeID,
		)
	}

	var rows []*model.Thought
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
		nextCursor = encodeThoughtCursor(last.CreatedAtEpochMs, last.ID)
	}
	return rows, nextCursor, hasMore, nil
}

func (s *thoughts) Count(ctx context.Context, user string, filter ThoughtListFilter) (int64, error) {
	var count int64
	err := s.scoped(s.db.WithContext(ctx), user, filter).Model(&model.Thought{}).Count(&count).Error
	return count, err
}

func (s *thoughts) UpdateIndexed(ctx context.Context, t *model.Thought) error {
	return s.db.WithContext(ctx).Model(&model.Thought{}).
		Where("owner = ? AND id = ?", t.User, t.ID).
		Updates(map[string]any{
			"summary":            t.Summary,
			"auto_tags":          t.AutoTags,
			"category":           t.Category,
			"intent":             t.Intent,
			"entities":           t.Entities,
			"related_ids":        t.RelatedIDs,
			"embedding_ref":      t.EmbeddingRef,
			"indexed_at":         t.IndexedAt,
			"decision_score":     t.DecisionScore,
			"contains_sensitive": t.ContainsSensitive,
		}).Error
}

func (s *thoughts) SoftDelete(ctx context.Context, user, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Thought{}).
		Where("owner = ? AND id = ? AND deleted_at IS NULL", user, id).
		Update("deleted_at", at).Error
}

func (s *thoughts) ExportSince(ctx context.Context, user string, sinceEpochMs int64) ([]*model.Thought, []string, error) {
	var changed []*model.Thought
	err := s.db.WithContext(ctx).
		Where("owner = ? AND deleted_at IS NULL AND (created_at_epoch_ms >= ? OR (indexed_at IS NOT NULL AND indexed_at >= ?))",
			user, sinceEpochMs, time.UnixMilli(sinceEpochMs)).
		Find(&changed).Error
	if err != nil {
		return nil, nil, err
	}

	var deletedRows []model.Thought
	err = s.db.WithContext(ctx).Unscoped().
		Select("id").
		Where("owner = ? AND deleted_at IS NOT NULL AND deleted_at >= ?", user, time.UnixMilli(sinceEpochMs)).
		Find(&deletedRows).Error
	if err != nil {
		return nil, nil, err
	}
	deletedIDs := make([]string, 0, len(deletedRows))
	for _, r := range deletedRows {
		deletedIDs = append(deletedIDs, r.ID)
	}
	return changed, deletedIDs, nil
}

func encodeThoughtCursor(epochMs int64, id string) string {
	raw := fmt.Sprintf("%d#%s", epochMs, id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeThoughtCursor(cursor string) (int64, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, "", fmt.Errorf("invalid cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "#", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid cursor shape")
	}
	epochMs, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid cursor epoch: %w", err)
	}
	return epochMs, parts[1], nil
}
