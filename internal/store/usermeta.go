package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/thoughtweave/internal/model"
)

// UserMetaStore tracks the lastDataChange marker that gates graph-cache
// invalidation. Every successful capture, conversation mutation,
// and delete bumps it.
type UserMetaStore interface {
	Get(ctx context.Context, user string) (*model.UserMeta, error)
	Bump(ctx context.Context, user string, at time.Time) error
}

type userMeta struct {
	db *gorm.DB
}

func newUserMeta(db *gorm.DB) UserMetaStore { return &userMeta{db: db} }

func (s *userMeta) Get(ctx context.Context, user string) (*model.UserMeta, error) {
	var m model.UserMeta
	err := s.db.WithContext(ctx).Where("user_id = ?", user).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return &model.UserMeta{User: user, LastDataChange: 0}, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *userMeta) Bump(ctx context.Context, user string, at time.Time) error {
	row := &model.UserMeta{User: user, LastDataChange: at.UnixMilli()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_data_change"}),
		}).
		Create(row).Error
}
