// Package store is the metadata store: the single write-coordinator for
// thought, conversation, message, and user-meta mutations. Postgres is the
// production driver; sqlite backs package tests. Conditional writes
// (ON CONFLICT DO NOTHING) and atomic increments stand in for the
// attribute_not_exists/atomic-increment primitives the design assumes.
package store

import (
	"gorm.io/gorm"

	"github.com/kart-io/thoughtweave/internal/model"
)

// Factory exposes the per-aggregate repositories backing the knowledge
// engine.
type Factory interface {
	Thoughts() ThoughtStore
	Conversations() ConversationStore
	Messages() MessageStore
	UserMeta() UserMetaStore
	AutoMigrate() error
	Close() error
}

type datastore struct {
	db *gorm.DB
}

// New wraps an already-open gorm connection as a Factory.
func New(db *gorm.DB) Factory {
	return &datastore{db: db}
}

func (ds *datastore) Thoughts() ThoughtStore           { return newThoughts(ds.db) }
func (ds *datastore) Conversations() ConversationStore { return newConversations(ds.db) }
func (ds *datastore) Messages() MessageStore           { return newMessages(ds.db) }
func (ds *datastore) UserMeta() UserMetaStore          { return newUserMeta(ds.db) }

// AutoMigrate creates or updates the schema for every managed entity.
func (ds *datastore) AutoMigrate() error {
	return ds.db.AutoMigrate(
		&model.Thought{},
		&model.Conversation{},
		&model.Message{},
		&model.UserMeta{},
	)
}

func (ds *datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
