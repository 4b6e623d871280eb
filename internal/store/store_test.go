package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/store"
)

func newTestFactory(t *testing.T) store.Factory {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	f := store.New(db)
	require.NoError(t, f.AutoMigrate())
	return f
}

func TestThoughtCreateIsIdempotent(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	th := &model.Thought{
		ID:               "t_1",
		PK:               "user#alice",
		SK:               "ts#1000#t_1",
		User:             "alice",
		CreatedAtEpochMs: 1000,
		CreatedAt:        time.UnixMilli(1000),
		Text:             "hello world",
		Kind:             model.KindNote,
		GSI1PK:           "type#note",
		GSI1SK:           1000,
	}

	inserted, err := f.Thoughts().Create(ctx, th)
	require.NoError(t, err)
	require.True(t, inserted)

	again, err := f.Thoughts().Create(ctx, th)
	require.NoError(t, err)
	require.False(t, again, "replaying the same pk/sk must be a no-op")

	got, err := f.Thoughts().Get(ctx, "alice", "t_1")
	require.NoError(t, err)
	require.Equal(t, "hello world", got.Text)
}

func TestThoughtSoftDeleteExcludesFromGetAndList(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	th := &model.Thought{
		ID: "t_1", PK: "user#alice", SK: "ts#1000#t_1", User: "alice",
		CreatedAtEpochMs: 1000, CreatedAt: time.UnixMilli(1000),
		Text: "secret", Kind: model.KindNote, GSI1PK: "type#note", GSI1SK: 1000,
	}
	_, err := f.Thoughts().Create(ctx, th)
	require.NoError(t, err)

	require.NoError(t, f.Thoughts().SoftDelete(ctx, "alice", "t_1", time.Now()))

	_, err = f.Thoughts().Get(ctx, "alice", "t_1")
	require.Error(t, err)

	rows, _, _, err := f.Thoughts().List(ctx, "alice", store.ThoughtListFilter{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestThoughtListPaginatesNewestFirst(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		epoch := int64(1000 + i)
		th := &model.Thought{
			ID: intToID(i), PK: "user#alice", SK: "ts#sk" + intToID(i), User: "alice",
			CreatedAtEpochMs: epoch, CreatedAt: time.UnixMilli(epoch),
			Text: "thought", Kind: model.KindNote, GSI1PK: "type#note", GSI1SK: epoch,
		}
		_, err := f.Thoughts().Create(ctx, th)
		require.NoError(t, err)
	}

	page1, cursor, hasMore, err := f.Thoughts().List(ctx, "alice", store.ThoughtListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.True(t, hasMore)
	require.Equal(t, intToID(4), page1[0].ID, "newest first")

	page2, _, hasMore2, err := f.Thoughts().List(ctx, "alice", store.ThoughtListFilter{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.True(t, hasMore2)
	require.Equal(t, intToID(2), page2[0].ID)
}

func TestConversationBumpAfterMessageIsAtomic(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	conv := &model.Conversation{
		ID: "conv_1", PK: "user#alice", SK: "conv#conv_1", User: "alice",
		Title: "Conversation", Status: model.ConversationActive,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
		GSI3PK: "user#alice", GSI3SKEpochMs: time.Now().UnixMilli(),
	}
	require.NoError(t, f.Conversations().Create(ctx, conv))

	require.NoError(t, f.Conversations().BumpAfterMessage(ctx, "conv_1", 2, time.Now()))

	got, err := f.Conversations().Get(ctx, "alice", "conv_1")
	require.NoError(t, err)
	require.Equal(t, 2, got.MessageCount)
}

func TestUserMetaBumpUpserts(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	before, err := f.UserMeta().Get(ctx, "alice")
	require.NoError(t, err)
	require.Zero(t, before.LastDataChange)

	now := time.Now()
	require.NoError(t, f.UserMeta().Bump(ctx, "alice", now))

	after, err := f.UserMeta().Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, now.UnixMilli(), after.LastDataChange)
}

func intToID(i int) string {
	return string(rune('a' + i))
}
