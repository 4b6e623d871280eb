package export_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kart-io/thoughtweave/internal/crypto"
	"github.com/kart-io/thoughtweave/internal/export"
	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/store"
)

func newFixture(t *testing.T) (*export.Service, store.Factory, *crypto.Envelope) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	f := store.New(db)
	require.NoError(t, f.AutoMigrate())

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 7)
	}
	env, err := crypto.New(key)
	require.NoError(t, err)

	return export.NewService(f, env), f, env
}

func seedThought(t *testing.T, f store.Factory, user, id, text string, epochMs int64) {
	t.Helper()
	inserted, err := f.Thoughts().Create(context.Background(), &model.Thought{
		ID: id, User: user, Text: text, Kind: model.KindNote,
		CreatedAtEpochMs: epochMs, CreatedAt: time.UnixMilli(epochMs),
		PK: "user#" + user, SK: "ts#" + id,
	})
	require.NoError(t, err)
	require.True(t, inserted)
}

func TestExportFullAndIncremental(t *testing.T) {
	svc, f, _ := newFixture(t)
	ctx := context.Background()

	seedThought(t, f, "alice", "t_old", "old note", 1000)
	seedThought(t, f, "alice", "t_new", "new note", 9000)

	full, err := svc.Export(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, full.Thoughts, 2)
	require.Empty(t, full.Deleted)
	require.Greater(t, full.SyncTimestamp, int64(0))

	incremental, err := svc.Export(ctx, "alice", 5000)
	require.NoError(t, err)
	require.Len(t, incremental.Thoughts, 1)
	require.Equal(t, "t_new", incremental.Thoughts[0].ID)
}

func TestExportIncludesDeletedIDs(t *testing.T) {
	svc, f, _ := newFixture(t)
	ctx := context.Background()

	seedThought(t, f, "alice", "t_doomed", "to delete", 1000)
	require.NoError(t, f.Thoughts().SoftDelete(ctx, "alice", "t_doomed", time.Now()))

	result, err := svc.Export(ctx, "alice", 0)
	require.NoError(t, err)
	require.Empty(t, result.Thoughts)
	require.Contains(t, result.Deleted, "t_doomed")
}

func TestExportDecryptsConversationMessages(t *testing.T) {
	svc, f, env := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	conv := &model.Conversation{
		ID: "conv_1", User: "alice", Title: "Chat", Status: model.ConversationActive,
		CreatedAt: now, UpdatedAt: now,
		PK: "user#alice", SK: "conv#conv_1", GSI3PK: "user#alice", GSI3SKEpochMs: now.UnixMilli(),
	}
	require.NoError(t, f.Conversations().Create(ctx, conv))

	cipher, err := env.Encrypt("hello world", crypto.AAD{ConversationID: "conv_1", MessageID: "msg_1", UserID: "alice"})
	require.NoError(t, err)
	require.NoError(t, f.Messages().Create(ctx, &model.Message{
		ID: "msg_1", ConversationID: "conv_1", Role: model.RoleUser,
		Ciphertext: cipher, CreatedAt: now,
		PK: "conv#conv_1", SK: "msg#1#msg_1",
	}))

	result, err := svc.Export(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, result.Conversations, 1)
	require.Len(t, result.Conversations[0].Messages, 1)
	require.Equal(t, "hello world", result.Conversations[0].Messages[0].Content)
}

func TestExportExcludesDeletedConversations(t *testing.T) {
	svc, f, _ := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	conv := &model.Conversation{
		ID: "conv_gone", User: "alice", Title: "Gone", Status: model.ConversationActive,
		CreatedAt: now, UpdatedAt: now,
		PK: "user#alice", SK: "conv#conv_gone", GSI3PK: "user#alice", GSI3SKEpochMs: now.UnixMilli(),
	}
	require.NoError(t, f.Conversations().Create(ctx, conv))
	require.NoError(t, f.Messages().DeleteAll(ctx, conv.ID))
	require.NoError(t, f.Conversations().Delete(ctx, "alice", conv.ID))

	result, err := svc.Export(ctx, "alice", 0)
	require.NoError(t, err)
	require.Empty(t, result.Conversations, "tombstoned conversations are not exported")
	require.Contains(t, result.Deleted, "conv_gone")
}

func TestExportIsScopedToUser(t *testing.T) {
	svc, f, _ := newFixture(t)
	ctx := context.Background()

	seedThought(t, f, "alice", "t_alice", "mine", 1000)
	seedThought(t, f, "bob", "t_bob", "theirs", 1000)

	result, err := svc.Export(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, result.Thoughts, 1)
	require.Equal(t, "t_alice", result.Thoughts[0].ID)
}
