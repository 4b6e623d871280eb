package capture_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kart-io/thoughtweave/internal/capture"
	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/queue"
	"github.com/kart-io/thoughtweave/internal/rawstore"
	"github.com/kart-io/thoughtweave/internal/store"
	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
)

func newTestService(t *testing.T) (*capture.Service, store.Factory, queue.IndexQueue) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	f := store.New(db)
	require.NoError(t, f.AutoMigrate())

	raw, err := rawstore.NewFSStore(t.TempDir())
	require.NoError(t, err)

	q := queue.NewMemoryQueue()
	return capture.NewService(raw, f, q), f, q
}

func TestCaptureWritesRawMetadataAndEnqueues(t *testing.T) {
	svc, f, q := newTestService(t)
	ctx := context.Background()

	res, err := svc.Capture(ctx, "alice", model.CaptureRequest{Text: "remember to rotate the api key"})
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)

	th, err := f.Thoughts().Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", th.User)

	msgs, err := q.Receive(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	job, err := msgs[0].Job()
	require.NoError(t, err)
	require.Equal(t, res.ID, job.ThoughtID)
}

func TestCaptureIsIdempotentOnRetry(t *testing.T) {
	svc, _, q := newTestService(t)
	ctx := context.Background()

	req := model.CaptureRequest{Text: "idempotent capture", IdempotencyID: "t_fixed"}
	res1, err := svc.Capture(ctx, "bob", req)
	require.NoError(t, err)
	res2, err := svc.Capture(ctx, "bob", req)
	require.NoError(t, err)
	require.Equal(t, res1.ID, res2.ID)

	msgs, err := q.Receive(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1, "replayed capture must not enqueue a second index job")
}

func TestCaptureRejectsOversizedText(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	huge := make([]byte, 50001)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err := svc.Capture(ctx, "alice", model.CaptureRequest{Text: string(huge)})
	require.ErrorIs(t, err, twerrors.ErrCaptureValidation)
}

func TestCaptureRedactsSensitiveText(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Capture(ctx, "alice", model.CaptureRequest{
		Text: "my api key is sk-abcdef1234567890abcdef1234567890",
	})
	require.NoError(t, err)

	th, err := f.Thoughts().Get(ctx, "alice", res.ID)
	require.NoError(t, err)
	require.True(t, th.ContainsSensitive)
	require.NotContains(t, th.Text, "sk-abcdef1234567890abcdef1234567890")
}
