package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/thoughtweave/internal/ids"
	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/queue"
	"github.com/kart-io/thoughtweave/internal/rawstore"
	"github.com/kart-io/thoughtweave/internal/store"
	twerrors "github.com/kart-io/thoughtweave/pkg/errors"
)

const maxTextLen = 50000

// rawRecord is the JSON shape written to the raw object store: both the
// original and sanitized text are kept.
type rawRecord struct {
	ID               string                `json:"id"`
	User             string                `json:"user"`
	OriginalText     string                `json:"originalText"`
	SanitizedText    string                `json:"sanitizedText"`
	Kind             model.Kind            `json:"kind"`
	Tags             model.StringSet       `json:"tags"`
	Context          *model.CaptureContext `json:"context,omitempty"`
	CreatedAtEpochMs int64                 `json:"createdAtEpochMs"`
}

// Result is the Capture operation's success payload.
type Result struct {
	ID        string
	CreatedAt time.Time
}

// Service implements the capture ingest contract: validate,
// derive, persist durably, enqueue — returning as soon as durability is
// guaranteed and before any LLM/vector work.
type Service struct {
	raw   rawstore.Store
	meta  store.Factory
	queue queue.IndexQueue
}

// NewService wires the three collaborators capture ingest depends on.
func NewService(raw rawstore.Store, meta store.Factory, q queue.IndexQueue) *Service {
	return &Service{raw: raw, meta: meta, queue: q}
}

// Capture validates req, derives tags/redaction/decisionScore, and
// executes the three side effects in order: raw blob write, metadata row
// write, index-job enqueue. A repeated call with the same IdempotencyID is
// a no-op at the metadata store and enqueues at most one job.
func (s *Service) Capture(ctx context.Context, user string, req model.CaptureRequest) (Result, error) {
	if err := validateCapture(req); err != nil {
		return Result{}, err
	}

	now := time.Now()
	createdAtEpochMs := req.CreatedAtEpochMs
	if createdAtEpochMs == 0 {
		createdAtEpochMs = now.UnixMilli()
	}
	createdAt := time.UnixMilli(createdAtEpochMs)

	id := req.IdempotencyID
	if id == "" {
		id = ids.NewThoughtID()
	}

	kind := req.Kind
	if kind == "" {
		kind = DetectKind(req.Text)
	}

	sanitized := Redact(req.Text)
	containsSensitive := sanitized != req.Text
	tags := MergeTags(req.Text, req.Tags)
	decisionScore := DecisionScore(req.Text)

	rawKey := fmt.Sprintf("thoughts/%s/%s/%s.json", user, createdAt.Format("2006-01-02"), id)
	record := rawRecord{
		ID: id, User: user, OriginalText: req.Text, SanitizedText: sanitized,
		Kind: kind, Tags: tags, Context: req.Context, CreatedAtEpochMs: createdAtEpochMs,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return Result{}, fmt.Errorf("capture: marshal raw record: %w", err)
	}
	if err := s.raw.Put(ctx, rawKey, data); err != nil {
		return Result{}, fmt.Errorf("capture: write raw blob: %w", err)
	}

	thought := &model.Thought{
		ID:                id,
		PK:                "user#" + user,
		SK:                fmt.Sprintf("ts#%d#%s", createdAtEpochMs, id),
		User:              user,
		CreatedAtEpochMs:  createdAtEpochMs,
		CreatedAt:         createdAt,
		Text:              sanitized,
		Kind:              kind,
		Tags:              tags,
		Context:           req.Context,
		DecisionScore:     decisionScore,
		ContainsSensitive: containsSensitive,
		GSI1PK:            "type#" + string(kind),
		GSI1SK:            createdAtEpochMs,
	}
	inserted, err := s.meta.Thoughts().Create(ctx, thought)
	if err != nil {
		return Result{}, fmt.Errorf("capture: write metadata row: %w", err)
	}
	if !inserted {
		// Idempotent replay: the row already exists, so a job was
		// already enqueued the first time. Nothing left to do.
		return Result{ID: id, CreatedAt: createdAt}, nil
	}

	if err := s.meta.UserMeta().Bump(ctx, user, now); err != nil {
		logger.Warnw("capture: failed to bump lastDataChange", "user", user, "error", err.Error())
	}

	job := model.IndexJob{
		Type: model.IndexJobThought, ThoughtID: id, RawStoreKey: rawKey,
		User: user, CreatedAtEpochMs: createdAtEpochMs,
	}
	if err := s.queue.Send(ctx, job); err != nil {
		// The thought exists but will never become searchable without
		// manual intervention: this must surface, never be swallowed.
		logger.Errorw("capture: enqueue failed after durable write", "thoughtId", id, "error", err.Error())
		return Result{}, twerrors.ErrCapturePartialFailure.WithCause(err)
	}

	return Result{ID: id, CreatedAt: createdAt}, nil
}

func validateCapture(req model.CaptureRequest) error {
	if len(req.Text) < 1 || len(req.Text) > maxTextLen {
		return twerrors.ErrCaptureValidation.WithMessagef("text length must be 1-%d chars, got %d", maxTextLen, len(req.Text))
	}
	if len(req.Tags) > 20 {
		return twerrors.ErrCaptureValidation.WithMessage("at most 20 tags allowed")
	}
	for _, tag := range req.Tags {
		if !validTag(tag) {
			return twerrors.ErrCaptureValidation.WithMessagef("invalid tag %q", tag)
		}
	}
	return nil
}

func validTag(tag string) bool {
	if len(tag) < 1 || len(tag) > 50 {
		return false
	}
	for _, r := range tag {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
		if !ok {
			return false
		}
	}
	return true
}
