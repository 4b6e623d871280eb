package model

// CaptureRequest is the ephemeral, externally supplied payload for a
// capture operation. Kind and Tags are optional; an absent Kind triggers
// auto-detection (internal/capture).
type CaptureRequest struct {
	Text             string          `json:"text" validate:"required,min=1,max=50000"`
	Kind             Kind            `json:"kind,omitempty" validate:"omitempty,oneof=note code link todo decision rationale"`
	Tags             []string        `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	Context          *CaptureContext `json:"context,omitempty"`
	IdempotencyID    string          `json:"idempotencyId,omitempty"`
	CreatedAtEpochMs int64           `json:"createdAt,omitempty"`
}

// IndexJobType discriminates the tagged-union IndexJob.
type IndexJobType string

const (
	IndexJobThought      IndexJobType = "thought"
	IndexJobConversation IndexJobType = "conversation"
)

// IndexJob is the ephemeral, internal queue message the indexer consumes.
// Exactly one of the two payload shapes is populated, selected by Type.
type IndexJob struct {
	Type IndexJobType `json:"type"`

	// thoughtIndex fields.
	ThoughtID   string `json:"thoughtId,omitempty"`
	RawStoreKey string `json:"s3Key,omitempty"`

	// conversationIndex fields.
	ConversationID string `json:"conversationId,omitempty"`

	User             string `json:"user"`
	CreatedAtEpochMs int64  `json:"createdAt,omitempty"`
}
