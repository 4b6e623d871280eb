package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Domain error taxonomy for the capture/index/retrieve/answer pipeline.
// Kind names match the vocabulary callers branch on, not Go type names.

var (
	// ErrCaptureValidation covers malformed capture requests: missing text,
	// text outside the 1-50000 char range, malformed tags.
	ErrCaptureValidation = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryRequest, 0),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "invalid capture request",
	})

	// ErrConversationValidation covers malformed conversation/message input.
	ErrConversationValidation = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryRequest, 1),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "invalid conversation request",
	})

	// ErrNoAuthContext fires when no validated user identifier is present
	// on the request. The core never validates API keys itself (an
	// upstream authorizer does); it only requires the context be present.
	ErrNoAuthContext = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryAuth, 0),
		HTTP:      http.StatusUnauthorized,
		GRPCCode:  codes.Unauthenticated,
		MessageEN: "missing auth context",
	})

	// ErrThoughtNotFound covers unknown or soft-deleted thought ids.
	ErrThoughtNotFound = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryResource, 0),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "thought not found",
	})

	// ErrConversationNotFound covers unknown or deleted conversations.
	ErrConversationNotFound = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryResource, 1),
		HTTP:      http.StatusNotFound,
		GRPCCode:  codes.NotFound,
		MessageEN: "conversation not found",
	})

	// ErrCaptureConflict is the idempotent-success branch: the metadata
	// row for this id already exists. Handlers treat this as success, not
	// as a surfaced error, but it is registered so callers that inspect
	// the store layer directly have a named outcome to branch on.
	ErrCaptureConflict = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryConflict, 0),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.AlreadyExists,
		MessageEN: "capture already exists",
	})

	// ErrConversationStatusConflict fires on a status transition that
	// races with a concurrent writer (conditional update miss).
	ErrConversationStatusConflict = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryConflict, 1),
		HTTP:      http.StatusConflict,
		GRPCCode:  codes.Aborted,
		MessageEN: "conversation was modified concurrently",
	})

	// ErrUpstreamRateLimited covers LLM/embedding/store throttling
	// surfaced back to the caller after the resilience layer's retries
	// are exhausted.
	ErrUpstreamRateLimited = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryRateLimit, 0),
		HTTP:      http.StatusTooManyRequests,
		GRPCCode:  codes.ResourceExhausted,
		MessageEN: "upstream provider rate limited the request",
	})

	// ErrCapturePartialFailure is returned only when the raw blob and/or
	// metadata row were written but the index enqueue failed — the
	// thought exists but will never become searchable without manual
	// intervention, so this must surface, never be swallowed.
	ErrCapturePartialFailure = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryInternal, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "capture partially failed: indexing was not enqueued",
	})

	// ErrIndexerUpstream wraps embedding/LLM/vector-index failures during
	// indexing; the queue's partial-batch-failure contract is the retry
	// mechanism, this error only marks the message failed.
	ErrIndexerUpstream = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryInternal, 1),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "indexer upstream call failed",
	})

	// ErrDecryptionFailed fires on an AAD mismatch or ciphertext
	// corruption. Never carries plaintext in its message or cause chain.
	ErrDecryptionFailed = Register(&Errno{
		Code:      MakeCode(ServiceThoughtWeave, CategoryDecryption, 0),
		HTTP:      http.StatusInternalServerError,
		GRPCCode:  codes.Internal,
		MessageEN: "message decryption failed",
	})
)
