// Package ids generates the prefixed, lexically-sortable identifiers used
// across the data model (t_, conv_, msg_). ULIDs give monotonic,
// time-ordered ids without a central sequence, which is what the store's
// sort-key layout assumes.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

func newULID() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewThoughtID returns a fresh "t_"-prefixed id.
func NewThoughtID() string { return "t_" + newULID() }

// NewConversationID returns a fresh "conv_"-prefixed id.
func NewConversationID() string { return "conv_" + newULID() }

// NewMessageID returns a fresh "msg_"-prefixed id.
func NewMessageID() string { return "msg_" + newULID() }
