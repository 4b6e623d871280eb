package model

import "time"

// ConversationStatus is the state-machine state of a Conversation.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
	ConversationDeleted  ConversationStatus = "deleted"
)

// Conversation is a user-scoped chat session containing ordered messages.
// Identity is a "conv_"-prefixed id.
type Conversation struct {
	ID   string `json:"id" gorm:"primaryKey;type:varchar(40)"`
	PK   string `json:"-" gorm:"column:pk;type:varchar(80);uniqueIndex:idx_conv_pk_sk"`
	SK   string `json:"-" gorm:"column:sk;type:varchar(80);uniqueIndex:idx_conv_pk_sk"`
	User string `json:"user" gorm:"column:owner;type:varchar(80);index"`

	Title        string             `json:"title" gorm:"type:varchar(255)"`
	Status       ConversationStatus `json:"status" gorm:"type:varchar(16);index"`
	MessageCount int                `json:"messageCount"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	IndexedAt *time.Time `json:"indexedAt,omitempty"`

	GSI3PK        string `json:"-" gorm:"column:gsi3pk;type:varchar(80);index:idx_conv_gsi3"`
	GSI3SKEpochMs int64  `json:"-" gorm:"column:gsi3sk;index:idx_conv_gsi3"`
}

// TableName pins the gorm table name.
func (Conversation) TableName() string { return "conversations" }

// MessageRole distinguishes the human and assistant turns of a conversation.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Citation is a reference emitted by the synthesizer to a specific
// retrieved thought.
type Citation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Preview   string    `json:"preview"`
	Score     float64   `json:"score"`
	Kind      Kind      `json:"kind"`
	Tags      StringSet `json:"tags"`
}

// Message is owned by exactly one Conversation. Plaintext is never
// persisted: Ciphertext is produced by envelope encryption bound to AAD
// {conversationId, messageId, userId}.
type Message struct {
	ID             string      `json:"id" gorm:"primaryKey;type:varchar(40)"`
	PK             string      `json:"-" gorm:"column:pk;type:varchar(80);uniqueIndex:idx_msg_pk_sk"`
	SK             string      `json:"-" gorm:"column:sk;type:varchar(80);uniqueIndex:idx_msg_pk_sk"`
	ConversationID string      `json:"conversationId" gorm:"type:varchar(40);index"`
	Role           MessageRole `json:"role" gorm:"type:varchar(16)"`
	Ciphertext     string      `json:"ciphertext" gorm:"type:text"`
	CreatedAt      time.Time   `json:"createdAt"`

	// Assistant-only fields.
	Citations          []Citation `json:"citations,omitempty" gorm:"type:jsonb;serializer:json"`
	SearchedThoughtIDs StringSet  `json:"searchedThoughtIds,omitempty" gorm:"type:jsonb;serializer:json"`
	Confidence         float64    `json:"confidence,omitempty"`
}

// TableName pins the gorm table name.
func (Message) TableName() string { return "messages" }

// DecryptedMessage is a Message with its plaintext recovered, used only at
// the boundary where a caller is entitled to see it (Get, SendMessage
// response, Export). It is never persisted.
type DecryptedMessage struct {
	Message
	Content string `json:"content"`
}
