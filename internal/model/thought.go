// Package model provides the persistent and ephemeral data types for the
// ThoughtWeave knowledge engine.
package model

import "time"

// Kind classifies a Thought by how it was authored.
type Kind string

const (
	KindNote      Kind = "note"
	KindCode      Kind = "code"
	KindLink      Kind = "link"
	KindTodo      Kind = "todo"
	KindDecision  Kind = "decision"
	KindRationale Kind = "rationale"
)

// Category classifies a Thought by subject area. Written only by the indexer.
type Category string

const (
	CategoryEngineering Category = "engineering"
	CategoryDesign      Category = "design"
	CategoryProduct     Category = "product"
	CategoryPersonal    Category = "personal"
	CategoryLearning    Category = "learning"
	CategoryDecision    Category = "decision"
	CategoryOther       Category = "other"
)

// Intent classifies the communicative purpose of a Thought. Written only by
// the indexer.
type Intent string

const (
	IntentNote           Intent = "note"
	IntentQuestion       Intent = "question"
	IntentDecision       Intent = "decision"
	IntentTodo           Intent = "todo"
	IntentIdea           Intent = "idea"
	IntentBugReport      Intent = "bug-report"
	IntentFeatureRequest Intent = "feature-request"
	IntentRationale      Intent = "rationale"
)

// CaptureContext records the ambient authoring context a thought was
// captured under. All fields are optional; an absent CaptureContext is
// represented as a nil pointer, never as a struct of empty strings — the
// metadata store's secondary indices rely on that distinction.
type CaptureContext struct {
	App         string `json:"app,omitempty"`
	WindowTitle string `json:"windowTitle,omitempty"`
	Repository  string `json:"repository,omitempty"`
	Branch      string `json:"branch,omitempty"`
	File        string `json:"file,omitempty"`
}

// Thought is an immutable-by-default user artifact. Identity is an opaque
// id prefixed "t_", unique per user.
//
// Derived fields (Summary through DecisionScore) are written exclusively by
// the indexer; the capture path never sets them.
type Thought struct {
	ID   string `json:"id" gorm:"primaryKey;type:varchar(40)"`
	PK   string `json:"-" gorm:"column:pk;type:varchar(80);uniqueIndex:idx_thought_pk_sk"`
	SK   string `json:"-" gorm:"column:sk;type:varchar(80);uniqueIndex:idx_thought_pk_sk"`
	User string `json:"user" gorm:"column:owner;type:varchar(80);index"`

	CreatedAtEpochMs int64     `json:"createdAtEpochMs" gorm:"index"`
	CreatedAt        time.Time `json:"createdAt"`

	Text string    `json:"text" gorm:"type:text"`
	Kind Kind      `json:"kind" gorm:"type:varchar(16);index:idx_thought_gsi1"`
	Tags StringSet `json:"tags" gorm:"type:jsonb;serializer:json"`

	Context *CaptureContext `json:"context,omitempty" gorm:"type:jsonb;serializer:json"`

	// Derived — indexer-only.
	Summary           string     `json:"summary,omitempty"`
	AutoTags          StringSet  `json:"autoTags,omitempty" gorm:"type:jsonb;serializer:json"`
	Category          Category   `json:"category,omitempty" gorm:"type:varchar(16)"`
	Intent            Intent     `json:"intent,omitempty" gorm:"type:varchar(24)"`
	Entities          StringSet  `json:"entities,omitempty" gorm:"type:jsonb;serializer:json"`
	RelatedIDs        StringSet  `json:"relatedIds,omitempty" gorm:"type:jsonb;serializer:json"`
	EmbeddingRef      string     `json:"embeddingRef,omitempty"`
	IndexedAt         *time.Time `json:"indexedAt,omitempty"`
	DecisionScore     float64    `json:"decisionScore"`
	ContainsSensitive bool       `json:"containsSensitive"`

	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`

	GSI1PK string `json:"-" gorm:"column:gsi1pk;type:varchar(40);index:idx_thought_gsi1"`
	GSI1SK int64  `json:"-" gorm:"column:gsi1sk;index:idx_thought_gsi1"`
}

// TableName pins the gorm table name.
func (Thought) TableName() string { return "thoughts" }

// StringSet is a deduplicated, order-insensitive set of short strings,
// persisted as a JSON array. Using a named type instead of a bare
// []string keeps the "absent vs empty" distinction explicit at the model
// layer: a nil StringSet is "no tags were ever set", an empty StringSet is
// "tags were cleared".
type StringSet []string

// Contains reports whether s is a member of the set.
func (ss StringSet) Contains(s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Union returns the deduplicated, order-stable union of ss and other.
func (ss StringSet) Union(other StringSet) StringSet {
	seen := make(map[string]struct{}, len(ss)+len(other))
	out := make(StringSet, 0, len(ss)+len(other))
	for _, s := range append(append(StringSet{}, ss...), other...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
