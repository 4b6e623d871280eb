package synthesis_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/internal/synthesis"
	"github.com/kart-io/thoughtweave/pkg/llm"
)

// chatStub is the minimal llm.ChatProvider used by these tests: a canned
// response (or error), recording the last prompt.
type chatStub struct {
	response   string
	err        error
	lastPrompt string
}

func (f *chatStub) Name() string { return "stub" }

func (f *chatStub) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return "", errors.New("unused")
}

func (f *chatStub) Generate(_ context.Context, prompt, _ string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func item(id, text string, score float64) synthesis.ContextItem {
	return synthesis.ContextItem{
		ID:        id,
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Text:      text,
		Score:     score,
		Kind:      model.KindNote,
	}
}

var refPattern = regexp.MustCompile(`\[(\d+)\]`)

func TestSynthesizeEmitsSoundCitations(t *testing.T) {
	chat := &chatStub{response: "Postgres is configured via postgresql.conf [1] and tuned for writes [2]."}
	s := synthesis.NewSynthesizer(chat)

	ctxItems := []synthesis.ContextItem{
		item("t_1", "postgresql.conf holds the configuration", 0.9),
		item("t_2", "tuned checkpoint_segments for writes", 0.6),
		item("t_3", "unrelated grocery list", 0.5),
	}
	result := s.Synthesize(context.Background(), synthesis.Request{Query: "how is postgres configured?", Context: ctxItems})

	// Every [i] in the answer maps to exactly one citation.
	refs := refPattern.FindAllStringSubmatch(result.Answer, -1)
	require.Len(t, result.Citations, len(refs))
	require.Equal(t, "t_1", result.Citations[0].ID)
	require.Equal(t, "t_2", result.Citations[1].ID)
}

func TestSynthesizeNormalizesCitationScores(t *testing.T) {
	chat := &chatStub{response: "See [1], [2] and [3]."}
	s := synthesis.NewSynthesizer(chat)

	result := s.Synthesize(context.Background(), synthesis.Request{
		Query: "q",
		Context: []synthesis.ContextItem{
			item("t_1", "a", 0.9),
			item("t_2", "b", 0.6),
			item("t_3", "c", 0.45),
		},
	})

	require.Len(t, result.Citations, 3)
	require.Equal(t, 1.0, result.Citations[0].Score, "max citation score must normalize to 1.0")
	for _, c := range result.Citations {
		require.GreaterOrEqual(t, c.Score, 0.0)
		require.LessOrEqual(t, c.Score, 1.0)
		require.Equal(t, c.Score, float64(int(c.Score*1000+0.5))/1000, "scores are rounded to 3 decimals")
	}
}

func TestSynthesizeSkipsLowScoreCitations(t *testing.T) {
	chat := &chatStub{response: "Both notes agree [1][2]."}
	s := synthesis.NewSynthesizer(chat)

	result := s.Synthesize(context.Background(), synthesis.Request{
		Query: "q",
		Context: []synthesis.ContextItem{
			item("t_keep", "kept", 0.8),
			item("t_drop", "dropped", 0.1), // below the 0.3 citation floor
		},
	})

	require.Len(t, result.Citations, 1)
	require.Equal(t, "t_keep", result.Citations[0].ID)

	// The dropped citation's marker is stripped from the answer so every
	// remaining [i] still maps to an emitted citation.
	require.Contains(t, result.Answer, "[1]")
	require.NotContains(t, result.Answer, "[2]")
	require.Len(t, refPattern.FindAllString(result.Answer, -1), len(result.Citations))
}

func TestSynthesizeAbstainsOnEmptyContext(t *testing.T) {
	chat := &chatStub{response: "should never be called"}
	s := synthesis.NewSynthesizer(chat)

	result := s.Synthesize(context.Background(), synthesis.Request{Query: "nonexistent_term_xyz123"})

	require.Empty(t, result.Citations)
	require.InDelta(t, 0.1, result.Confidence, 0.001)
	require.NotEmpty(t, result.Answer)
	require.Empty(t, chat.lastPrompt, "no LLM call on empty context")
}

func TestSynthesizeExtractiveFallbackOnChatFailure(t *testing.T) {
	chat := &chatStub{err: errors.New("upstream 500")}
	s := synthesis.NewSynthesizer(chat)

	result := s.Synthesize(context.Background(), synthesis.Request{
		Query:   "q",
		Context: []synthesis.ContextItem{item("t_top", "the top ranked note", 0.7)},
	})

	require.Len(t, result.Citations, 1)
	require.Equal(t, "t_top", result.Citations[0].ID)
	require.InDelta(t, 0.5, result.Confidence, 0.001)
	require.Contains(t, result.Answer, "[1]")
}

func TestSynthesizeConversationHitsSideChannel(t *testing.T) {
	chat := &chatStub{response: "no idea"}
	s := synthesis.NewSynthesizer(chat)

	result := s.Synthesize(context.Background(), synthesis.Request{
		Query: "q",
		ConversationHits: []synthesis.ConversationHit{
			{ID: "conv_1", Title: "older chat", Score: 0.8},
			{ID: "conv_2", Title: "newer chat", Score: 0.4},
		},
	})

	// Thought-empty context abstains, but conversation hits still
	// surface, independently normalized.
	require.Empty(t, result.Citations)
	require.Len(t, result.ConversationHits, 2)
	require.Equal(t, 1.0, result.ConversationHits[0].Score)
	require.Equal(t, 0.0, result.ConversationHits[1].Score)
}

func TestSynthesizeIgnoresOutOfRangeReferences(t *testing.T) {
	chat := &chatStub{response: "Cites [1] and a hallucinated [9]."}
	s := synthesis.NewSynthesizer(chat)

	result := s.Synthesize(context.Background(), synthesis.Request{
		Query:   "q",
		Context: []synthesis.ContextItem{item("t_1", "only note", 0.9)},
	})

	require.Len(t, result.Citations, 1)
	require.Equal(t, "t_1", result.Citations[0].ID)
	require.NotContains(t, result.Answer, "[9]", "hallucinated references are stripped")
	require.Contains(t, result.Answer, "[1]")
}

func TestSynthesizeConversationalModeIncludesHistory(t *testing.T) {
	chat := &chatStub{response: "Answer [1]."}
	s := synthesis.NewSynthesizer(chat)

	s.Synthesize(context.Background(), synthesis.Request{
		Query:         "what did I say first?",
		Context:       []synthesis.ContextItem{item("t_1", "note", 0.9)},
		PriorMessages: []string{"Q: Hello", "A: Hi there"},
	})

	require.Contains(t, chat.lastPrompt, "Q: Hello")
	require.Contains(t, chat.lastPrompt, "A: Hi there")
}
