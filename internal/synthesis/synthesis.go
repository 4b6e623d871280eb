// Package synthesis produces a short, cited answer constrained to
// retrieved context, or abstains when the context cannot support one.
package synthesis

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/pkg/llm"
)

// maxContext is the most thought-kind results the synthesizer ever
// considers.
const maxContext = 6

const abstentionSentence = "I couldn't find anything in your notes that answers this."

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// ContextItem is one retrieved document offered to the synthesizer,
// already in rerank order.
type ContextItem struct {
	ID        string
	CreatedAt time.Time
	Highlight string // optional: a query-specific snippet, preferred over Summary/Text when present
	Summary   string
	Text      string
	Score     float64 // the retrieval engine's fused "final" score
	Kind      model.Kind
	Tags      model.StringSet
}

// ConversationHit mirrors ContextItem for the conversationHits side
// channel; conversations are never cited with [i], only surfaced
// alongside the answer.
type ConversationHit struct {
	ID        string
	CreatedAt time.Time
	Title     string
	Summary   string
	Score     float64
}

// Request is one synthesis call.
type Request struct {
	Query            string
	Context          []ContextItem // already limited/ranked by the caller; Synthesize further caps at maxContext
	ConversationHits []ConversationHit
	// PriorMessages, most recent last, are appended to the system prompt
	// in conversational mode. Empty for ad-hoc /ask.
	PriorMessages []string
}

// Result is the synthesizer's output, matching the /ask and SendMessage
// response shapes.
type Result struct {
	Answer           string
	Citations        []model.Citation
	ConversationHits []model.Citation // normalized independently of thought citations
	Confidence       float64
}

// Synthesizer turns retrieved context into a grounded answer.
type Synthesizer struct {
	Chat llm.ChatProvider
}

// NewSynthesizer wires a Synthesizer.
func NewSynthesizer(chat llm.ChatProvider) *Synthesizer {
	return &Synthesizer{Chat: chat}
}

// Synthesize runs the full algorithm: snippet construction, LLM call,
// citation extraction, confidence, and normalization. It never returns an
// error — every failure mode has a defined fallback
// output instead.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) Result {
	ctxItems := req.Context
	if len(ctxItems) > maxContext {
		ctxItems = ctxItems[:maxContext]
	}

	convCitations := normalizeConversationHits(req.ConversationHits)

	if len(ctxItems) == 0 {
		// Conversation-hits-only
		// context still abstains on thought citations. conversationHits
		// are returned as a separate side channel, never cited via [i].
		return Result{Answer: abstentionSentence, Confidence: 0.1, ConversationHits: convCitations}
	}

	snippets, numbered := buildSnippets(ctxItems)

	if s.Chat == nil {
		return extractiveFallback(ctxItems, convCitations)
	}

	prompt := buildPrompt(req.Query, snippets, req.PriorMessages)
	out, err := s.Chat.Generate(ctx, prompt, "")
	if err != nil {
		logger.Warnw("synthesis: chat generate failed, falling back to extractive answer", "error", err.Error())
		return extractiveFallback(ctxItems, convCitations)
	}

	refs := extractReferences(out, len(numbered))
	citations := make([]model.Citation, 0, len(refs))
	kept := make(map[int]struct{}, len(refs))
	for _, i := range refs {
		item := numbered[i-1]
		if item.Score < 0.3 {
			continue
		}
		kept[i] = struct{}{}
		citations = append(citations, toCitation(item))
	}
	// Every [i] left in the answer must map to an emitted citation, so
	// markers whose item fell below the citation floor — or that point
	// outside the snippet list — are stripped from the text.
	out = stripReferences(out, kept)

	confidence := confidenceFor(citations)
	normalizeCitationScores(citations)

	return Result{Answer: strings.TrimSpace(out), Citations: citations, Confidence: confidence, ConversationHits: convCitations}
}

func buildSnippets(items []ContextItem) (string, []ContextItem) {
	var sb strings.Builder
	for i, item := range items {
		body := item.Highlight
		if body == "" {
			body = item.Summary
		}
		if body == "" {
			body = truncateRunes(item.Text, 150)
		}
		fmt.Fprintf(&sb, "[%d] %s - %s\n", i+1, item.CreatedAt.Format("2006-01-02"), body)
	}
	return sb.String(), items
}

func buildPrompt(query, snippets string, priorMessages []string) string {
	var sb strings.Builder
	if len(priorMessages) > 0 {
		sb.WriteString("Prior conversation:\n")
		for _, m := range priorMessages {
			sb.WriteString(m)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("You are answering a question using only the notes below. Cite notes with [i]. If the notes do not answer the question, say so plainly. Keep your answer to 2-3 sentences.\n\n")
	sb.WriteString("Notes:\n")
	sb.WriteString(snippets)
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}

// extractReferences parses and dedupes \[(\d+)\] references, discarding
// any index outside [1, n].
func extractReferences(text string, n int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		i, err := strconv.Atoi(m[1])
		if err != nil || i < 1 || i > n {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}

// refWithSpace matches a [i] marker together with any single space
// immediately before it, so stripping a marker doesn't leave a double
// space behind.
var refWithSpace = regexp.MustCompile(`\s?\[(\d+)\]`)

// stripReferences removes every [i] marker not present in kept.
func stripReferences(text string, kept map[int]struct{}) string {
	return refWithSpace.ReplaceAllStringFunc(text, func(m string) string {
		sub := citationPattern.FindStringSubmatch(m)
		i, err := strconv.Atoi(sub[1])
		if err != nil {
			return m
		}
		if _, ok := kept[i]; ok {
			return m
		}
		return ""
	})
}

func toCitation(item ContextItem) model.Citation {
	preview := item.Summary
	if preview == "" {
		preview = truncateRunes(item.Text, 200)
	}
	return model.Citation{ID: item.ID, CreatedAt: item.CreatedAt, Preview: preview, Score: item.Score, Kind: item.Kind, Tags: item.Tags}
}

// confidenceFor is the mean of the emitted citations' scores, capped at
// 0.95; 0.3 if none were emitted (context existed but nothing cleared the
// 0.3 citation threshold).
func confidenceFor(citations []model.Citation) float64 {
	if len(citations) == 0 {
		return 0.3
	}
	var sum float64
	for _, c := range citations {
		sum += c.Score
	}
	mean := sum / float64(len(citations))
	if mean > 0.95 {
		mean = 0.95
	}
	return mean
}

// normalizeCitationScores min-max normalizes Score to [0,1], rounded to 3
// decimals, in place.
func normalizeCitationScores(citations []model.Citation) {
	if len(citations) == 0 {
		return
	}
	min, max := citations[0].Score, citations[0].Score
	for _, c := range citations {
		if c.Score < min {
			min = c.Score
		}
		if c.Score > max {
			max = c.Score
		}
	}
	spread := max - min
	for i := range citations {
		if spread <= 0 {
			citations[i].Score = round3(1)
			continue
		}
		citations[i].Score = round3((citations[i].Score - min) / spread)
	}
}

func normalizeConversationHits(hits []ConversationHit) []model.Citation {
	if len(hits) == 0 {
		return nil
	}
	out := make([]model.Citation, len(hits))
	for i, h := range hits {
		preview := h.Summary
		if preview == "" {
			preview = h.Title
		}
		out[i] = model.Citation{ID: h.ID, CreatedAt: h.CreatedAt, Preview: preview, Score: h.Score}
	}

	min, max := out[0].Score, out[0].Score
	for _, c := range out {
		if c.Score < min {
			min = c.Score
		}
		if c.Score > max {
			max = c.Score
		}
	}
	spread := max - min
	for i := range out {
		if spread <= 0 {
			out[i].Score = round3(1)
			continue
		}
		out[i].Score = round3((out[i].Score - min) / spread)
	}
	return out
}

func round3(f float64) float64 {
	return float64(int(f*1000+0.5)) / 1000
}

// extractiveFallback is used when the LLM call fails (context non-empty)
// or when no chat provider is configured at all: it quotes the top hit
// verbatim with a single citation and a fixed 0.5 confidence.
func extractiveFallback(items []ContextItem, convCitations []model.Citation) Result {
	top := items[0]
	quote := top.Summary
	if quote == "" {
		quote = truncateRunes(top.Text, 200)
	}
	answer := fmt.Sprintf("From your notes [1]: %s", quote)
	citation := toCitation(top)
	citation.Score = 1 // sole citation, min-max normalizes to 1
	return Result{Answer: answer, Citations: []model.Citation{citation}, Confidence: 0.5, ConversationHits: convCitations}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
