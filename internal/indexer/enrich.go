package indexer

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/thoughtweave/internal/model"
	"github.com/kart-io/thoughtweave/pkg/llm"
)

// shortTextChars is the threshold under which summarize truncates instead
// of calling the LLM.
const shortTextChars = 100

// maxEntities caps the named-entity set regardless of what the model
// returns.
const maxEntities = 3

// summarize produces a <=15-word summary of a thought's text. Short texts
// are truncated rather than sent to the LLM; everything else gets a
// one-sentence LLM summary with a truncation fallback on failure.
func summarize(ctx context.Context, chat llm.ChatProvider, text string) string {
	if len(text) < shortTextChars {
		return truncateWords(text, 15)
	}
	if chat == nil {
		return truncateWords(text, 15)
	}
	out, err := chat.Generate(ctx, "Summarize the following note in one sentence, at most 15 words:\n\n"+text, "")
	if err != nil {
		logger.Warnw("indexer: summarize call failed, falling back to truncation", "error", err.Error())
		return truncateWords(text, 15)
	}
	return truncateWords(out, 15)
}

// tagResult is the smartTags output: the fields the indexer writes to a
// thought's derived columns.
type tagResult struct {
	Tags     model.StringSet
	Category model.Category
	Intent   model.Intent
	Entities model.StringSet
}

var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// smartTags asks the chat provider for a strict-JSON classification of
// text: 3-5 lower-kebab-case tags, a category, an intent, and up to 3
// named entities. Any failure — no provider, call error, malformed JSON —
// falls back to a deterministic heuristic so the indexer never blocks on
// LLM availability.
func smartTags(ctx context.Context, chat llm.ChatProvider, text string) tagResult {
	if chat != nil {
		prompt := `Classify the following note. Respond with strict JSON only, no prose, no code fences, matching exactly this shape:
{"tags": ["..."], "category": "engineering|design|product|personal|learning|decision|other", "intent": "note|question|decision|todo|idea|bug-report|feature-request|rationale", "entities": ["..."]}
tags: 3 to 5 lower-kebab-case keywords. entities: at most 3 proper nouns mentioned.

Note:
` + text
		out, err := chat.Generate(ctx, prompt, "")
		if err == nil {
			if r, ok := parseTagResult(out); ok {
				return r
			}
		} else {
			logger.Warnw("indexer: smartTags call failed, falling back to heuristic", "error", err.Error())
		}
	}
	return heuristicTags(text)
}

func parseTagResult(out string) (tagResult, bool) {
	body := strings.TrimSpace(out)
	if m := codeFence.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	var raw struct {
		Tags     []string `json:"tags"`
		Category string   `json:"category"`
		Intent   string   `json:"intent"`
		Entities []string `json:"entities"`
	}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return tagResult{}, false
	}
	tags := dropNone(raw.Tags)
	if len(tags) == 0 {
		return tagResult{}, false
	}
	entities := raw.Entities
	if len(entities) > maxEntities {
		entities = entities[:maxEntities]
	}
	return tagResult{
		Tags:     tags,
		Category: model.Category(raw.Category),
		Intent:   model.Intent(raw.Intent),
		Entities: model.StringSet(entities),
	}, true
}

// dropNone removes the "none" placeholder some models emit instead of an
// empty tag list.
func dropNone(tags []string) model.StringSet {
	out := make(model.StringSet, 0, len(tags))
	for _, t := range tags {
		if strings.EqualFold(t, "none") {
			continue
		}
		out = append(out, t)
	}
	return out
}

// stackKeywords maps a lower-cased keyword to the tag it contributes when
// present in a thought's text, for the no-LLM heuristic path.
var stackKeywords = map[string]string{
	"golang":     "go",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"kubernetes": "kubernetes",
	"k8s":        "kubernetes",
	"docker":     "docker",
	"redis":      "redis",
	"kafka":      "kafka",
	"grpc":       "grpc",
	"react":      "react",
	"typescript": "typescript",
	"python":     "python",
	"rust":       "rust",
}

// heuristicTags is the deterministic fallback classifier used whenever no
// chat provider is configured or the LLM call/parse fails. It never
// returns an empty tag set: absent any keyword match it falls back to the
// text's detected kind.
func heuristicTags(text string) tagResult {
	lower := strings.ToLower(text)

	var tags model.StringSet
	for kw, tag := range stackKeywords {
		if strings.Contains(lower, kw) {
			tags = append(tags, tag)
		}
	}

	category := model.CategoryOther
	switch {
	case strings.Contains(lower, "design") || strings.Contains(lower, "ux") || strings.Contains(lower, "mockup"):
		category = model.CategoryDesign
	case strings.Contains(lower, "roadmap") || strings.Contains(lower, "feature") || strings.Contains(lower, "user"):
		category = model.CategoryProduct
	case strings.Contains(lower, "learn") || strings.Contains(lower, "tutorial") || strings.Contains(lower, "course"):
		category = model.CategoryLearning
	case strings.Contains(lower, "!decision") || strings.Contains(lower, "decided"):
		category = model.CategoryDecision
	case len(tags) > 0 || strings.Contains(text, "```"):
		category = model.CategoryEngineering
	}

	intent := model.IntentNote
	switch {
	case strings.Contains(lower, "!decision") || strings.Contains(lower, "decided") || strings.Contains(lower, "we will"):
		intent = model.IntentDecision
	case strings.Contains(lower, "!rationale") || strings.Contains(lower, "because"):
		intent = model.IntentRationale
	case strings.Contains(lower, "!todo") || strings.HasPrefix(lower, "todo"):
		intent = model.IntentTodo
	case strings.Contains(lower, "bug") || strings.Contains(lower, "broken") || strings.Contains(lower, "crash"):
		intent = model.IntentBugReport
	case strings.Contains(lower, "should we") || strings.Contains(lower, "would it"):
		intent = model.IntentFeatureRequest
	case strings.Contains(text, "?"):
		intent = model.IntentQuestion
	case strings.Contains(lower, "idea") || strings.Contains(lower, "what if"):
		intent = model.IntentIdea
	}

	if len(tags) == 0 {
		tags = model.StringSet{string(category)}
	}

	return tagResult{Tags: tags, Category: category, Intent: intent}
}

// truncateWords returns at most the first n whitespace-separated words of
// s, appending an ellipsis if anything was cut.
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.TrimSpace(s)
	}
	return strings.Join(words[:n], " ") + "..."
}
