package capture

import (
	"regexp"

	"github.com/kart-io/thoughtweave/internal/model"
)

var inlineTagPattern = regexp.MustCompile(`#([A-Za-z0-9_-]{1,50})`)

// ExtractInlineTags pulls #word occurrences out of text.
func ExtractInlineTags(text string) model.StringSet {
	matches := inlineTagPattern.FindAllStringSubmatch(text, -1)
	out := make(model.StringSet, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// MergeTags computes finalTags(text, userTags) = dedup(userTags ∪
// extract(#tags in text)), order-insensitive.
func MergeTags(text string, userTags []string) model.StringSet {
	return model.StringSet(userTags).Union(ExtractInlineTags(text))
}
