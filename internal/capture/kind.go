package capture

import (
	"regexp"
	"strings"

	"github.com/kart-io/thoughtweave/internal/model"
)

var urlPattern = regexp.MustCompile(`https?://`)

// DetectKind applies the auto-detection priority rules to text: code
// fence, then link, then the bang-markers, then a prose fallback. The
// result is a pure function of text alone (property: kind-detection
// purity).
func DetectKind(text string) model.Kind {
	switch {
	case strings.Contains(text, "```"):
		return model.KindCode
	case urlPattern.MatchString(text):
		return model.KindLink
	case strings.Contains(text, "!todo"):
		return model.KindTodo
	case strings.Contains(text, "!decision"):
		return model.KindDecision
	case strings.Contains(text, "!rationale") || strings.Contains(strings.ToLower(text), "because"):
		return model.KindRationale
	default:
		return model.KindNote
	}
}
