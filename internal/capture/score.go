package capture

import "strings"

// decisionKeywords each contribute +0.1 to decisionScore on occurrence
// (case-insensitive, substring match, counted once per keyword).
var decisionKeywords = []string{
	"decided", "chose", "selected", "picked", "because", "rationale",
	"reason", "tradeoff", "pros", "cons", "alternative", "option",
	"instead of", "rather than", "over",
}

// DecisionScore computes the heuristic capture-time score in [0,1]:
// +0.1 per distinct keyword occurrence, +0.3 for an explicit !decision
// marker, +0.2 for !rationale, clamped to 1.0.
func DecisionScore(text string) float64 {
	lower := strings.ToLower(text)

	var score float64
	for _, kw := range decisionKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}
	if strings.Contains(text, "!decision") {
		score += 0.3
	}
	if strings.Contains(text, "!rationale") {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
