package capture

import "regexp"

// secretPatterns matches well-known API-key shapes. Order doesn't matter;
// all patterns are applied on every call.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),        // OpenAI
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`), // GitHub
	regexp.MustCompile(`npm_[A-Za-z0-9]{36}`),        // npm
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),           // AWS access key
}

const redactedPlaceholder = "[REDACTED]"

// Redact replaces every substring matching a known secret pattern with a
// fixed placeholder. Redact is idempotent: redact(redact(t)) == redact(t),
// since the placeholder itself never matches a secret pattern.
func Redact(text string) string {
	out := text
	for _, p := range secretPatterns {
		out = p.ReplaceAllString(out, redactedPlaceholder)
	}
	return out
}

// Redacted reports whether applying Redact would change text.
func Redacted(text string) bool {
	return Redact(text) != text
}
