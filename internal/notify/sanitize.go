package notify

import (
	"regexp"
	"strings"
)

// sensitiveTokens is the case-insensitive vocabulary of key fragments
// whose values are redacted before a log payload leaves the process.
var sensitiveTokens = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
	"credential",
	"private_key",
	"access_key",
}

// kvPattern matches `key=value`-shaped substrings inside free-form log
// strings, for any key built from the sensitive vocabulary.
var kvPattern = regexp.MustCompile(`(?i)(` + strings.Join(sensitiveTokens, "|") + `)\s*[:=]\s*\S+`)

const redacted = "[REDACTED]"

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, tok := range sensitiveTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// Sanitize recursively traverses a log payload, redacting the value of any
// map key matching the sensitive vocabulary and scrubbing `key=value`
// patterns found inside string bodies.
func Sanitize(v any) any {
	switch val := v.(type) {
	case string:
		return kvPattern.ReplaceAllString(val, "$1="+redacted)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if isSensitiveKey(k) {
				out[k] = redacted
				continue
			}
			out[k] = Sanitize(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item)
		}
		return out
	default:
		return v
	}
}
