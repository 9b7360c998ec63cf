package projector

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tailfin-ai/tailfin/internal/core/domain"
)

// sensitiveKeySubstrings is the fixed list of key fragments that mark a map
// entry as secret-bearing. Matching is case-insensitive and substring-based,
// so "X-Api-Key" and "github_token" both match.
var sensitiveKeySubstrings = []string{
	"api_key",
	"apikey",
	"authorization",
	"token",
	"secret",
	"password",
	"passphrase",
	"bearer",
	"client_secret",
	"access_token",
	"refresh_token",
	"id_token",
}

const redactedPlaceholder = "<redacted>"

// Sanitize walks a JSON-like value and applies two safety transforms: map
// entries under sensitive keys are replaced wholesale with "<redacted>"
// (without recursing into the value), and strings longer than maxStringChars
// are cut to exactly maxStringChars. Every transform is recorded as a notice
// at the dot/[i] path where it happened. Non-map/slice/string scalars pass
// through unchanged. Sanitize is a pure function; the input value is never
// mutated.
func Sanitize(value any, path string, maxStringChars int) (any, []domain.Notice) {
	switch v := value.(type) {
	case map[string]any:
		return sanitizeMap(v, path, maxStringChars)
	case []any:
		return sanitizeSlice(v, path, maxStringChars)
	case string:
		if maxStringChars > 0 && utf8.RuneCountInString(v) > maxStringChars {
			return truncateRunes(v, maxStringChars), []domain.Notice{{
				Type:    domain.NoticeTruncated,
				Path:    path,
				Message: fmt.Sprintf("string truncated to %d chars", maxStringChars),
			}}
		}
		return v, nil
	default:
		return value, nil
	}
}

func sanitizeMap(m map[string]any, path string, maxStringChars int) (any, []domain.Notice) {
	out := make(map[string]any, len(m))
	var notices []domain.Notice

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		childPath := joinPath(path, k)
		if isSensitiveKey(k) {
			out[k] = redactedPlaceholder
			notices = append(notices, domain.Notice{
				Type:    domain.NoticeRedacted,
				Path:    childPath,
				Message: "value redacted",
			})
			continue
		}
		child, childNotices := Sanitize(m[k], childPath, maxStringChars)
		out[k] = child
		notices = append(notices, childNotices...)
	}
	return out, notices
}

func sanitizeSlice(s []any, path string, maxStringChars int) (any, []domain.Notice) {
	out := make([]any, len(s))
	var notices []domain.Notice
	for i, item := range s {
		child, childNotices := Sanitize(item, fmt.Sprintf("%s[%d]", path, i), maxStringChars)
		out[i] = child
		notices = append(notices, childNotices...)
	}
	return out, notices
}

// truncateRunes cuts s to exactly n characters. Limits are in characters,
// not bytes; a cut never lands inside a multibyte rune.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range sensitiveKeySubstrings {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
