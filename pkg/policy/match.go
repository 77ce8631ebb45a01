package policy

import "strings"

// Matches reports whether mimeType is accepted by patterns.
//
// Matching is case-insensitive and ignores MIME parameters
// ("text/plain; charset=utf-8" matches "text/plain"). A pattern ending in
// "/*" matches every type in its category. An empty pattern list or a "*"
// entry matches everything.
func Matches(mimeType string, patterns []string) bool {
	if isUniversal(patterns) {
		return true
	}
	mt := normalizeMIME(mimeType)
	if mt == "" {
		return false
	}
	for _, pattern := range patterns {
		pattern = normalizeMIME(pattern)
		if category, ok := strings.CutSuffix(pattern, "/*"); ok {
			if c, _, found := strings.Cut(mt, "/"); found && c == category {
				return true
			}
			continue
		}
		if pattern == mt {
			return true
		}
	}
	return false
}

func isUniversal(patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		switch normalizeMIME(p) {
		case Wildcard, "*/*":
			return true
		}
	}
	return false
}

func normalizeMIME(s string) string {
	s, _, _ = strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(s))
}
