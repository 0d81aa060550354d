package bot

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// BuildKeywordRegex creates a regex pattern matching keywords at the START of text.
// Keywords are sorted by length (longest first) to prevent partial matches.
// Uses ^ anchor to match only at beginning. Panics if keywords is empty.
//
// IMPORTANT: Keywords must be followed by a space or be the entire text.
// This prevents false matches like "eliminarlo" triggering "eliminar".
// Use MatchKeyword() to get the matched keyword without trailing space.
//
// Example:
//
//	MatchKeyword(BuildKeywordRegex([]string{"quitar", "quitar flex"}), "quitar flex ahora") // Returns "quitar flex"
//	MatchKeyword(BuildKeywordRegex([]string{"eliminar"}), "eliminar 2")                    // Returns "eliminar"
//	MatchKeyword(BuildKeywordRegex([]string{"eliminar"}), "eliminarlo")                    // Returns "" (no space)
func BuildKeywordRegex(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		panic("BuildKeywordRegex: keywords cannot be empty")
	}

	sorted := make([]string, len(keywords))
	copy(sorted, keywords)

	// Longest first so "quitar flex" wins over "quitar"
	slices.SortFunc(sorted, func(a, b string) int {
		return len(b) - len(a)
	})

	quoted := make([]string, len(sorted))
	for i, k := range sorted {
		quoted[i] = regexp.QuoteMeta(k)
	}

	// Group 1 captures the keyword, (?:\s|$) requires space or end after keyword
	pattern := "(?i)^(" + strings.Join(quoted, "|") + ")(?:\\s|$)"
	return regexp.MustCompile(pattern)
}

// MatchKeyword returns the matched keyword from text using the given regex.
// Returns empty string if no match. The keyword is returned without trailing space.
func MatchKeyword(regex *regexp.Regexp, text string) string {
	match := regex.FindStringSubmatch(text)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// ExtractSearchTerm extracts the argument of a command by removing the matched keyword.
// Handles keyword at beginning, end, or middle of text. Returns trimmed result.
func ExtractSearchTerm(text, keyword string) string {
	if keyword == "" {
		return strings.TrimSpace(text)
	}

	text = strings.TrimSpace(text)

	switch {
	case strings.HasPrefix(text, keyword):
		return strings.TrimSpace(strings.TrimPrefix(text, keyword))
	case strings.HasSuffix(text, keyword):
		return strings.TrimSpace(strings.TrimSuffix(text, keyword))
	default:
		return strings.TrimSpace(strings.Replace(text, keyword, "", 1))
	}
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
