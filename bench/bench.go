// Package bench recognizes bench directives in thread replies and tokenizes their
// character-name payload. A directive starts with the word "bench"; it never fires on
// words that merely contain it (a character named Benchwarmer is not a directive).
package bench

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// punctuation that may follow the leading "bench" keyword, besides whitespace.
const keywordPunct = ":;,."

var splitPattern = regexp.MustCompile(`[,\s]+`)

// IsDirective reports whether content is a bench directive: after trimming and
// lower-casing, it must begin with the literal "bench" followed by end-of-string,
// whitespace, or delimiter punctuation.
func IsDirective(content string) bool {
	s := strings.ToLower(strings.TrimSpace(content))
	if !strings.HasPrefix(s, "bench") {
		return false
	}
	rest := s[len("bench"):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r) || strings.ContainsRune(keywordPunct, r)
}

// ParseNames extracts character names from a directive. If a "bench:" delimiter is
// present, only the text after the first one is tokenized; otherwise the whole text
// is. Tokens are split on runs of comma/whitespace, stripped of leading/trailing
// punctuation, and exactly the first case-insensitive bare "bench" token is removed.
// Later "bench" tokens are kept as literal names; order and duplicates are preserved.
func ParseNames(content string) []string {
	payload := content
	if i := indexBenchColon(content); i >= 0 {
		payload = content[i:]
	}

	words := splitPattern.Split(payload, -1)
	var names []string
	foundBench := false
	for _, w := range words {
		w = strings.Trim(w, `.,:;!?()[]"'`)
		if w == "" {
			continue
		}
		if !foundBench && strings.EqualFold(w, "bench") {
			foundBench = true
			continue
		}
		names = append(names, w)
	}
	return names
}

// indexBenchColon returns the offset just past the first case-insensitive "bench:",
// or -1 when absent.
func indexBenchColon(content string) int {
	i := strings.Index(strings.ToLower(content), "bench:")
	if i < 0 {
		return -1
	}
	return i + len("bench:")
}
