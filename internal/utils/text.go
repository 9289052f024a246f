package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics so "Gestão" matches "gestao"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// ContainsFolded reports whether needle occurs in haystack ignoring case and accents
func ContainsFolded(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}

// ContainsAnyFolded reports whether any needle occurs in haystack
func ContainsAnyFolded(haystack string, needles ...string) bool {
	h := Fold(haystack)
	for _, n := range needles {
		if n != "" && strings.Contains(h, Fold(n)) {
			return true
		}
	}
	return false
}

// TruncateRunes returns at most n runes of s and whether s was cut
func TruncateRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", s != ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

// WordCount counts whitespace-separated words
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Dedupe removes repeated entries (case-insensitive) preserving order
func Dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := Fold(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
