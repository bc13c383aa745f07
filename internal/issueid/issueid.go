// Package issueid extracts canonical issue references from free text.
// The canonical form is PREFIX-NUMBER with an uppercase prefix of 2 to 10
// letters, e.g. TOKI-42.
package issueid

import (
	"regexp"
	"strings"
)

var (
	canonicalPattern  = regexp.MustCompile(`(?i)\b([A-Z]{2,10})-([0-9]+)\b`)
	githubPattern     = regexp.MustCompile(`#([0-9]+)\b`)
	underscorePattern = regexp.MustCompile(`\b([A-Z][A-Z0-9_]{1,10})_([0-9]+)\b`)
)

// Ref is a parsed issue reference
type Ref struct {
	Raw     string // original matched text
	ID      string // canonical id, e.g. TOKI-42 or 123 for #123
	Project string // prefix when present
}

// Extract returns all issue references in the text, canonicalized to
// uppercase and deduplicated case-insensitively, in order of appearance
func Extract(text string) []Ref {
	var refs []Ref
	seen := map[string]bool{}

	for _, m := range canonicalPattern.FindAllStringSubmatch(text, -1) {
		prefix := strings.ToUpper(m[1])
		id := prefix + "-" + m[2]
		if seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, Ref{Raw: m[0], ID: id, Project: prefix})
	}

	for _, m := range githubPattern.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		refs = append(refs, Ref{Raw: m[0], ID: m[1]})
	}

	for _, m := range underscorePattern.FindAllStringSubmatch(text, -1) {
		prefix := strings.ToUpper(strings.TrimSuffix(m[1], "_"))
		id := prefix + "-" + m[2]
		if seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, Ref{Raw: m[0], ID: id, Project: prefix})
	}

	return refs
}

// ExtractIDs returns just the canonical ids
func ExtractIDs(text string) []string {
	refs := Extract(text)
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}

// First returns the first canonical PREFIX-NUMBER reference, or ""
func First(text string) string {
	m := canonicalPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[1]) + "-" + m[2]
}

// Matches reports whether the text contains the given issue id,
// case-insensitively
func Matches(text, issueID string) bool {
	if issueID == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(issueID))
}
