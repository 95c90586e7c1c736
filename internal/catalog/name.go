// Package catalog derives canonical names for published drafts.
package catalog

import (
	"fmt"
	"strings"
)

const maxTitleSlugLen = 30

// CanonicalName derives the public catalog name for a draft from its title
// and first author, e.g. ("Foo Protocol", "Jane Doe") -> "draft-doe-foo-protocol".
func CanonicalName(title string, authors []string) string {
	surname := "unknown"
	if len(authors) > 0 {
		fields := strings.Fields(authors[0])
		if len(fields) > 0 {
			surname = sanitize(fields[len(fields)-1])
		}
	}
	if surname == "" {
		surname = "unknown"
	}

	slug := sanitize(title)
	if len(slug) > maxTitleSlugLen {
		head := slug[:maxTitleSlugLen]
		// Drop the word the cut landed in; a cut exactly on a word
		// boundary keeps the full word.
		if slug[maxTitleSlugLen] != '-' {
			if i := strings.LastIndexByte(head, '-'); i > 0 {
				head = head[:i]
			}
		}
		slug = strings.TrimRight(head, "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return "draft-" + surname + "-" + slug
}

// Disambiguate appends a numeric suffix for collision retries: attempt 0
// returns the base name, attempt 1 returns name-2, and so on.
func Disambiguate(name string, attempt int) string {
	if attempt <= 0 {
		return name
	}
	return fmt.Sprintf("%s-%d", name, attempt+1)
}

func sanitize(value string) string {
	slug := make([]rune, 0, len(value))
	lastDash := false
	for _, ch := range strings.ToLower(strings.TrimSpace(value)) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			slug = append(slug, ch)
			lastDash = false
			continue
		}
		if !lastDash && len(slug) > 0 {
			slug = append(slug, '-')
			lastDash = true
		}
	}
	return strings.Trim(string(slug), "-")
}
