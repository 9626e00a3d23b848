package models

import "strings"

// Slugify derives the URL-friendly slug from a title: lower-cased, runs of
// non-alphanumeric characters collapsed to a single '-', no leading or
// trailing dash. "Hello, World!" -> "hello-world". Deterministic, so any
// title change recomputes to the same slug everywhere.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		default:
			pendingDash = true
		}
	}
	return b.String()
}
