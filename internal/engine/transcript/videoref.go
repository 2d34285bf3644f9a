package transcript

import (
	"regexp"
	"strings"
)

// videoRefRE matches the 11-char id embedded in watch, youtu.be, embed and shorts URLs.
var videoRefRE = regexp.MustCompile(`(?:v=|/embed/|youtu\.be/|/shorts/)([A-Za-z0-9_-]{11})`)

// bareRefRE matches an input that is already a bare video id.
var bareRefRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractReference returns the 11-character video id found in s.
// Accepts standard watch links, short links, embed links, shorts links and bare ids.
func ExtractReference(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if bareRefRE.MatchString(s) {
		return s, true
	}
	if m := videoRefRE.FindStringSubmatch(s); len(m) >= 2 {
		return m[1], true
	}
	return "", false
}

// IsValidReference reports whether s carries a usable video id.
func IsValidReference(s string) bool {
	_, ok := ExtractReference(s)
	return ok
}
