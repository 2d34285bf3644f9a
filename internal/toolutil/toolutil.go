// Package toolutil provides small helpers shared by the MCP tools and the notebook.
package toolutil

import (
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_edunote/internal/engine"
)

// NormLang normalises a language field: empty string → "auto".
func NormLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "auto"
	}
	return lang
}

// SplitLangs splits a comma-separated language list, dropping blanks.
// Order is preserved; nil means no preference.
func SplitLangs(list string) []string {
	var out []string
	for _, lang := range strings.Split(list, ",") {
		if lang = strings.TrimSpace(lang); lang != "" {
			out = append(out, lang)
		}
	}
	return out
}

// Clip caps text at limit runes and reports whether it cut anything.
// limit <= 0 returns text unchanged.
func Clip(text string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	return engine.TruncateRunes(text, limit, "..."), true
}
