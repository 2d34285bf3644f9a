package transcript

import "strings"

// DefaultLanguages is the primary-source priority list tried after any explicit preference.
var DefaultLanguages = []string{
	"en", "hi", "es", "fr", "pt", "de", "ru", "ja", "zh-Hans",
	"zh", "ar", "it", "ko", "nl", "tr", "vi", "pl", "id",
}

// DefaultFallbackLanguages is the smaller list used against the caption endpoint.
var DefaultFallbackLanguages = []string{"en", "en-US", "en-GB"}

// LangAuto requests automatic language selection.
const LangAuto = "auto"

// LangDefault marks "let the source pick its default track".
const LangDefault = ""

// BuildLanguageAttempts returns the ordered, de-duplicated candidate list:
// explicit preferences, then the source default, then the priority list.
// An empty prefs (or only "auto") yields default followed by priority.
func BuildLanguageAttempts(prefs []string, priority []string) []string {
	explicit := make([]string, 0, len(prefs))
	for _, p := range prefs {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, LangAuto) {
			continue
		}
		explicit = append(explicit, p)
	}

	out := make([]string, 0, len(explicit)+1+len(priority))
	seen := make(map[string]bool, cap(out))
	add := func(code string) {
		if seen[code] {
			return
		}
		seen[code] = true
		out = append(out, code)
	}

	for _, code := range explicit {
		add(code)
	}
	add(LangDefault)
	for _, code := range priority {
		add(strings.TrimSpace(code))
	}
	return out
}
