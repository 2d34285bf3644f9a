package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_edunote/internal/engine"
)

// SourceAuto lets the model detect the source language.
const SourceAuto = "auto"

// Language is a translation target.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supported = []Language{
	{"en", "English"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"hi", "Hindi"},
	{"zh", "Chinese"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"ar", "Arabic"},
	{"pt", "Portuguese"},
	{"ru", "Russian"},
	{"it", "Italian"},
}

// SupportedLanguages lists the translation targets.
func SupportedLanguages() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// LanguageName returns the English name for code and whether it is supported.
func LanguageName(code string) (string, bool) {
	for _, l := range supported {
		if strings.EqualFold(l.Code, code) {
			return l.Name, true
		}
	}
	return "", false
}

// Translation is the outcome of Translate. Fallback means the model failed
// and Text is the untouched input.
type Translation struct {
	Text       string `json:"translatedText"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
	Fallback   bool   `json:"fallback"`
}

// Translate never fails: any model error yields the input back with Fallback set.
func (g *Generator) Translate(ctx context.Context, text, target, source string) *Translation {
	if source == "" {
		source = SourceAuto
	}
	fallback := &Translation{Text: text, SourceLang: source, TargetLang: target, Fallback: true}

	name, ok := LanguageName(target)
	if !ok {
		name = target
	}
	from := "the detected language"
	if source != SourceAuto {
		from = source
	}

	engine.IncrTranslations()
	raw, err := g.llm.Complete(ctx, systemTranslate, fmt.Sprintf(translatePrompt, from, name, target, text))
	if err != nil {
		slog.Warn("notes: translation failed", slog.String("target", target), slog.Any("error", err))
		engine.IncrTranslationFallbacks()
		return fallback
	}

	var out struct {
		SourceLang     string `json:"sourceLang"`
		TranslatedText string `json:"translatedText"`
	}
	body := engine.ExtractJSONObject(raw)
	if body == "" || json.Unmarshal([]byte(body), &out) != nil || strings.TrimSpace(out.TranslatedText) == "" {
		slog.Warn("notes: unusable translation reply", slog.String("target", target), slog.Int("len", len(raw)))
		engine.IncrTranslationFallbacks()
		return fallback
	}
	if out.SourceLang == "" {
		out.SourceLang = source
	}
	return &Translation{Text: out.TranslatedText, SourceLang: strings.ToLower(out.SourceLang), TargetLang: target}
}
