package transcript

import (
	"reflect"
	"testing"
)

func TestBuildLanguageAttempts(t *testing.T) {
	priority := []string{"en", "es", "fr"}
	tests := []struct {
		name  string
		prefs []string
		want  []string
	}{
		{"none", nil, []string{"", "en", "es", "fr"}},
		{"auto", []string{"auto"}, []string{"", "en", "es", "fr"}},
		{"auto upper", []string{"AUTO"}, []string{"", "en", "es", "fr"}},
		{"single", []string{"de"}, []string{"de", "", "en", "es", "fr"}},
		{"single in priority", []string{"es"}, []string{"es", "", "en", "fr"}},
		{"list", []string{"ja", "ko"}, []string{"ja", "ko", "", "en", "es", "fr"}},
		{"list dupes", []string{"fr", "fr", " en "}, []string{"fr", "en", "", "es"}},
		{"blank entries", []string{"", "  "}, []string{"", "en", "es", "fr"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildLanguageAttempts(tt.prefs, priority)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildLanguageAttemptsDefaultList(t *testing.T) {
	got := BuildLanguageAttempts(nil, DefaultLanguages)
	if len(got) != len(DefaultLanguages)+1 {
		t.Fatalf("len = %d, want %d", len(got), len(DefaultLanguages)+1)
	}
	if got[0] != LangDefault || got[1] != "en" {
		t.Errorf("unexpected head: %q", got[:2])
	}
}
