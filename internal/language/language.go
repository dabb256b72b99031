package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// English names accepted in place of a code.
var byName = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"español":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"dutch":      "nl",
	"polish":     "pl",
}

// Code resolves a language code or English name to its shortest ISO 639
// code, e.g. "spa", "Spanish" and "es" all yield "es".
func Code(value string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return "", fmt.Errorf("empty language")
	}
	if code, ok := byName[trimmed]; ok {
		return code, nil
	}
	base, err := xlanguage.ParseBase(trimmed)
	if err != nil {
		return "", fmt.Errorf("unknown language %q", value)
	}
	return base.String(), nil
}

// Name returns the English name of code, or the code itself uppercased when
// it is not recognized.
func Name(code string) string {
	tag, err := xlanguage.Parse(strings.TrimSpace(code))
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
