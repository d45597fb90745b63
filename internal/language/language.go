// Package language normalizes caller-supplied language hints to ISO 639-1
// codes understood by the transcription tooling.
package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ToISO2 converts a language hint ("en", "eng", "english", "pt-BR") to its
// ISO 639-1 base code. Returns empty string for unrecognized input.
func ToISO2(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}
	tag, err := language.Parse(hint)
	if err != nil {
		// Full language names ("english") are not BCP 47 tags. Match them
		// against the display names of common bases.
		return matchDisplayName(hint)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	code := base.String()
	if len(code) != 2 {
		return ""
	}
	return code
}

// DisplayName returns the English name for a language hint, or the input
// unchanged when it cannot be resolved.
func DisplayName(hint string) string {
	tag, err := language.Parse(strings.TrimSpace(hint))
	if err != nil {
		return hint
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return hint
}

var commonBases = []language.Tag{
	language.English, language.Spanish, language.French, language.German,
	language.Italian, language.Portuguese, language.Japanese, language.Korean,
	language.Chinese, language.Russian, language.Arabic, language.Hindi,
	language.Dutch, language.Polish, language.Swedish, language.Danish,
	language.Norwegian, language.Finnish, language.Turkish, language.Ukrainian,
}

func matchDisplayName(hint string) string {
	hint = strings.ToLower(hint)
	for _, tag := range commonBases {
		if strings.ToLower(display.English.Languages().Name(tag)) == hint {
			base, _ := tag.Base()
			return base.String()
		}
	}
	return ""
}
