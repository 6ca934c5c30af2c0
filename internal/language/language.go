// Package language validates the language codes accepted by job
// requests before any expensive pipeline work starts.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Auto is the sentinel for automatic source-language detection.
const Auto = "auto"

// Normalize validates a BCP 47 / ISO 639 language code and returns its
// canonical base form ("en", "pt", ...). The auto sentinel and the
// empty string pass through as Auto.
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(strings.ToLower(code))
	if code == "" || code == Auto {
		return Auto, nil
	}

	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// NormalizeTarget is Normalize for translation targets, where the auto
// sentinel is not meaningful.
func NormalizeTarget(code string) (string, error) {
	normalized, err := Normalize(code)
	if err != nil {
		return "", err
	}
	if normalized == Auto {
		return "", fmt.Errorf("target language is required")
	}
	return normalized, nil
}
