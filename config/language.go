package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// AcceptLanguage formats tags in preference order as an Accept-Language
// value, weighting them 1.0, 0.9, 0.8 and so on down to 0.1.
func AcceptLanguage(tags []string) (string, error) {
	parts := make([]string, 0, len(tags))
	for i, raw := range tags {
		tag, err := language.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parsing language %q: %w", raw, err)
		}
		q := max(10-i, 1)
		parts = append(parts, fmt.Sprintf("%s;q=%d.%d", tag, q/10, q%10))
	}
	return strings.Join(parts, ", "), nil
}
