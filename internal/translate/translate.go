// Package translate turns HTML in one archive language into the other.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable means no translation backend is configured or it refused the
// request. Callers downgrade it to placeholder content.
var ErrUnavailable = errors.New("translation unavailable")

// Language is an archive content language.
type Language string

const (
	English Language = "en"
	Hebrew  Language = "he"
)

// ParseLanguage accepts "en" or "he" (case-insensitive).
func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English, nil
	case Hebrew:
		return Hebrew, nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// Other returns the counterpart language.
func (l Language) Other() Language {
	if l == Hebrew {
		return English
	}
	return Hebrew
}

func (l Language) name() string {
	if l == Hebrew {
		return "Hebrew"
	}
	return "English"
}

// Translator translates HTML into the target language, keeping the tag structure.
type Translator interface {
	Translate(ctx context.Context, html string, target Language) (string, error)
}

var tones = map[string]string{
	"scholarly": "scholarly and academic",
	"literal":   "precise and literal",
	"modern":    "contemporary and accessible",
}

var complexities = map[string]string{
	"detailed": "Ensure all nuances and cross-references are maintained.",
	"concise":  "Keep the translation direct and avoid redundant philosophical terminology.",
}

// Prompt builds the system and user prompts for a translation request. Unknown tone
// or complexity values fall back to scholarly and detailed.
func Prompt(html string, target Language, tone, complexity string) (system, user string) {
	t, ok := tones[tone]
	if !ok {
		t = tones["scholarly"]
	}
	c, ok := complexities[complexity]
	if !ok {
		c = complexities["detailed"]
	}
	source := target.Other()

	system = fmt.Sprintf("You are an expert translator of Hebrew and English theological texts. "+
		"You translate %s into %s and answer with the translated HTML only.", source.name(), target.name())

	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following %s content into clear, %s %s.\n", source.name(), t, target.name())
	b.WriteString("The content is related to Jewish theology, Chassidic philosophy, and the concepts of Redemption (Geulah) and Moshiach.\n\n")
	b.WriteString("RULES:\n")
	b.WriteString("1. Keep every HTML tag (like <p>, <strong>, <h1>) in its exact position.\n")
	fmt.Fprintf(&b, "2. Use formal %s suitable for religious studies.\n", target.name())
	fmt.Fprintf(&b, "3. %s\n", c)
	b.WriteString("4. Retain transliterated terms like 'Moshiach' and 'Geulah'.\n\n")
	fmt.Fprintf(&b, "Source %s content:\n%s", source.name(), html)
	return system, b.String()
}

// stripFences removes a Markdown code fence that models sometimes wrap HTML in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
