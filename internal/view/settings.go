package view

import (
	"context"
	"strings"
)

// LangMode selects which language bodies a page shows.
type LangMode string

const (
	LangEnglish LangMode = "en"
	LangHebrew  LangMode = "he"
	LangDual    LangMode = "dual"
)

type settingsKey string

// LangModeKey is the key for the reading language in the request context.
const LangModeKey settingsKey = "langMode"

// ParseLangMode accepts en, he or dual.
func ParseLangMode(s string) (LangMode, bool) {
	switch m := LangMode(strings.ToLower(strings.TrimSpace(s))); m {
	case LangEnglish, LangHebrew, LangDual:
		return m, true
	}
	return "", false
}

// WithLangMode stores the reading language in ctx.
func WithLangMode(ctx context.Context, m LangMode) context.Context {
	return context.WithValue(ctx, LangModeKey, m)
}

// LangModeFrom returns the reading language of the request, dual when unset.
func LangModeFrom(ctx context.Context) LangMode {
	if m, ok := ctx.Value(LangModeKey).(LangMode); ok {
		return m
	}
	return LangDual
}
