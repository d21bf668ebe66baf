package middleware

import (
	"net/http"

	"go-archive-app/internal/view"
)

const langCookie = "lang"

// LanguageMiddleware picks the reading language from ?lang=en|he|dual, falling back to
// the lang cookie. An explicit query value is remembered in the cookie.
func LanguageMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mode := view.LangDual
		if c, err := r.Cookie(langCookie); err == nil {
			if m, ok := view.ParseLangMode(c.Value); ok {
				mode = m
			}
		}
		if q := r.URL.Query().Get("lang"); q != "" {
			if m, ok := view.ParseLangMode(q); ok {
				mode = m
				http.SetCookie(w, &http.Cookie{
					Name:     langCookie,
					Value:    string(m),
					Path:     "/",
					MaxAge:   365 * 24 * 60 * 60,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
		}
		next.ServeHTTP(w, r.WithContext(view.WithLangMode(r.Context(), mode)))
	})
}
