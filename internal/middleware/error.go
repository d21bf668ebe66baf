package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go-archive-app/internal/logger"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// Renderer renders a named page template.
type Renderer interface {
	Render(w io.Writer, r *http.Request, name string, data map[string]interface{}) error
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	// node bodies carry sanitized HTML
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// writeError answers API paths with {"error": msg} and everything else in plain text.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if isAPI(r) {
		WriteJSON(w, code, map[string]string{"error": msg})
		return
	}
	http.Error(w, msg, code)
}

// Error is a middleware that converts handler errors into error pages, or JSON bodies
// for API paths. Panics are recovered and reported as 500.
func Error(log logger.Logger, view Renderer) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			render := func(code int, msg string) {
				if isAPI(r) {
					WriteJSON(w, code, map[string]string{"error": msg})
					return
				}
				data := map[string]interface{}{
					"StatusCode": code,
					"StatusText": msg,
					"Query":      "",
					"IsAdmin":    GetUserInfo(r.Context()).IsAdmin(),
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(code)
				if err := view.Render(w, r, "error.html", data); err != nil {
					log.Error(err, "Failed to render error page")
				}
			}

			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.Error(err, "Panic recovered")
					render(http.StatusInternalServerError, "Internal Server Error")
				}
			}()

			if appErr := next(w, r); appErr != nil {
				fields := map[string]interface{}{"path": r.URL.Path, "status": appErr.Code}
				if appErr.Code >= http.StatusInternalServerError {
					log.With(fields).Error(appErr.Error, appErr.Message)
				} else {
					l := log.With(fields)
					if appErr.Error != nil {
						l = l.With(map[string]interface{}{"error": appErr.Error.Error()})
					}
					l.Warn(appErr.Message)
				}
				render(appErr.Code, appErr.Message)
			}
		})
	}
}
