package middleware

import (
	"net/http"

	"go-archive-app/internal/auth"
	"go-archive-app/internal/logger"
	"go-archive-app/internal/session"

	"github.com/casbin/casbin/v2"
)

// Authorizer resolves the request subject from the session and enforces the route
// policy with casbin. Denied API calls get a JSON 403.
func Authorizer(e casbin.IEnforcer, sm session.Manager, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectVisitor
			if sm.GetBool(r.Context(), session.AdminKey) {
				subject = auth.SubjectAdmin
			}
			r = r.WithContext(SetUserInfo(r.Context(), &UserInfo{Subject: subject}))

			allowed, err := e.Enforce(subject, r.URL.Path, r.Method)
			if err != nil {
				log.Error(err, "Authorization check failed")
				writeError(w, r, http.StatusInternalServerError, "Authorization error")
				return
			}
			if !allowed {
				writeError(w, r, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
