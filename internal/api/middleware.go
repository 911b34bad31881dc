package api

import (
	"log/slog"
	"net/http"

	"github.com/mnemohq/mnemo/internal/auth"
	"github.com/mnemohq/mnemo/internal/platform/logger"
)

// RequireSession validates the k form field carried by every protocol
// call after login. An invalid or missing token ends the request with
// 403; the client maps that to an invalid-credentials result.
func RequireSession(tokens auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "malformed form body", http.StatusBadRequest)
				return
			}
			token := r.PostFormValue("k")
			if token == "" {
				http.Error(w, "session token required", http.StatusForbidden)
				return
			}
			if _, err := tokens.Validate(r.Context(), token); err != nil {
				log := logger.FromContext(r.Context())
				log.Debug("rejected sync request", slog.String("error", err.Error()))
				http.Error(w, "invalid session token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
