package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"dengbej/internal/logging"
)

// operatorOnly guards status, jobs and metrics with server.api_token. The
// public upload and translate routes never pass through it.
func (s *apiServer) operatorOnly(next http.HandlerFunc) http.HandlerFunc {
	if s.token == "" {
		return next
	}
	want := []byte(s.token)
	return func(w http.ResponseWriter, r *http.Request) {
		scheme, presented, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if ok && strings.EqualFold(scheme, "Bearer") &&
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), want) == 1 {
			next(w, r)
			return
		}
		s.logger.Debug("operator request rejected",
			logging.String(logging.FieldEventType, "auth_rejected"),
			logging.String("path", r.URL.Path),
		)
		w.Header().Set("WWW-Authenticate", `Bearer realm="dengbej"`)
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
	}
}
