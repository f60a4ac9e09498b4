package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireToken accepts "Authorization: Bearer <token>". Without a
// configured token every guarded request is refused.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			writeError(w, http.StatusForbidden, "disabled", "run triggers are disabled: set [daemon] api_token")
			return
		}
		if !s.validToken(r) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mediastats"`)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) validToken(r *http.Request) bool {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.token)) == 1
}
