package server

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// requireAdmin enforces Basic Auth against the configured bcrypt hash. With
// no hash configured the route is open.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AdminPasswordHash == "" {
			next(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()

		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(s.opts.AdminUser)) == 1

		passMatch := false
		if ok && userMatch {
			passMatch = bcrypt.CompareHashAndPassword([]byte(s.opts.AdminPasswordHash), []byte(pass)) == nil
		}

		if !ok || !userMatch || !passMatch {
			w.Header().Set("WWW-Authenticate", `Basic realm="activityportal"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			s.logger.Warn("failed auth attempt", zap.String("remote_addr", r.RemoteAddr), zap.String("user", user))
			return
		}

		next(w, r)
	}
}
