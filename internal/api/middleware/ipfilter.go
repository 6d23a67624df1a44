package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/twentymcp/twenty-mcp/internal/ipfilter"
)

// IPFilter enforces the connection allowlist. It runs before every other
// middleware so denied peers never reach auth, CORS, or /health.
func IPFilter(filter *ipfilter.Filter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := filter.Check(r.RemoteAddr, r.Header)
			if !decision.Allowed {
				log.Warn().
					Str("remote", r.RemoteAddr).
					Str("reason", decision.Reason).
					Str("path", r.URL.Path).
					Msg("connection denied by IP filter")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{
					"error":             "access_denied",
					"error_description": "Connection not permitted from this address",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
