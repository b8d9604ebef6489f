package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthenticateService guards internal service-to-service endpoints (match
// settlement) with a shared bearer token. Players never hold this token.
func AuthenticateService(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			presented := strings.TrimPrefix(header, "Bearer ")
			if token == "" || presented == header ||
				subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeUnauthorized(w, "invalid service credential")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
