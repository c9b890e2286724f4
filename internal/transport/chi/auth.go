package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// IndexAuthMiddleware returns a middleware that validates the index token via
// the X-Index-Token header or a Bearer Authorization header.
// If tokens is empty, authentication is disabled (pass-through).
func IndexAuthMiddleware(tokens []string) func(http.Handler) http.Handler {
	validTokens := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			validTokens = append(validTokens, t)
		}
	}

	return func(next http.Handler) http.Handler {
		// Auth disabled, pass everything through
		if len(validTokens) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Index-Token")
			if token == "" {
				auth := r.Header.Get("Authorization")
				const bearerPrefix = "Bearer "
				if strings.HasPrefix(auth, bearerPrefix) {
					token = strings.TrimSpace(auth[len(bearerPrefix):])
				}
			}

			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}

			for _, valid := range validTokens {
				if subtle.ConstantTimeCompare([]byte(token), []byte(valid)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusUnauthorized, "invalid authentication token")
		})
	}
}
