package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// isExempt reports whether a path skips authentication and rate limiting.
func isExempt(r *http.Request) bool {
	switch r.URL.Path {
	case "/health", "/metrics":
		return true
	}
	return false
}

// BearerAuthMiddleware accepts requests carrying "Authorization: Bearer <key>"
// for one of apiKeys. Blank keys are ignored; with none left the middleware
// is a no-op.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var keys [][]byte
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExempt(r) {
				next.ServeHTTP(w, r)
				return
			}
			if msg := checkBearer(keys, r.Header.Get("Authorization")); msg != "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="vecquiz"`)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkBearer returns an empty string for a valid header, otherwise the
// reason for rejecting it. The scheme is matched case-insensitively.
func checkBearer(keys [][]byte, header string) string {
	if header == "" {
		return "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "authorization header must use the Bearer scheme"
	}
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, []byte(strings.TrimSpace(token))) == 1 {
			return ""
		}
	}
	return "invalid api key"
}
