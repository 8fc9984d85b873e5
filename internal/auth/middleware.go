package auth

import (
	"net/http"
	"strings"
)

// CookieName is the cookie the dashboard stores the backend token in.
const CookieName = "authToken"

// Relay lifts the caller's token from the Authorization header, falling
// back to the dashboard cookie, and stores it in the request context.
func Relay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := FromRequest(r); tok != "" {
			r = r.WithContext(WithToken(r.Context(), tok))
		}
		next.ServeHTTP(w, r)
	})
}

// FromRequest returns the bearer token carried by r, or "".
func FromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
