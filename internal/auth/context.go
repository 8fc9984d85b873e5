// internal/auth/context.go
//
// Bearer-token relay helpers.
//
// Context
// -------
// Authentication lives in the hosted backend.  This service only relays
// the caller's token: the Relay middleware lifts it from the request and
// parks it in the request context, and the gateway attaches it to every
// outbound call made on that request's behalf.
//
// Usage
// -----
//     ctx = auth.WithToken(ctx, "eyJ…")
//     tok, ok := auth.Token(ctx)   // "eyJ…", true
//
// Notes
// -----
// • An absent token is not an error here; the backend decides access.
// • Oxford commas, two spaces after periods.

package auth

import "context"

// tokenKey is unexported to avoid context-key collisions.
type tokenKey struct{}

// WithToken returns a new context carrying the caller's bearer token.
// Empty tokens are ignored.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// Token extracts the bearer token from ctx.  It returns ("", false) when
// none was relayed.
func Token(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenKey{}).(string)
	return tok, ok && tok != ""
}
