package middleware

import (
	"context"
	"net/http"
	"strings"
)

const (
	// SessionHeader carries the session id in requests and responses.
	SessionHeader = "X-Session-Id"

	// SessionQueryParam is the query fallback for clients that cannot set
	// headers, such as browser websockets.
	SessionQueryParam = "sessionId"
)

type sessionKey struct{}

// SessionResolver maps a client-supplied id to a live session.
type SessionResolver interface {
	Resolve(supplied string) (id string, created bool)
}

// SessionConfig holds configuration for the session middleware
type SessionConfig struct {
	// SkipPaths are path prefixes that never create or touch a session
	SkipPaths []string
}

// DefaultSessionConfig skips probes, metrics and static outputs.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SkipPaths: []string{"/api/health", "/livez", "/readyz", "/version", "/metrics", "/outputs/"},
	}
}

// Session resolves the caller's session on every request, echoes its id in
// the X-Session-Id response header and stores it in the request context.
func Session(resolver SessionResolver, config SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			id, _ := resolver.Resolve(RequestedSessionID(r))
			w.Header().Set(SessionHeader, id)

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}

// RequestedSessionID returns the id the client sent, header first.
func RequestedSessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	return r.URL.Query().Get(SessionQueryParam)
}

// WithSessionID returns a context carrying a session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session id stored by the Session middleware, or "".
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
