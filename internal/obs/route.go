package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type routeKey struct{}

// WithRoutePattern pins the route label of a request, taking precedence over
// the pattern chi matched.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey{}, pattern)
}

// Route returns the label used for metrics, logs and span names. Call it after
// the handler ran: chi only knows the full pattern once routing is complete.
func Route(r *http.Request, fallback string) string {
	if pattern, ok := r.Context().Value(routeKey{}).(string); ok && pattern != "" {
		return pattern
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return fallback
}

// SessionID returns the {sessionID} parameter of cart routes, or "".
func SessionID(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.URLParam("sessionID")
	}
	return ""
}
