package middleware

import (
	"context"
	"net/http"

	"github.com/zatekoja/consultbook/internal/domain/entities"
)

type contextKey string

const requesterKey contextKey = "requester"

// IdentityMiddleware lifts the authenticated subject set by the gateway into
// the request context. Token verification happens upstream; this service
// only consumes the resulting identity headers.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		role := entities.Role(r.Header.Get("X-User-Role"))

		if id != "" {
			if role != entities.RoleProvider && role != entities.RoleAdmin {
				role = entities.RoleUser
			}
			ctx := context.WithValue(r.Context(), requesterKey, entities.Requester{ID: id, Role: role})
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

// RequesterFromContext returns the authenticated subject, if any
func RequesterFromContext(ctx context.Context) (entities.Requester, bool) {
	requester, ok := ctx.Value(requesterKey).(entities.Requester)
	return requester, ok
}
