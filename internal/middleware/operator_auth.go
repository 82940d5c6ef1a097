package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const ctxOperatorKey contextKey = "operator"

var (
	errMissingToken = &Rejection{http.StatusUnauthorized, "missing_token"}
	errInvalidToken = &Rejection{http.StatusUnauthorized, "invalid_token"}
	errForbidden    = &Rejection{http.StatusForbidden, "forbidden"}
)

// TokenValidator is satisfied by the operator auth service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// OperatorAuth admits requests carrying a valid operator Bearer token and
// stores the operator id in the request context.
func OperatorAuth(v TokenValidator, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				writeRejection(w, errMissingToken)
				return
			}
			id, gotRole, err := v.ValidateToken(r.Context(), raw)
			if err != nil {
				writeRejection(w, errInvalidToken)
				return
			}
			if gotRole != role {
				writeRejection(w, errForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxOperatorKey, id)))
		})
	}
}

// OperatorFromCtx returns the authenticated operator id, or uuid.Nil.
func OperatorFromCtx(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxOperatorKey).(uuid.UUID)
	return id
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
