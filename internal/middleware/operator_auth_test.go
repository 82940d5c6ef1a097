package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	id   uuid.UUID
	role string
	err  error
}

func (s *stubValidator) ValidateToken(_ context.Context, _ string) (uuid.UUID, string, error) {
	return s.id, s.role, s.err
}

func TestOperatorAuth(t *testing.T) {
	opID := uuid.New()
	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = OperatorFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name   string
		header string
		v      *stubValidator
		want   int
		code   string
	}{
		{"valid", "Bearer good", &stubValidator{id: opID, role: "operator"}, http.StatusOK, ""},
		{"lowercase scheme", "bearer good", &stubValidator{id: opID, role: "operator"}, http.StatusOK, ""},
		{"missing header", "", &stubValidator{}, http.StatusUnauthorized, "missing_token"},
		{"basic scheme", "Basic Zm9vOmJhcg==", &stubValidator{}, http.StatusUnauthorized, "missing_token"},
		{"invalid token", "Bearer bad", &stubValidator{err: errors.New("expired")}, http.StatusUnauthorized, "invalid_token"},
		{"wrong role", "Bearer good", &stubValidator{id: opID, role: "viewer"}, http.StatusForbidden, "forbidden"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodPost, "/admin/withdrawals/x/status", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			OperatorAuth(tc.v, "operator")(next).ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, opID, seen)
			} else {
				assert.Equal(t, uuid.Nil, seen)
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
				assert.JSONEq(t, `{"error":"`+tc.code+`"}`, rec.Body.String())
			}
		})
	}
}
