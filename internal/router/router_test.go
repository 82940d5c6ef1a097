package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dianedanzo/bear-app/internal/auth"
	"github.com/dianedanzo/bear-app/internal/handlers"
	"github.com/dianedanzo/bear-app/internal/models"
)

type denyAll struct{}

func (denyAll) CreateOperator(context.Context, string, string) (*auth.Operator, error) {
	return nil, auth.ErrDuplicateEmail
}
func (denyAll) Login(context.Context, string, string) (string, error) {
	return "", auth.ErrInvalidCredentials
}
func (denyAll) ValidateToken(context.Context, string) (uuid.UUID, string, error) {
	return uuid.Nil, "", auth.ErrInvalidToken
}

type panicSettler struct{}

func (panicSettler) ListByStatus(context.Context, string, int) ([]*models.WithdrawalRequest, error) {
	panic("queue must not be reached without an operator token")
}

func (panicSettler) Settle(context.Context, uuid.UUID, string) (*models.WithdrawalRequest, error) {
	panic("settle must not be reached without an operator token")
}

func newTestRouter() http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(
		auth.NewHandler(denyAll{}, nil, log),
		denyAll{},
		&handlers.AdminHandler{Withdrawals: panicSettler{}, Logger: log},
		&handlers.WebhookHandler{Logger: log},
	)
}

func TestRouter(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		auth   string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"webhook", http.MethodPost, "/telegram/webhook", `{}`, "", http.StatusOK},
		{"webhook wrong method", http.MethodGet, "/telegram/webhook", "", "", http.StatusMethodNotAllowed},
		{"login rejected", http.MethodPost, "/admin/login", `{"email":"a@b.c","password":"x"}`, "", http.StatusUnauthorized},
		{"queue without token", http.MethodGet, "/admin/withdrawals", "", "", http.StatusUnauthorized},
		{"settle without token", http.MethodPost, "/admin/withdrawals/" + uuid.NewString() + "/status", `{"status":"failed"}`, "", http.StatusUnauthorized},
		{"settle bad token", http.MethodPost, "/admin/withdrawals/" + uuid.NewString() + "/status", `{"status":"failed"}`, "Bearer forged", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
