package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianedanzo/bear-app/internal/initdata"
	"github.com/dianedanzo/bear-app/internal/models"
)

const testBotToken = "BOT123"

func signedInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	f := make(initdata.Fields, len(fields))
	v := url.Values{}
	for k, val := range fields {
		f[k] = val
		v.Set(k, val)
	}
	v.Set("hash", initdata.Sign(f, botToken))
	return v.Encode()
}

func annInitData(t *testing.T) string {
	return signedInitData(t, testBotToken, map[string]string{
		"auth_date": "1000",
		"user":      `{"id":42,"username":"ann"}`,
	})
}

// identityHandler echoes the resolved identity as JSON.
var identityHandler = AuthedHandler(func(w http.ResponseWriter, r *http.Request, id models.Identity) {
	_ = json.NewEncoder(w).Encode(id)
})

func serve(g *TelegramAuth, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	g.Require(identityHandler).ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestTelegramAuth_ValidInitData(t *testing.T) {
	g := &TelegramAuth{BotToken: testBotToken}

	for _, header := range []string{InitDataHeader, AltInitDataHeader} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/balance", nil)
			req.Header.Set(header, annInitData(t))
			rec := serve(g, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var id models.Identity
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &id))
			assert.Equal(t, models.Identity{ID: "42", DisplayName: "ann"}, id)
		})
	}
}

func TestTelegramAuth_QueryParamFallback(t *testing.T) {
	g := &TelegramAuth{BotToken: testBotToken}
	req := httptest.NewRequest(http.MethodGet, "/balance?initData="+url.QueryEscape(annInitData(t)), nil)
	rec := serve(g, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTelegramAuth_Rejections(t *testing.T) {
	badUser := signedInitData(t, testBotToken, map[string]string{
		"auth_date": "1000",
		"user":      `{"username":"no id"}`,
	})
	noUser := signedInitData(t, testBotToken, map[string]string{"auth_date": "1000"})

	cases := []struct {
		name     string
		botToken string
		initData string
		status   int
		code     string
	}{
		{"missing header", testBotToken, "", http.StatusUnauthorized, "missing_init_data"},
		{"missing secret", "", annInitData(t), http.StatusInternalServerError, "server_misconfigured"},
		{"wrong secret", "OTHER", annInitData(t), http.StatusUnauthorized, "invalid_init_data"},
		{"no hash", testBotToken, "auth_date=1000&user=%7B%22id%22%3A42%7D", http.StatusUnauthorized, "invalid_init_data"},
		{"tampered", testBotToken, annInitData(t) + "&extra=1", http.StatusUnauthorized, "invalid_init_data"},
		{"user without id", testBotToken, badUser, http.StatusUnauthorized, "invalid_user"},
		{"no user field", testBotToken, noUser, http.StatusUnauthorized, "invalid_user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := &TelegramAuth{BotToken: tc.botToken}
			req := httptest.NewRequest(http.MethodGet, "/balance", nil)
			if tc.initData != "" {
				req.Header.Set(InitDataHeader, tc.initData)
			}
			rec := serve(g, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestTelegramAuth_MissingHeaderCheckedBeforeSecret(t *testing.T) {
	g := &TelegramAuth{}
	rec := serve(g, httptest.NewRequest(http.MethodGet, "/balance", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_init_data", errorCode(t, rec))
}

func TestTelegramAuth_Freshness(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	fresh := signedInitData(t, testBotToken, map[string]string{
		"auth_date": strconv.FormatInt(now.Add(-time.Minute).Unix(), 10),
		"user":      `{"id":7}`,
	})
	stale := signedInitData(t, testBotToken, map[string]string{
		"auth_date": strconv.FormatInt(now.Add(-2*time.Hour).Unix(), 10),
		"user":      `{"id":7}`,
	})

	g := &TelegramAuth{BotToken: testBotToken, MaxAge: time.Hour, Now: func() time.Time { return now }}

	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	req.Header.Set(InitDataHeader, fresh)
	assert.Equal(t, http.StatusOK, serve(g, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/balance", nil)
	req.Header.Set(InitDataHeader, stale)
	rec := serve(g, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "expired_init_data", errorCode(t, rec))

	g.MaxAge = 0
	req = httptest.NewRequest(http.MethodGet, "/balance", nil)
	req.Header.Set(InitDataHeader, stale)
	assert.Equal(t, http.StatusOK, serve(g, req).Code, "zero max age disables the check")
}
