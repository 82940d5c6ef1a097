package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dianedanzo/bear-app/internal/models"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeError maps a domain error to its status and error code. Store
// failures are logged here and never leak detail to the client.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrMissingParams):
		writeErrorCode(w, http.StatusBadRequest, "missing_params")
	case errors.Is(err, models.ErrInvalidTask):
		writeErrorCode(w, http.StatusBadRequest, "invalid_task")
	case errors.Is(err, models.ErrInsufficientBalance):
		writeErrorCode(w, http.StatusBadRequest, "insufficient_balance")
	case errors.Is(err, models.ErrInvalidTransition):
		writeErrorCode(w, http.StatusConflict, "invalid_transition")
	case errors.Is(err, models.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "not_found")
	case errors.Is(err, models.ErrStoreTimeout):
		log.Error("store timeout", "error", err)
		w.Header().Set("Retry-After", "1")
		writeErrorCode(w, http.StatusInternalServerError, "store_timeout")
	default:
		log.Error("store error", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "store_error")
	}
}

// pageLimit reads ?limit=, capped at max. It reports false for values that
// are not positive integers.
func pageLimit(r *http.Request, def, max int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return min(n, max), true
}

// money renders an amount as a bare JSON number without float rounding.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// flexID accepts an identifier sent either as a JSON string or a number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}
