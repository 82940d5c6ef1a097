package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// BodyValidator checks a raw request body against a named schema.
type BodyValidator interface {
	Validate(name string, body []byte) error
}

const loginSchema = "operator_login"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type Handler struct {
	svc       Service
	validator BodyValidator
	log       *slog.Logger
}

func NewHandler(svc Service, validator BodyValidator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validator: validator, log: log}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if h.validator != nil {
		if err := h.validator.Validate(loginSchema, body); err != nil {
			writeError(w, http.StatusBadRequest, "missing_params")
			return
		}
	}
	var req LoginRequest
	if err := json.Unmarshal(body, &req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_params")
		return
	}
	token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
		case errors.Is(err, ErrNoSecret):
			h.log.Error("operator login attempted without JWT_SECRET")
			writeError(w, http.StatusInternalServerError, "server_misconfigured")
		default:
			h.log.Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "login_failed")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{Token: token})
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
