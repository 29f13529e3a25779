package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/blogpost-api/internal/service"
)

const (
	msgSignupFailed = "Server could not complete signup"
	msgLoginFailed  = "Server could not complete login"
)

// AuthHandler exposes signup and login. Credentials are checked by the
// configured identity provider, never by this package.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// HandleSignup serves POST /auth/signup.
//
// Request:  {"name","username","email","password"}
// Response: 201 {"user": {"id","email","created_at"}}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ident, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err, msgSignupFailed)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": ident})
}

// HandleLogin serves POST /auth/login.
//
// Request:  {"email","password"}
// Response: 200 {"user": profile, "session": {"access_token","token_type",...}}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err, msgLoginFailed)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
