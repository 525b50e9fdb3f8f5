package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/httpx"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

// AuthHandlers exposes the public registration and authentication endpoints.
type AuthHandlers struct {
	accounts services.AccountService
}

// NewAuthHandlers constructs a new AuthHandlers instance.
func NewAuthHandlers(accounts services.AccountService) *AuthHandlers {
	return &AuthHandlers{accounts: accounts}
}

// Routes registers the /auth endpoints.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/forgot-password", h.forgotPassword)
	r.Post("/reset-password/{token}", h.resetPassword)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("account_service_unavailable", "account service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.accounts.Register(ctx, services.RegisterCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, sessionResponse{
		Status: statusSuccess,
		Token:  session.Token,
		User:   buildUserPayload(session.Account),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("account_service_unavailable", "account service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, sessionResponse{
		Status: statusSuccess,
		Token:  session.Token,
		User:   buildUserPayload(session.Account),
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("account_service_unavailable", "account service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req forgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.accounts.ForgotPassword(ctx, req.Email); err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	// Same response whether or not the address has an account.
	writeJSONResponse(w, http.StatusOK, messageResponse{
		Status:  statusSuccess,
		Message: "if that email is registered, a reset link has been sent",
	})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *AuthHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("account_service_unavailable", "account service unavailable", http.StatusServiceUnavailable))
		return
	}

	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "reset token is required", http.StatusBadRequest))
		return
	}

	var req resetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.accounts.ResetPassword(ctx, token, req.Password)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, sessionResponse{
		Status: statusSuccess,
		Token:  session.Token,
		User:   buildUserPayload(session.Account),
	})
}
