package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/auth"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/platform/httpx"
	"github.com/commedeschamps/Uly-Dala-Coffee/internal/services"
)

// MeHandlers serves the authenticated account's own profile.
type MeHandlers struct {
	authn    *auth.Authenticator
	accounts services.AccountService
}

// NewMeHandlers constructs a new MeHandlers instance.
func NewMeHandlers(authn *auth.Authenticator, accounts services.AccountService) *MeHandlers {
	return &MeHandlers{
		authn:    authn,
		accounts: accounts,
	}
}

// Routes registers the /me endpoints.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.getProfile)
}

func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("account_service_unavailable", "account service unavailable", http.StatusServiceUnavailable))
		return
	}
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.GetProfile(ctx, actor.ID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, userResponse{Status: statusSuccess, User: buildUserPayload(account)})
}
