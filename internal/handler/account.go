package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/picprompt/internal/domain"
	"github.com/msomdec/picprompt/internal/service"
)

// AccountHandler serves the account settings endpoints.
type AccountHandler struct {
	accounts     *service.AccountService
	cookieSecure bool
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, cookieSecure bool) *AccountHandler {
	return &AccountHandler{accounts: accounts, cookieSecure: cookieSecure}
}

// HandleCredits returns the current balance.
// GET /api/user/credits
// Response: {"success":true,"credits":5,"user":{...}}
func (h *AccountHandler) HandleCredits(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	current, err := h.accounts.Credits(r.Context(), user.ID)
	if err != nil {
		writeAccountError(w, "load credits", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"credits": current.CreditBalance,
		"user":    toUserDTO(current),
	})
}

// HandleUpdate changes the display name and avatar.
// PUT /api/user/update
// Request:  {"name":"...","avatar":"https://..."}
// Response: {"success":true,"user":{...}}
func (h *AccountHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	updated, err := h.accounts.UpdateProfile(r.Context(), user.ID, req.Name, req.Avatar)
	if err != nil {
		writeAccountError(w, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    toUserDTO(updated),
	})
}

// HandleDelete removes the account and its history, then signs out.
// DELETE /api/user/delete
// Response: {"success":true}
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if err := h.accounts.Delete(r.Context(), user.ID); err != nil {
		writeAccountError(w, "delete account", err)
		return
	}

	clearAuthCookie(w, h.cookieSecure)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Account deleted",
	})
}

func writeAccountError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Account not found.")
	default:
		slog.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
	}
}
