package handler

import (
	"net/http"

	"github.com/msomdec/picprompt/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, accounts *service.AccountService, generations *service.GenerationService, limiter *service.TokenBucket, cookieSecure bool) {
	authHandler := NewAuthHandler(auth, cookieSecure)
	accountHandler := NewAccountHandler(accounts, cookieSecure)
	generationHandler := NewGenerationHandler(generations)
	uiHandler := NewUIHandler(generations)

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(auth, h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(auth, RateLimit(limiter, h))
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)

	// Accounts
	mux.HandleFunc("POST /api/user/register", authHandler.HandleRegister)
	mux.HandleFunc("POST /api/user/login", authHandler.HandleLogin)
	mux.HandleFunc("POST /api/user/logout", authHandler.HandleLogout)
	mux.Handle("GET /api/user/credits", requireAuth(accountHandler.HandleCredits))
	mux.Handle("PUT /api/user/update", requireAuth(accountHandler.HandleUpdate))
	mux.Handle("DELETE /api/user/delete", requireAuth(accountHandler.HandleDelete))

	// Generations
	mux.Handle("POST /api/image/generate-image", limited(generationHandler.HandleGenerate))
	mux.Handle("GET /api/image/generations", requireAuth(generationHandler.HandleList))
	mux.Handle("GET /api/image/generations/{id}", requireAuth(generationHandler.HandleGet))
	mux.Handle("GET /api/image/generations/{id}/file", requireAuth(generationHandler.HandleFile))

	// UI
	mux.Handle("GET /", OptionalAuth(auth, http.HandlerFunc(uiHandler.HandleHome)))
	mux.Handle("POST /ui/generate", limited(uiHandler.HandleGenerate))
}
