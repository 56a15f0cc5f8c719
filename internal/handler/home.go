package handler

import (
	"log/slog"
	"net/http"

	"github.com/msomdec/picprompt/internal/domain"
	"github.com/msomdec/picprompt/internal/service"
	"github.com/msomdec/picprompt/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

// UIHandler serves the server-rendered page and its datastar actions.
type UIHandler struct {
	generations *service.GenerationService
}

// NewUIHandler creates a new UIHandler.
func NewUIHandler(generations *service.GenerationService) *UIHandler {
	return &UIHandler{generations: generations}
}

// HandleHome renders the home page.
func (h *UIHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	user := UserFromContext(r.Context())
	var recent []domain.Generation
	if user != nil {
		var err error
		recent, err = h.generations.ListRecent(r.Context(), user.ID, service.DefaultHistoryLimit)
		if err != nil {
			slog.Error("list generations for home", "userID", user.ID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.HomePage(user, recent).Render(r.Context(), w); err != nil {
		slog.Error("render home", "error", err)
	}
}

type generateSignals struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
}

// HandleGenerate runs a generation from the page and patches the result
// and balance back over SSE.
// POST /ui/generate
func (h *UIHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var signals generateSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	res, err := h.generations.Generate(r.Context(), user.ID, signals.Prompt, signals.Style)

	sse := datastar.NewSSE(w, r)
	if err != nil {
		_, body := generateFailure(user.ID, err)
		patch := map[string]any{"message": body["message"]}
		if balance, ok := body["creditBalance"]; ok {
			patch["creditBalance"] = balance
		}
		if perr := sse.MarshalAndPatchSignals(patch); perr != nil {
			slog.Error("patch signals", "error", perr)
		}
		return
	}

	if err := sse.PatchElementTempl(
		view.GeneratedImage(res.Generation, res.ResultImage),
		datastar.WithSelectorID("result"),
		datastar.WithModeInner(),
	); err != nil {
		slog.Error("patch result", "error", err)
		return
	}
	if err := sse.MarshalAndPatchSignals(map[string]any{
		"message":       msgImageGenerated,
		"creditBalance": res.CreditBalance,
		"resultImage":   res.ResultImage,
		"prompt":        "",
	}); err != nil {
		slog.Error("patch signals", "error", err)
	}
}
