package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/msomdec/picprompt/internal/domain"
	"github.com/msomdec/picprompt/internal/service"
)

const (
	msgImageGenerated = "Image Generated"
	msgNoCredit       = "No Credit Balance"
	msgProviderAuth   = "The image provider rejected the API key. Check the CLIPDROP_API setting."
	msgGenerateFailed = "Error generating image"
)

// GenerationHandler serves image generation and history endpoints.
type GenerationHandler struct {
	generations *service.GenerationService
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(generations *service.GenerationService) *GenerationHandler {
	return &GenerationHandler{generations: generations}
}

// HandleGenerate spends one credit to turn a prompt into an image.
// POST /api/image/generate-image
// Request:  {"prompt":"...","style":"..."}
// Response: {"success":true,"message":"Image Generated","resultImage":"data:...","creditBalance":4,"generationId":"..."}
func (h *GenerationHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req struct {
		Prompt string `json:"prompt"`
		Style  string `json:"style"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	res, err := h.generations.Generate(r.Context(), user.ID, req.Prompt, req.Style)
	if err != nil {
		status, body := generateFailure(user.ID, err)
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       msgImageGenerated,
		"resultImage":   res.ResultImage,
		"creditBalance": res.CreditBalance,
		"generationId":  res.Generation.ID,
	})
}

// generateFailure maps a Generate error to a status and response body.
func generateFailure(userID int64, err error) (int, map[string]any) {
	var creditErr *domain.CreditError
	switch {
	case errors.As(err, &creditErr):
		return http.StatusPaymentRequired, map[string]any{
			"success":       false,
			"message":       msgNoCredit,
			"creditBalance": max(creditErr.Balance, 0),
		}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()}
	case errors.Is(err, domain.ErrProviderAuth):
		slog.Error("image provider rejected credentials", "userID", userID, "error", err)
		return http.StatusBadGateway, map[string]any{"success": false, "message": msgProviderAuth}
	default:
		slog.Error("generate image", "userID", userID, "error", err)
		return http.StatusInternalServerError, map[string]any{"success": false, "message": msgGenerateFailed}
	}
}

// HandleList returns the newest generations of the current user.
// GET /api/image/generations?limit=10
// Response: {"success":true,"recentGenerations":[...]}
func (h *GenerationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	gens, err := h.generations.ListRecent(r.Context(), user.ID, limit)
	if err != nil {
		slog.Error("list generations", "userID", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching generations")
		return
	}

	body := map[string]any{
		"success":           true,
		"recentGenerations": toGenerationDTOs(gens),
	}
	if len(gens) == 0 {
		body["message"] = "No generations yet"
	}
	writeJSON(w, http.StatusOK, body)
}

// HandleGet returns one generation owned by the current user.
// GET /api/image/generations/{id}
// Response: {"success":true,"generation":{...}}
func (h *GenerationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	gen, err := h.generations.GetOne(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeLookupError(w, user.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"generation": toGenerationDTO(gen),
	})
}

// HandleFile streams stored image bytes.
// GET /api/image/generations/{id}/file
func (h *GenerationHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	data, contentType, err := h.generations.GetImageFile(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeLookupError(w, user.ID, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeLookupError(w http.ResponseWriter, userID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid generation id")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Generation not found")
	default:
		slog.Error("get generation", "userID", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "Error fetching generation")
	}
}
