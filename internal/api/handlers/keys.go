package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/twentymcp/twenty-mcp/internal/api/middleware"
)

type storeKeyRequest struct {
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl"`
}

// GetKeyStatus reports whether the caller has a stored credential. The key
// itself is never returned.
func (h *Handlers) GetKeyStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	meta, err := h.keys.Metadata(r.Context(), userID)
	if err != nil {
		log.Error().Str("user", userID).Err(err).Msg("key metadata lookup failed")
		writeError(w, http.StatusInternalServerError, "metadata_unavailable", "Could not read key status")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// StoreKey encrypts and saves the caller's upstream API key.
func (h *Handlers) StoreKey(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req storeKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "apiKey is required")
		return
	}

	if err := h.keys.StoreKey(r.Context(), userID, req.APIKey, req.BaseURL); err != nil {
		log.Error().Str("user", userID).Err(err).Msg("storing credential failed")
		writeError(w, http.StatusInternalServerError, "storage_failed", "Could not store the API key")
		return
	}

	log.Info().Str("user", userID).Msg("credential stored")
	writeJSON(w, http.StatusOK, map[string]bool{"stored": true})
}

// DeleteKey removes the caller's stored credential.
func (h *Handlers) DeleteKey(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.keys.DeleteKey(r.Context(), userID); err != nil {
		log.Error().Str("user", userID).Err(err).Msg("deleting credential failed")
		writeError(w, http.StatusInternalServerError, "storage_failed", "Could not delete the API key")
		return
	}

	log.Info().Str("user", userID).Msg("credential deleted")
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
