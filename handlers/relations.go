package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/antonkh/bookcatalog/middleware"
	"github.com/antonkh/bookcatalog/models"
	"github.com/antonkh/bookcatalog/store"
	"github.com/rs/zerolog/log"
)

type RelationsHandler struct {
	DB *store.DB
}

// Patch handles PATCH /book_relation/{id}/, upserting the caller's relation
// to the book. Only the fields present in the body are applied; a rate in
// the payload triggers recomputation of the book's average rating.
func (h *RelationsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	bookID, ok := bookID(w, r)
	if !ok {
		return
	}
	var patch models.RelationPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if fields := patch.Validate(); len(fields) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"errors": fields})
		return
	}
	rel, err := h.DB.UpsertRelation(r.Context(), principal.ID, bookID, patch)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("book_id", bookID).Int64("user_id", principal.ID).Msg("patch relation")
		http.Error(w, `{"error":"failed to update relation"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rel)
}
