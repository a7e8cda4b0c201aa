package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/antonkh/bookcatalog/middleware"
	"github.com/antonkh/bookcatalog/models"
	"github.com/antonkh/bookcatalog/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = newValidator()

// newValidator reports fields by their json names so validation errors line
// up with what the client actually sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type BooksHandler struct {
	DB *store.DB
}

// List handles GET /book/ with optional search and ordering query params.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{
		Search:   r.URL.Query().Get("search"),
		Ordering: r.URL.Query().Get("ordering"),
	}
	books, err := h.DB.ListBooks(r.Context(), opts)
	if err != nil {
		log.Error().Err(err).Msg("list books")
		http.Error(w, `{"error":"failed to list books"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(books)
}

// Get handles GET /book/{id}/.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	book, err := h.DB.GetBook(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("book_id", id).Msg("get book")
		http.Error(w, `{"error":"failed to load book"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(book)
}

// Create handles POST /book/; the authenticated caller becomes owner.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	in, ok := decodeBookInput(w, r)
	if !ok {
		return
	}
	ownerID := principal.ID
	id, err := h.DB.InsertBook(r.Context(), &models.Book{
		Name:       in.Name,
		Price:      in.Price,
		AuthorName: in.AuthorName,
		OwnerID:    &ownerID,
	})
	if err != nil {
		log.Error().Err(err).Msg("create book")
		http.Error(w, `{"error":"failed to create book"}`, http.StatusInternalServerError)
		return
	}
	book, err := h.DB.GetBook(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("book_id", id).Msg("load created book")
		http.Error(w, `{"error":"failed to load book"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(book)
}

// Update handles PUT /book/{id}/; owner or staff only.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	row, err := h.DB.BookRow(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("book_id", id).Msg("load book for update")
		http.Error(w, `{"error":"failed to load book"}`, http.StatusInternalServerError)
		return
	}
	if !canModify(principal, row) {
		http.Error(w, `{"error":"you do not have permission to modify this book"}`, http.StatusForbidden)
		return
	}
	in, ok := decodeBookInput(w, r)
	if !ok {
		return
	}
	if err := h.DB.UpdateBook(r.Context(), id, in); err != nil {
		log.Error().Err(err).Int64("book_id", id).Msg("update book")
		http.Error(w, `{"error":"failed to update book"}`, http.StatusInternalServerError)
		return
	}
	book, err := h.DB.GetBook(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("book_id", id).Msg("load updated book")
		http.Error(w, `{"error":"failed to load book"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(book)
}

// Delete handles DELETE /book/{id}/; owner or staff only.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	row, err := h.DB.BookRow(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"book not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("book_id", id).Msg("load book for delete")
		http.Error(w, `{"error":"failed to load book"}`, http.StatusInternalServerError)
		return
	}
	if !canModify(principal, row) {
		http.Error(w, `{"error":"you do not have permission to modify this book"}`, http.StatusForbidden)
		return
	}
	if err := h.DB.DeleteBook(r.Context(), id); err != nil {
		log.Error().Err(err).Int64("book_id", id).Msg("delete book")
		http.Error(w, `{"error":"failed to delete book"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// canModify implements the unsafe-operation policy: staff may modify any
// book, everyone else only books they own. Unowned books are staff-only.
func canModify(p middleware.Principal, book *models.Book) bool {
	if p.IsStaff {
		return true
	}
	return book.OwnerID != nil && *book.OwnerID == p.ID
}

func bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid book id"}`, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decodeBookInput(w http.ResponseWriter, r *http.Request) (models.BookInput, bool) {
	var in models.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return in, false
	}
	if err := validate.Struct(in); err != nil {
		writeFieldErrors(w, err)
		return in, false
	}
	return in, true
}

func writeFieldErrors(w http.ResponseWriter, err error) {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				fields[fe.Field()] = "This field is required."
			default:
				fields[fe.Field()] = "This field is invalid."
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{"errors": fields})
}
