package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	mw "github.com/antonkh/bookcatalog/middleware"
	"github.com/antonkh/bookcatalog/models"
	"github.com/antonkh/bookcatalog/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type testEnv struct {
	t      *testing.T
	db     *store.DB
	router http.Handler
	auth   *AuthHandler
}

// newTestEnv builds the real router over a throwaway SQLite database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authHandler := &AuthHandler{DB: db, JWTSecret: testSecret}
	booksHandler := &BooksHandler{DB: db}
	relationsHandler := &RelationsHandler{DB: db}

	r := chi.NewRouter()
	r.Use(chimw.StripSlashes)
	r.Post("/auth", authHandler.Login)
	r.Post("/users", authHandler.Register)
	r.Route("/book", func(r chi.Router) {
		r.Get("/", booksHandler.List)
		r.Get("/{id}", booksHandler.Get)
		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(testSecret))
			r.Post("/", booksHandler.Create)
			r.Put("/{id}", booksHandler.Update)
			r.Delete("/{id}", booksHandler.Delete)
		})
	})
	r.Route("/book_relation", func(r chi.Router) {
		r.Use(mw.Auth(testSecret))
		r.Patch("/{id}", relationsHandler.Patch)
	})

	return &testEnv{t: t, db: db, router: r, auth: authHandler}
}

func (e *testEnv) createUser(username, firstName, lastName string, staff bool) *models.User {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(e.t, err)
	user := &models.User{
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Password:  string(hash),
		IsStaff:   staff,
	}
	id, err := e.db.CreateUser(context.Background(), user)
	require.NoError(e.t, err)
	user.ID = id
	return user
}

func (e *testEnv) createBook(name, price, authorName string, owner *models.User) int64 {
	e.t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(e.t, err)
	book := &models.Book{Name: name, Price: p, AuthorName: authorName}
	if owner != nil {
		book.OwnerID = &owner.ID
	}
	id, err := e.db.InsertBook(context.Background(), book)
	require.NoError(e.t, err)
	return id
}

func (e *testEnv) token(user *models.User) string {
	e.t.Helper()
	token, err := e.auth.createToken(user)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) request(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) patchRelation(user *models.User, bookID int64, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.request(http.MethodPatch, "/book_relation/"+strconv.FormatInt(bookID, 10)+"/", e.token(user), body)
}

func strPtr(s string) *string { return &s }

func decodeBooks(t *testing.T, rec *httptest.ResponseRecorder) []models.BookDetail {
	t.Helper()
	var books []models.BookDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &books))
	return books
}
