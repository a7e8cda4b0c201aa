package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/antonkh/bookcatalog/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRelation(t *testing.T, body []byte) models.UserBookRelation {
	t.Helper()
	var rel models.UserBookRelation
	require.NoError(t, json.Unmarshal(body, &rel))
	return rel
}

func TestPatchRelationLikeAndBookmarks(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("test_user", "", "", false)
	book := env.createBook("testbook1", "30.50", "good_author", user)

	rec := env.patchRelation(user, book, map[string]any{"like": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rel := decodeRelation(t, rec.Body.Bytes())
	assert.True(t, rel.Like)
	assert.False(t, rel.InBookmarks)
	assert.Nil(t, rel.Rate)

	// A later patch leaves the fields it does not mention alone.
	rec = env.patchRelation(user, book, map[string]any{"in_bookmarks": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rel = decodeRelation(t, rec.Body.Bytes())
	assert.True(t, rel.Like)
	assert.True(t, rel.InBookmarks)
}

func TestPatchRelationRate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("test_user", "", "", false)
	book := env.createBook("testbook1", "30.50", "good_author", user)

	rec := env.patchRelation(user, book, map[string]any{"rate": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	rel := decodeRelation(t, rec.Body.Bytes())
	require.NotNil(t, rel.Rate)
	assert.Equal(t, 4, *rel.Rate)
	assert.Equal(t, "amazing", rel.RateDisplay)

	row, err := env.db.BookRow(context.Background(), book)
	require.NoError(t, err)
	require.True(t, row.Rating.Valid)
	assert.Equal(t, "4.00", row.Rating.Decimal.StringFixed(2))

	// Liking afterwards must not disturb the rate.
	rec = env.patchRelation(user, book, map[string]any{"like": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rel = decodeRelation(t, rec.Body.Bytes())
	require.NotNil(t, rel.Rate)
	assert.Equal(t, 4, *rel.Rate)
	assert.True(t, rel.Like)
}

func TestPatchRelationRatingAverages(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser("test_user", "", "", false)
	reader := env.createUser("test_user2", "", "", false)
	book := env.createBook("testbook1", "30.50", "good_author", owner)

	rec := env.patchRelation(owner, book, map[string]any{"rate": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.patchRelation(reader, book, map[string]any{"rate": 4})
	require.Equal(t, http.StatusOK, rec.Code)

	row, err := env.db.BookRow(context.Background(), book)
	require.NoError(t, err)
	require.True(t, row.Rating.Valid)
	assert.Equal(t, "3.50", row.Rating.Decimal.StringFixed(2))
}

func TestPatchRelationRateNull(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("test_user", "", "", false)
	book := env.createBook("testbook1", "30.50", "good_author", user)

	rec := env.patchRelation(user, book, map[string]any{"rate": 4})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.patchRelation(user, book, map[string]any{"rate": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	rel := decodeRelation(t, rec.Body.Bytes())
	assert.Nil(t, rel.Rate)

	row, err := env.db.BookRow(context.Background(), book)
	require.NoError(t, err)
	assert.False(t, row.Rating.Valid)
}

func TestPatchRelationRateOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("test_user", "", "", false)
	book := env.createBook("testbook1", "30.50", "good_author", user)

	for _, rate := range []int{0, 6} {
		rec := env.patchRelation(user, book, map[string]any{"rate": rate})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestPatchRelationUnknownBook(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("test_user", "", "", false)
	rec := env.patchRelation(user, 99999, map[string]any{"like": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchRelationUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("test_user", "", "", false)
	book := env.createBook("testbook1", "30.50", "good_author", user)

	rec := env.request(http.MethodPatch, "/book_relation/"+strconv.FormatInt(book, 10)+"/", "", map[string]any{"like": true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
