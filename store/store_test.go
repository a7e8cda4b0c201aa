package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/antonkh/bookcatalog/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, username, firstName, lastName string) int64 {
	t.Helper()
	id, err := db.CreateUser(context.Background(), &models.User{
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	})
	require.NoError(t, err)
	return id
}

func seedBook(t *testing.T, db *DB, name, price, authorName string, ownerID *int64) int64 {
	t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)
	id, err := db.InsertBook(context.Background(), &models.Book{
		Name:       name,
		Price:      p,
		AuthorName: authorName,
		OwnerID:    ownerID,
	})
	require.NoError(t, err)
	return id
}

func likePatch(like bool) models.RelationPatch {
	return models.RelationPatch{Like: &like, HasLike: true}
}

func ratePatch(rate int) models.RelationPatch {
	return models.RelationPatch{Rate: &rate, HasRate: true}
}
