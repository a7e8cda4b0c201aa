package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/antonkh/bookcatalog/models"
	"github.com/shopspring/decimal"
)

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// UpsertRelation applies a partial update to the (user, book) relation,
// creating the row with defaults on first interaction. When the patch
// carries a rate, the book's average rating is recomputed before the
// transaction commits, so the relation write and the derived rating can
// never diverge.
func (db *DB) UpsertRelation(ctx context.Context, userID, bookID int64, patch models.RelationPatch) (*models.UserBookRelation, error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	db.stmts.Add(1)
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM book WHERE id = ?`, bookID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check book: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	db.stmts.Add(1)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO user_book_relation (user_id, book_id) VALUES (?, ?)
ON CONFLICT (user_id, book_id) DO NOTHING`, userID, bookID); err != nil {
		return nil, fmt.Errorf("ensure relation: %w", err)
	}

	var (
		sets []string
		args []any
	)
	if patch.HasLike {
		sets = append(sets, "liked = ?")
		args = append(args, boolToInt(*patch.Like))
	}
	if patch.HasInBookmarks {
		sets = append(sets, "in_bookmarks = ?")
		args = append(args, boolToInt(*patch.InBookmarks))
	}
	if patch.HasRate {
		sets = append(sets, "rate = ?")
		args = append(args, patch.Rate)
	}
	if len(sets) > 0 {
		args = append(args, userID, bookID)
		db.stmts.Add(1)
		if _, err := tx.ExecContext(ctx, `UPDATE user_book_relation SET `+strings.Join(sets, ", ")+
			` WHERE user_id = ? AND book_id = ?`, args...); err != nil {
			return nil, fmt.Errorf("update relation: %w", err)
		}
	}

	if patch.HasRate {
		if err := db.setRating(ctx, tx, bookID); err != nil {
			return nil, err
		}
	}

	rel, err := db.relationByPair(ctx, tx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rel, nil
}

// RelationByPair returns the stored relation for a (user, book) pair.
func (db *DB) RelationByPair(ctx context.Context, userID, bookID int64) (*models.UserBookRelation, error) {
	return db.relationByPair(ctx, db.sql, userID, bookID)
}

func (db *DB) relationByPair(ctx context.Context, q execQuerier, userID, bookID int64) (*models.UserBookRelation, error) {
	db.stmts.Add(1)
	rows, err := q.QueryContext(ctx, `
SELECT id, user_id, book_id, liked, in_bookmarks, rate
FROM user_book_relation WHERE user_id = ? AND book_id = ?`, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("relation: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	var (
		rel         models.UserBookRelation
		liked       int
		inBookmarks int
		rate        sql.NullInt64
	)
	if err := rows.Scan(&rel.ID, &rel.UserID, &rel.BookID, &liked, &inBookmarks, &rate); err != nil {
		return nil, fmt.Errorf("scan relation: %w", err)
	}
	rel.Like = liked == 1
	rel.InBookmarks = inBookmarks == 1
	if rate.Valid {
		v := int(rate.Int64)
		rel.Rate = &v
		rel.RateDisplay = models.RateLabels[v]
	}
	return &rel, nil
}

// SetRating recomputes and persists the book's average rating outside of
// any surrounding transaction.
func (db *DB) SetRating(ctx context.Context, bookID int64) error {
	return db.setRating(ctx, db.sql, bookID)
}

// setRating averages the non-null rates over the book's relations with
// fixed-point arithmetic, rounded to two places; no rates means NULL.
// Recomputing with unchanged relations persists the same value.
func (db *DB) setRating(ctx context.Context, q execQuerier, bookID int64) error {
	db.stmts.Add(1)
	rows, err := q.QueryContext(ctx, `SELECT rate FROM user_book_relation WHERE book_id = ? AND rate IS NOT NULL`, bookID)
	if err != nil {
		return fmt.Errorf("load rates: %w", err)
	}
	defer rows.Close()

	var sum, count int64
	for rows.Next() {
		var rate int64
		if err := rows.Scan(&rate); err != nil {
			return fmt.Errorf("scan rate: %w", err)
		}
		sum += rate
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var rating any
	if count > 0 {
		avg := decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)).Round(2)
		rating = avg.StringFixed(2)
	}
	db.stmts.Add(1)
	if _, err := q.ExecContext(ctx, `UPDATE book SET rating = ? WHERE id = ?`, rating, bookID); err != nil {
		return fmt.Errorf("store rating: %w", err)
	}
	return nil
}
