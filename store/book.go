package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/antonkh/bookcatalog/models"
)

// ListOptions narrows and orders the book listing.
type ListOptions struct {
	Search   string // case-insensitive substring over name or author_name
	Ordering string // whitelisted field name, optional "-" prefix for descending
}

// orderColumns whitelists the fields callers may order by. Price and rating
// are stored as fixed-point text, so they are cast for numeric ordering.
var orderColumns = map[string]string{
	"id":          "b.id",
	"name":        "b.name",
	"price":       "CAST(b.price AS REAL)",
	"author_name": "b.author_name",
	"rating":      "CAST(b.rating AS REAL)",
}

func orderClause(ordering string) string {
	field := strings.TrimPrefix(ordering, "-")
	col, ok := orderColumns[field]
	if !ok {
		return "b.id ASC"
	}
	dir := " ASC"
	if strings.HasPrefix(ordering, "-") {
		dir = " DESC"
	}
	return col + dir + ", b.id ASC"
}

// bookSelect is the grouped join behind both the list and retrieve paths:
// the like count and owner name come back with the book rows themselves,
// so listing stays at two statements total regardless of book count.
const bookSelect = `
SELECT b.id, b.name, b.price, b.author_name, b.rating,
	COUNT(CASE WHEN r.liked = 1 THEN 1 END) AS annotated_likes,
	COALESCE(u.username, '') AS owner_name
FROM book b
LEFT JOIN user_book_relation r ON r.book_id = b.id
LEFT JOIN user u ON u.id = b.owner_id`

// ListBooks returns serialized book representations. Exactly two statements
// are issued when any books match: the grouped join and one readers query.
func (db *DB) ListBooks(ctx context.Context, opts ListOptions) ([]models.BookDetail, error) {
	query := bookSelect
	var args []any
	if opts.Search != "" {
		query += `
WHERE instr(lower(b.name), lower(?1)) > 0 OR instr(lower(b.author_name), lower(?1)) > 0`
		args = append(args, opts.Search)
	}
	query += `
GROUP BY b.id
ORDER BY ` + orderClause(opts.Ordering)

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := make([]models.BookDetail, 0)
	index := make(map[int64]int)
	for rows.Next() {
		book, err := scanBookDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		index[book.ID] = len(books)
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return books, nil
	}

	readers, err := db.readersByBook(ctx, keys(index))
	if err != nil {
		return nil, err
	}
	for bookID, rs := range readers {
		books[index[bookID]].Readers = rs
	}
	return books, nil
}

// GetBook returns the serialized representation of a single book.
func (db *DB) GetBook(ctx context.Context, id int64) (*models.BookDetail, error) {
	rows, err := db.query(ctx, bookSelect+`
WHERE b.id = ?
GROUP BY b.id`, id)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	book, err := scanBookDetail(rows)
	if err != nil {
		return nil, fmt.Errorf("scan book: %w", err)
	}
	rows.Close()

	readers, err := db.readersByBook(ctx, []int64{book.ID})
	if err != nil {
		return nil, err
	}
	if rs, ok := readers[book.ID]; ok {
		book.Readers = rs
	}
	return book, nil
}

// BookRow returns the raw stored row, used for ownership checks.
func (db *DB) BookRow(ctx context.Context, id int64) (*models.Book, error) {
	var (
		book   models.Book
		price  string
		owner  sql.NullInt64
		rating sql.NullString
	)
	err := db.queryRow(ctx, `SELECT id, name, price, author_name, owner_id, rating FROM book WHERE id = ?`, id).
		Scan(&book.ID, &book.Name, &price, &book.AuthorName, &owner, &rating)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("book row: %w", err)
	}
	if book.Price, err = parseDecimal(price); err != nil {
		return nil, err
	}
	if owner.Valid {
		book.OwnerID = &owner.Int64
	}
	if rating.Valid {
		d, err := parseDecimal(rating.String)
		if err != nil {
			return nil, err
		}
		book.Rating.Valid = true
		book.Rating.Decimal = d
	}
	return &book, nil
}

// InsertBook stores a new book and returns its id.
func (db *DB) InsertBook(ctx context.Context, book *models.Book) (int64, error) {
	res, err := db.exec(ctx, `INSERT INTO book (name, price, author_name, owner_id) VALUES (?, ?, ?, ?)`,
		book.Name, book.Price.StringFixed(2), book.AuthorName, book.OwnerID)
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return res.LastInsertId()
}

// UpdateBook replaces the client-writable fields of a book.
func (db *DB) UpdateBook(ctx context.Context, id int64, in models.BookInput) error {
	res, err := db.exec(ctx, `UPDATE book SET name = ?, price = ?, author_name = ? WHERE id = ?`,
		in.Name, in.Price.StringFixed(2), in.AuthorName, id)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBook removes a book; relation rows cascade.
func (db *DB) DeleteBook(ctx context.Context, id int64) error {
	res, err := db.exec(ctx, `DELETE FROM book WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountBooks reports the number of book rows; tests use it to assert that
// denied mutations leave state untouched.
func (db *DB) CountBooks(ctx context.Context) (int64, error) {
	var n int64
	err := db.queryRow(ctx, `SELECT COUNT(*) FROM book`).Scan(&n)
	return n, err
}

// readersByBook returns the readers of each book in relation insertion order.
func (db *DB) readersByBook(ctx context.Context, bookIDs []int64) (map[int64][]models.Reader, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(bookIDs)), ",")
	args := make([]any, len(bookIDs))
	for i, id := range bookIDs {
		args[i] = id
	}
	rows, err := db.query(ctx, `
SELECT r.book_id, u.first_name, u.last_name
FROM user_book_relation r
JOIN user u ON u.id = r.user_id
WHERE r.book_id IN (`+placeholders+`)
ORDER BY r.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("book readers: %w", err)
	}
	defer rows.Close()

	readers := make(map[int64][]models.Reader)
	for rows.Next() {
		var (
			bookID int64
			reader models.Reader
		)
		if err := rows.Scan(&bookID, &reader.FirstName, &reader.LastName); err != nil {
			return nil, fmt.Errorf("scan reader: %w", err)
		}
		readers[bookID] = append(readers[bookID], reader)
	}
	return readers, rows.Err()
}

func scanBookDetail(rows *sql.Rows) (*models.BookDetail, error) {
	var (
		book   models.BookDetail
		rating sql.NullString
	)
	err := rows.Scan(&book.ID, &book.Name, &book.Price, &book.AuthorName, &rating, &book.AnnotatedLikes, &book.OwnerName)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		book.Rating = &rating.String
	}
	book.Readers = []models.Reader{}
	return &book, nil
}

func keys(index map[int64]int) []int64 {
	ids := make([]int64, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	return ids
}
