package models

import (
	"github.com/shopspring/decimal"
)

// Book is a catalog row as stored. Rating is derived from relation rates
// and is never written directly by API clients.
type Book struct {
	ID         int64
	Name       string
	Price      decimal.Decimal
	AuthorName string
	OwnerID    *int64
	Rating     decimal.NullDecimal
}

// Reader is the public view of a user who has a relation to a book.
type Reader struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// BookDetail is the serialized book representation returned by the list and
// retrieve endpoints. Price and Rating are fixed-point strings with two
// fractional digits; AnnotatedLikes and Readers are computed at query time.
type BookDetail struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Price          string   `json:"price"`
	AuthorName     string   `json:"author_name"`
	AnnotatedLikes int      `json:"annotated_likes"`
	Rating         *string  `json:"rating"`
	OwnerName      string   `json:"owner_name"`
	Readers        []Reader `json:"readers"`
}

// BookInput is the create/update payload.
type BookInput struct {
	Name       string          `json:"name" validate:"required"`
	Price      decimal.Decimal `json:"price" validate:"required"`
	AuthorName string          `json:"author_name" validate:"required"`
}
