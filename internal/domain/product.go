package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog. Stock is never mutated
// directly; it only changes through the product repository's stock
// operations so it can never go negative.
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	CategoryID    uuid.UUID       `json:"category_id" db:"category_id"`
	Name          string          `json:"name" db:"name"`
	Slug          string          `json:"slug" db:"slug"`
	Description   string          `json:"description" db:"description"`
	Price         decimal.Decimal `json:"price" db:"price"`
	StockQuantity int             `json:"stock_quantity" db:"stock_quantity"`
	ImageURL      string          `json:"image_url" db:"image_url"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	Featured      bool            `json:"featured" db:"featured"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`

	// Category is populated on reads that join the categories table
	Category *Category `json:"category,omitempty" db:"-"`
}

// InStock reports whether at least quantity units are available
func (p *Product) InStock(quantity int) bool {
	return p.StockQuantity >= quantity
}

// Category represents a product category
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// ProductCount is populated by listings that count products per category
	ProductCount int `json:"product_count" db:"-"`
}
