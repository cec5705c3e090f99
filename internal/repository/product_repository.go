package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cloudimart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock is returned by DecreaseStock when the requested
	// quantity exceeds what is currently available. The decrement is a
	// single conditional update, so the check and the mutation cannot race.
	ErrInsufficientStock = errors.New("insufficient stock")

	ErrProductSlugTaken = errors.New("product with this slug already exists")
)

// Product sort options accepted by List
const (
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortName      = "name"
	SortNewest    = "newest"
)

// ProductFilter narrows a product listing
type ProductFilter struct {
	CategoryName string
	Search       string
	Sort         string
}

// ProductStats holds the product counters shown on the admin dashboard
type ProductStats struct {
	Total      int `json:"total_products"`
	InStock    int `json:"active_products"`
	OutOfStock int `json:"out_of_stock"`
}

// ProductRepository defines the interface for product data access. It also
// owns the inventory ledger: StockQuantity is only ever mutated through
// DecreaseStock, IncreaseStock and SetStock.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
	Featured(ctx context.Context, limit int) ([]*domain.Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	DecreaseStock(ctx context.Context, id uuid.UUID, quantity int) error
	IncreaseStock(ctx context.Context, id uuid.UUID, quantity int) error
	SetStock(ctx context.Context, id uuid.UUID, quantity int) error
	Stats(ctx context.Context) (*ProductStats, error)
	WithTx(tx *sql.Tx) ProductRepository
}

type productRepository struct {
	q Querier
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{q: db}
}

// WithTx returns a copy of the repository that runs inside tx
func (r *productRepository) WithTx(tx *sql.Tx) ProductRepository {
	return &productRepository{q: tx}
}

const productColumns = `
	p.id, p.category_id, p.name, p.slug, p.description, p.price,
	p.stock_quantity, p.image_url, p.is_active, p.featured,
	p.created_at, p.updated_at,
	c.id, c.name, c.slug, c.created_at, c.updated_at
`

func scanProduct(row interface{ Scan(dest ...any) error }) (*domain.Product, error) {
	product := &domain.Product{Category: &domain.Category{}}
	err := row.Scan(
		&product.ID,
		&product.CategoryID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.ImageURL,
		&product.IsActive,
		&product.Featured,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Category.ID,
		&product.Category.Name,
		&product.Category.Slug,
		&product.Category.CreatedAt,
		&product.Category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, category_id, name, slug, description, price,
			stock_quantity, image_url, is_active, featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(
		ctx,
		query,
		product.ID,
		product.CategoryID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		product.StockQuantity,
		product.ImageURL,
		product.IsActive,
		product.Featured,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return ErrProductSlugTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product's catalog fields. Stock is not
// touched here; stock mutations go through the stock operations.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET category_id = $2, name = $3, slug = $4, description = $5,
		    price = $6, image_url = $7, is_active = $8, featured = $9
		WHERE id = $1
	`

	result, err := r.q.ExecContext(
		ctx,
		query,
		product.ID,
		product.CategoryID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price,
		product.ImageURL,
		product.IsActive,
		product.Featured,
	)

	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return ErrProductSlugTaken
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product with its category by ID
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	product, err := scanProduct(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products with optional category, search and sort filters
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
	`

	where := ""
	args := []any{}
	argIndex := 1

	if filter.CategoryName != "" {
		where = fmt.Sprintf("WHERE c.name = $%d", argIndex)
		args = append(args, filter.CategoryName)
		argIndex++
	}

	if filter.Search != "" {
		clause := fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", argIndex, argIndex)
		if where == "" {
			where = "WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, "%"+filter.Search+"%")
	}

	// Whitelisted sort expressions to prevent SQL injection
	orderBy := "p.created_at DESC"
	switch filter.Sort {
	case SortPriceLow:
		orderBy = "p.price ASC"
	case SortPriceHigh:
		orderBy = "p.price DESC"
	case SortName:
		orderBy = "p.name ASC"
	}

	query = fmt.Sprintf("%s %s ORDER BY %s", query, where, orderBy)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// Featured retrieves up to limit featured products that are in stock,
// newest first.
func (r *productRepository) Featured(ctx context.Context, limit int) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.featured = TRUE AND p.stock_quantity > 0
		ORDER BY p.created_at DESC
		LIMIT $1
	`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// SlugExists reports whether a product already uses the given slug
func (r *productRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check product slug: %w", err)
	}

	return exists, nil
}

// DecreaseStock atomically reserves quantity units of the product. The
// decrement only happens when enough stock is available, so concurrent
// checkouts of the last unit cannot both succeed.
func (r *productRepository) DecreaseStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2
	`

	result, err := r.q.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to decrease stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Either the product is gone or there is not enough stock left;
		// distinguish so callers can report availability.
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return ErrInsufficientStock
	}

	return nil
}

// IncreaseStock returns quantity units of the product to stock
func (r *productRepository) IncreaseStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity + $2
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to increase stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// SetStock overwrites the product's stock count (admin stock correction)
func (r *productRepository) SetStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET stock_quantity = $2
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Stats returns product counters for the admin dashboard
func (r *productRepository) Stats(ctx context.Context) (*ProductStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE stock_quantity > 0),
			COUNT(*) FILTER (WHERE stock_quantity = 0)
		FROM products
	`

	stats := &ProductStats{}
	err := r.q.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.InStock,
		&stats.OutOfStock,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	return stats, nil
}
