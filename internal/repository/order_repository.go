package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloudimart/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderIDTaken reports a lost race on the external order identifier:
	// another checkout inserted the same id between generation and insert.
	ErrOrderIDTaken = errors.New("order id already in use")
)

// OrderStats holds the order counters shown on the admin dashboard
type OrderStats struct {
	Total      int `json:"total_orders"`
	Pending    int `json:"pending_orders"`
	Processing int `json:"processing_orders"`
	Delivered  int `json:"delivered_orders"`
	Cancelled  int `json:"cancelled_orders"`
	Today      int `json:"orders_today"`
}

// SalesStats holds delivered-order revenue totals
type SalesStats struct {
	Total     decimal.Decimal `json:"total_sales"`
	Today     decimal.Decimal `json:"sales_today"`
	ThisMonth decimal.Decimal `json:"sales_this_month"`
}

// OrderRepository defines the interface for order data access. Orders are
// append-only history: only status and delivered_at ever change after
// creation.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	CreateItem(ctx context.Context, item *domain.OrderItem) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	FindByOrderIDForUser(ctx context.Context, orderID string, userID uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	OrderIDExists(ctx context.Context, orderID string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error
	Stats(ctx context.Context) (*OrderStats, error)
	Sales(ctx context.Context) (*SalesStats, error)
	WithTx(tx *sql.Tx) OrderRepository
}

type orderRepository struct {
	q Querier
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{q: db}
}

// WithTx returns a copy of the repository that runs inside tx
func (r *orderRepository) WithTx(tx *sql.Tx) OrderRepository {
	return &orderRepository{q: tx}
}

// Create inserts a new order record
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, order_id, total_amount, delivery_address,
			delivery_location, phone, latitude, longitude, notes, status,
			payment_status, delivered_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(
		ctx,
		query,
		order.ID,
		order.UserID,
		order.OrderID,
		order.TotalAmount,
		order.DeliveryAddress,
		order.DeliveryLocation,
		order.Phone,
		order.Latitude,
		order.Longitude,
		order.Notes,
		order.Status,
		order.PaymentStatus,
		order.DeliveredAt,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "orders_order_id_key") {
			return ErrOrderIDTaken
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// CreateItem inserts an immutable order line snapshot
func (r *orderRepository) CreateItem(ctx context.Context, item *domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(
		ctx,
		query,
		item.ID,
		item.OrderID,
		item.ProductID,
		item.Quantity,
		item.Price,
		item.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}

	return nil
}

const orderColumns = `
	id, user_id, order_id, total_amount, delivery_address, delivery_location,
	phone, latitude, longitude, notes, status, payment_status, delivered_at,
	created_at, updated_at
`

func scanOrder(row interface{ Scan(dest ...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.OrderID,
		&order.TotalAmount,
		&order.DeliveryAddress,
		&order.DeliveryLocation,
		&order.Phone,
		&order.Latitude,
		&order.Longitude,
		&order.Notes,
		&order.Status,
		&order.PaymentStatus,
		&order.DeliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) findOne(ctx context.Context, where string, args ...any) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where

	order, err := scanOrder(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	items, err := r.listItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// FindByOrderID retrieves an order with its items by external order ID
func (r *orderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.findOne(ctx, "order_id = $1", orderID)
}

// FindByOrderIDForUser retrieves an order only when it belongs to the user
func (r *orderRepository) FindByOrderIDForUser(ctx context.Context, orderID string, userID uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, "order_id = $1 AND user_id = $2", orderID, userID)
}

func (r *orderRepository) listItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.price, i.created_at,
		       ` + productColumns + `
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE i.order_id = $1
		ORDER BY i.created_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{Product: &domain.Product{Category: &domain.Category{}}}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
			&item.Product.ID,
			&item.Product.CategoryID,
			&item.Product.Name,
			&item.Product.Slug,
			&item.Product.Description,
			&item.Product.Price,
			&item.Product.StockQuantity,
			&item.Product.ImageURL,
			&item.Product.IsActive,
			&item.Product.Featured,
			&item.Product.CreatedAt,
			&item.Product.UpdatedAt,
			&item.Product.Category.ID,
			&item.Product.Category.Name,
			&item.Product.Category.Slug,
			&item.Product.Category.CreatedAt,
			&item.Product.Category.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func (r *orderRepository) list(ctx context.Context, where string, args ...any) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ` + where + ` ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for _, order := range orders {
		items, err := r.listItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}

	return orders, nil
}

// ListByUser retrieves the user's orders with items, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return r.list(ctx, "WHERE user_id = $1", userID)
}

// List retrieves every order with items, newest first
func (r *orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx, "")
}

// OrderIDExists reports whether the external order ID is already taken
func (r *orderRepository) OrderIDExists(ctx context.Context, orderID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check order ID: %w", err)
	}

	return exists, nil
}

// UpdateStatus sets the order status by internal ID
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE orders
		SET status = $2
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// MarkDelivered sets the order to delivered with the delivery timestamp
func (r *orderRepository) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	query := `
		UPDATE orders
		SET status = $2, delivered_at = $3
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, id, domain.OrderStatusDelivered, deliveredAt)
	if err != nil {
		return fmt.Errorf("failed to mark order delivered: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// Stats returns order counters for the admin dashboard
func (r *orderRepository) Stats(ctx context.Context) (*OrderStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE created_at::date = CURRENT_DATE)
		FROM orders
	`

	stats := &OrderStats{}
	err := r.q.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Processing,
		&stats.Delivered,
		&stats.Cancelled,
		&stats.Today,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	return stats, nil
}

// Sales returns delivered-order revenue totals for the admin dashboard
func (r *orderRepository) Sales(ctx context.Context) (*SalesStats, error) {
	query := `
		SELECT
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE created_at::date = CURRENT_DATE), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE date_trunc('month', created_at) = date_trunc('month', now())), 0)
		FROM orders
		WHERE status = 'delivered'
	`

	stats := &SalesStats{}
	err := r.q.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Today,
		&stats.ThisMonth,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sum sales: %w", err)
	}

	return stats, nil
}
