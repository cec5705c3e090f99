package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses. Delivered and cancelled are terminal; processing is
// reachable only through admin action.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment statuses. There is no payment gateway; orders are created with
// PaymentStatusPaid as a placeholder flag.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// ValidOrderStatus reports whether status is a recognised order status
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is an immutable record of a checkout, except for status and
// delivered_at. OrderID is the external-facing identifier
// (CLM-YYYYMMDD-XXXX), distinct from the internal ID.
type Order struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	UserID           uuid.UUID       `json:"user_id" db:"user_id"`
	OrderID          string          `json:"order_id" db:"order_id"`
	TotalAmount      decimal.Decimal `json:"total_amount" db:"total_amount"`
	DeliveryAddress  string          `json:"delivery_address" db:"delivery_address"`
	DeliveryLocation string          `json:"delivery_location" db:"delivery_location"`
	Phone            string          `json:"phone" db:"phone"`
	Latitude         float64         `json:"latitude" db:"latitude"`
	Longitude        float64         `json:"longitude" db:"longitude"`
	Notes            string          `json:"notes" db:"notes"`
	Status           string          `json:"status" db:"status"`
	PaymentStatus    string          `json:"payment_status" db:"payment_status"`
	DeliveredAt      *time.Time      `json:"delivered_at" db:"delivered_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`

	Items []*OrderItem `json:"items,omitempty" db:"-"`
}

// IsTerminal reports whether the order can no longer change status
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}

// OrderItem is an immutable snapshot of (product, quantity, price) taken
// at order time, decoupled from later catalog changes.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`

	Product *Product `json:"product,omitempty" db:"-"`
}

// LineTotal returns quantity times the snapshotted price
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
