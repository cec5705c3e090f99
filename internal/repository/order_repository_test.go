package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloudimart/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func createTestOrder(ctx context.Context, t *testing.T, userID uuid.UUID, orderID string) *domain.Order {
	t.Helper()

	now := time.Now()
	order := &domain.Order{
		ID:               uuid.New(),
		UserID:           userID,
		OrderID:          orderID,
		TotalAmount:      decimal.New(350000, -2),
		DeliveryAddress:  "Room 12, Chikavu Hostel, Mzuzu University",
		DeliveryLocation: "Mzuzu University Campus",
		Phone:            "+265991234567",
		Latitude:         -11.4203,
		Longitude:        33.9987,
		Status:           domain.OrderStatusPending,
		PaymentStatus:    domain.PaymentStatusPaid,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := NewOrderRepository(testDB).Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	t.Cleanup(func() {
		_, _ = testDB.Exec("DELETE FROM order_items WHERE order_id = $1", order.ID)
		_, _ = testDB.Exec("DELETE FROM orders WHERE id = $1", order.ID)
	})

	return order
}

func createOrderTestUser(ctx context.Context, t *testing.T, email string) *domain.User {
	t.Helper()

	user := newTestUser(email)
	if err := NewUserRepository(testDB).Create(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = testDB.Exec("DELETE FROM users WHERE id = $1", user.ID)
	})

	return user
}

func TestOrderCreateAndFindLoadsItems(t *testing.T) {
	ctx := context.Background()
	orderRepo := NewOrderRepository(testDB)
	user := createOrderTestUser(ctx, t, "order-find@example.com")
	category := createTestCategory(ctx, t)

	product := newCatalogProduct(category.ID, 175000, 10)
	if err := NewProductRepository(testDB).Create(ctx, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	t.Cleanup(func() { _ = NewProductRepository(testDB).Delete(ctx, product.ID) })

	order := createTestOrder(ctx, t, user.ID, "CLM-20260831-TST1")

	item := &domain.OrderItem{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: product.ID,
		Quantity:  2,
		Price:     product.Price,
		CreatedAt: time.Now(),
	}
	if err := orderRepo.CreateItem(ctx, item); err != nil {
		t.Fatalf("failed to create order item: %v", err)
	}

	found, err := orderRepo.FindByOrderID(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("failed to find order: %v", err)
	}

	if found.ID != order.ID {
		t.Errorf("expected order %s, got %s", order.ID, found.ID)
	}
	if !found.TotalAmount.Equal(order.TotalAmount) {
		t.Errorf("expected total %s, got %s", order.TotalAmount, found.TotalAmount)
	}
	if len(found.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(found.Items))
	}
	if found.Items[0].Quantity != 2 || !found.Items[0].Price.Equal(product.Price) {
		t.Errorf("item snapshot mismatch: quantity %d price %s", found.Items[0].Quantity, found.Items[0].Price)
	}
}

func TestFindByOrderIDForUserScopesToOwner(t *testing.T) {
	ctx := context.Background()
	orderRepo := NewOrderRepository(testDB)
	owner := createOrderTestUser(ctx, t, "order-owner@example.com")
	other := createOrderTestUser(ctx, t, "order-other@example.com")

	order := createTestOrder(ctx, t, owner.ID, "CLM-20260831-TST2")

	if _, err := orderRepo.FindByOrderIDForUser(ctx, order.OrderID, owner.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}

	if _, err := orderRepo.FindByOrderIDForUser(ctx, order.OrderID, other.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for non-owner, got %v", err)
	}
}

func TestOrderIDExists(t *testing.T) {
	ctx := context.Background()
	orderRepo := NewOrderRepository(testDB)
	user := createOrderTestUser(ctx, t, "order-exists@example.com")

	order := createTestOrder(ctx, t, user.ID, "CLM-20260831-TST3")

	exists, err := orderRepo.OrderIDExists(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !exists {
		t.Error("expected order ID to exist")
	}

	exists, err = orderRepo.OrderIDExists(ctx, "CLM-20260831-ZZZZ")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if exists {
		t.Error("expected order ID to be free")
	}
}

func TestMarkDeliveredSetsTimestamp(t *testing.T) {
	ctx := context.Background()
	orderRepo := NewOrderRepository(testDB)
	user := createOrderTestUser(ctx, t, "order-delivered@example.com")

	order := createTestOrder(ctx, t, user.ID, "CLM-20260831-TST4")

	deliveredAt := time.Now()
	if err := orderRepo.MarkDelivered(ctx, order.ID, deliveredAt); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}

	found, err := orderRepo.FindByOrderID(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("failed to find order: %v", err)
	}
	if found.Status != domain.OrderStatusDelivered {
		t.Errorf("expected status %q, got %q", domain.OrderStatusDelivered, found.Status)
	}
	if found.DeliveredAt == nil {
		t.Fatal("expected delivered_at to be set")
	}
}

func TestUpdateStatusRejectsMissingOrder(t *testing.T) {
	orderRepo := NewOrderRepository(testDB)

	err := orderRepo.UpdateStatus(context.Background(), uuid.New(), domain.OrderStatusProcessing)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

// Exercises the checkout write path the way the order service drives it:
// order, items, stock decrement and cart clearing all inside one transaction,
// with rollback leaving no partial state behind.
func TestCheckoutTransactionRollsBackOnInsufficientStock(t *testing.T) {
	ctx := context.Background()
	user := createOrderTestUser(ctx, t, "order-tx@example.com")
	category := createTestCategory(ctx, t)

	productRepo := NewProductRepository(testDB)
	product := newCatalogProduct(category.ID, 200000, 1)
	if err := productRepo.Create(ctx, product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	t.Cleanup(func() { _ = productRepo.Delete(ctx, product.ID) })

	tx, err := testDB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	orderTx := NewOrderRepository(testDB).WithTx(tx)
	productTx := productRepo.WithTx(tx)

	now := time.Now()
	order := &domain.Order{
		ID:               uuid.New(),
		UserID:           user.ID,
		OrderID:          "CLM-20260831-TST5",
		TotalAmount:      decimal.New(400000, -2),
		DeliveryAddress:  "Katoto, Mzuzu",
		DeliveryLocation: "Katoto",
		Phone:            "+265881112233",
		Latitude:         -11.4440,
		Longitude:        34.0150,
		Status:           domain.OrderStatusPending,
		PaymentStatus:    domain.PaymentStatusPaid,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := orderTx.Create(ctx, order); err != nil {
		t.Fatalf("order create failed: %v", err)
	}

	// Requesting more than is on hand fails the conditional decrement
	err = productTx.DecreaseStock(ctx, product.ID, 2)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}

	if exists, _ := NewOrderRepository(testDB).OrderIDExists(ctx, order.OrderID); exists {
		t.Error("order should not survive a rolled back transaction")
	}

	fresh, err := productRepo.FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	if fresh.StockQuantity != 1 {
		t.Errorf("expected stock 1 after rollback, got %d", fresh.StockQuantity)
	}
}

func TestOrderStatsCountsStatuses(t *testing.T) {
	ctx := context.Background()
	orderRepo := NewOrderRepository(testDB)
	user := createOrderTestUser(ctx, t, "order-stats@example.com")

	before, err := orderRepo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	pending := createTestOrder(ctx, t, user.ID, "CLM-20260831-TST6")
	delivered := createTestOrder(ctx, t, user.ID, "CLM-20260831-TST7")
	if err := orderRepo.MarkDelivered(ctx, delivered.ID, time.Now()); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	_ = pending

	after, err := orderRepo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if after.Total != before.Total+2 {
		t.Errorf("expected total %d, got %d", before.Total+2, after.Total)
	}
	if after.Pending != before.Pending+1 {
		t.Errorf("expected pending %d, got %d", before.Pending+1, after.Pending)
	}
	if after.Delivered != before.Delivered+1 {
		t.Errorf("expected delivered %d, got %d", before.Delivered+1, after.Delivered)
	}
}
