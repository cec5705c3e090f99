package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cloudimart/internal/domain"
	"cloudimart/internal/geo"
	"cloudimart/internal/notification"
	"cloudimart/internal/repository"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrOutsideServiceArea = errors.New("delivery location is outside our service area")
	ErrPhoneMismatch      = errors.New("phone number does not match order records")
	ErrAlreadyDelivered   = errors.New("order has already been delivered")
	ErrNotCancellable     = errors.New("only pending orders can be cancelled")
)

// notifyTimeout bounds the post-commit notification goroutine so a slow
// SMS gateway cannot hold resources indefinitely.
const notifyTimeout = 30 * time.Second

// CheckoutDestination carries the delivery details supplied at checkout.
type CheckoutDestination struct {
	DeliveryAddress  string
	DeliveryLocation string
	Phone            string
	Latitude         float64
	Longitude        float64
	Notes            string
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, dest CheckoutDestination) (*domain.Order, error)
	ConfirmDelivery(ctx context.Context, orderID, collectorPhone string) (*domain.Order, error)
	CancelOrder(ctx context.Context, userID uuid.UUID, orderID string) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	GetByOrderID(ctx context.Context, userID uuid.UUID, orderID string) (*domain.Order, error)
	Track(ctx context.Context, orderID string) (*domain.Order, error)
}

type orderService struct {
	db          *sql.DB
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	geofence    *geo.Validator
	dispatcher  notification.Dispatcher
	logger      *zap.Logger
	rand        io.Reader
}

func NewOrderService(
	db *sql.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	geofence *geo.Validator,
	dispatcher notification.Dispatcher,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		db:          db,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		geofence:    geofence,
		dispatcher:  dispatcher,
		logger:      logger,
		rand:        rand.Reader,
	}
}

// PlaceOrder converts the user's cart into an order. Stock is decremented
// conditionally inside a single transaction, so a shortfall on any item
// rolls back the whole checkout and no partial order is ever created.
func (s *orderService) PlaceOrder(ctx context.Context, userID uuid.UUID, dest CheckoutDestination) (*domain.Order, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if !s.geofence.WithinServiceArea(dest.Latitude, dest.Longitude, dest.DeliveryLocation) {
		return nil, ErrOutsideServiceArea
	}

	// A concurrent checkout can claim the generated id between the
	// uniqueness check and the insert; the unique index reports that as
	// ErrOrderIDTaken and the whole transaction is retried with a fresh id.
	var orderID string
	for attempt := 0; attempt < orderIDMaxAttempts; attempt++ {
		orderID, err = s.generateOrderID(ctx)
		if err != nil {
			return nil, err
		}

		err = s.checkout(ctx, userID, cart, dest, orderID)
		if errors.Is(err, repository.ErrOrderIDTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	if errors.Is(err, repository.ErrOrderIDTaken) {
		return nil, ErrOrderIDExhausted
	}

	placed, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", placed.OrderID),
		zap.String("user_id", userID.String()),
		zap.String("total", placed.TotalAmount.StringFixed(2)))

	go s.notifyOrderPlaced(placed)

	return placed, nil
}

// checkout runs the write side of PlaceOrder in a single transaction:
// order row, item snapshots, conditional stock decrements and cart clear.
// Any failure rolls the whole transaction back.
func (s *orderService) checkout(ctx context.Context, userID uuid.UUID, cart *domain.Cart, dest CheckoutDestination, orderID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderTx := s.orderRepo.WithTx(tx)
	productTx := s.productRepo.WithTx(tx)
	cartTx := s.cartRepo.WithTx(tx)

	now := time.Now()
	order := &domain.Order{
		ID:               uuid.New(),
		UserID:           userID,
		OrderID:          orderID,
		TotalAmount:      cart.Subtotal(),
		DeliveryAddress:  dest.DeliveryAddress,
		DeliveryLocation: dest.DeliveryLocation,
		Phone:            dest.Phone,
		Latitude:         dest.Latitude,
		Longitude:        dest.Longitude,
		Notes:            dest.Notes,
		Status:           domain.OrderStatusPending,
		PaymentStatus:    domain.PaymentStatusPaid,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := orderTx.Create(ctx, order); err != nil {
		return err
	}

	for _, item := range cart.Items {
		if err := productTx.DecreaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return s.stockShortfall(ctx, productTx, item)
			}
			return err
		}

		orderItem := &domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			CreatedAt: now,
		}
		if err := orderTx.CreateItem(ctx, orderItem); err != nil {
			return err
		}
	}

	if err := cartTx.DeleteItems(ctx, cart.ID); err != nil {
		return err
	}
	if err := cartTx.UpdateTotal(ctx, cart.ID, decimal.Zero); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// stockShortfall reports which product ran out and how many units remain.
// The read runs on the same transaction, so the quantity reflects the
// state the failed decrement saw.
func (s *orderService) stockShortfall(ctx context.Context, productTx repository.ProductRepository, item *domain.CartItem) error {
	product, err := productTx.FindByID(ctx, item.ProductID)
	if err != nil {
		return repository.ErrInsufficientStock
	}
	return &InsufficientStockError{ProductName: product.Name, Available: product.StockQuantity}
}

// ConfirmDelivery marks an order delivered after the collector's phone
// number matches the one recorded at checkout.
func (s *orderService) ConfirmDelivery(ctx context.Context, orderID, collectorPhone string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Phone != collectorPhone {
		return nil, ErrPhoneMismatch
	}
	if order.Status == domain.OrderStatusDelivered {
		return nil, ErrAlreadyDelivered
	}

	if err := s.orderRepo.MarkDelivered(ctx, order.ID, time.Now()); err != nil {
		return nil, err
	}

	delivered, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("delivery confirmed", zap.String("order_id", delivered.OrderID))

	go s.notifyDelivered(delivered)

	return delivered, nil
}

// CancelOrder cancels a pending order owned by userID and restores the
// reserved stock in the same transaction as the status change.
func (s *orderService) CancelOrder(ctx context.Context, userID uuid.UUID, orderID string) error {
	order, err := s.orderRepo.FindByOrderIDForUser(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPending {
		return ErrNotCancellable
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderTx := s.orderRepo.WithTx(tx)
	productTx := s.productRepo.WithTx(tx)

	for _, item := range order.Items {
		if err := productTx.IncreaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	if err := orderTx.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("order cancelled",
		zap.String("order_id", order.OrderID),
		zap.String("user_id", userID.String()))

	return nil
}

func (s *orderService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

func (s *orderService) GetByOrderID(ctx context.Context, userID uuid.UUID, orderID string) (*domain.Order, error) {
	return s.orderRepo.FindByOrderIDForUser(ctx, orderID, userID)
}

// Track looks an order up by its external identifier without user
// scoping, for the public order tracking page.
func (s *orderService) Track(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orderRepo.FindByOrderID(ctx, orderID)
}

// notifyOrderPlaced runs post-commit on its own goroutine. Failures are
// logged and never surfaced to the request that placed the order.
func (s *orderService) notifyOrderPlaced(order *domain.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, order.UserID)
	if err != nil {
		s.logger.Error("failed to load user for order notifications",
			zap.String("order_id", order.OrderID), zap.Error(err))
		return
	}

	result := s.dispatcher.SendOrderNotifications(ctx, order, user)
	s.logger.Info("order notifications dispatched",
		zap.String("order_id", order.OrderID),
		zap.Bool("sms", result.SMS),
		zap.Bool("email", result.Email))
}

func (s *orderService) notifyDelivered(order *domain.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, order.UserID)
	if err != nil {
		s.logger.Error("failed to load user for delivery notifications",
			zap.String("order_id", order.OrderID), zap.Error(err))
		return
	}

	result := s.dispatcher.SendDeliveryConfirmation(ctx, order, user)
	s.logger.Info("delivery notifications dispatched",
		zap.String("order_id", order.OrderID),
		zap.Bool("sms", result.SMS),
		zap.Bool("email", result.Email))
}
