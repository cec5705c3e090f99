package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloudimart/internal/domain"
	"cloudimart/internal/repository"

	"github.com/google/uuid"
)

// InsufficientStockError reports a requested quantity that exceeds what is
// currently available for a product.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s, only %d available", e.ProductName, e.Available)
}

// AsInsufficientStock extracts an InsufficientStockError from err, if any
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr, true
	}
	return nil, false
}

// CartService defines the interface for cart business logic. Every
// mutation recomputes and persists the cart total before returning.
type CartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// Get returns the user's cart, creating an empty one on first use
func (s *cartService) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return s.cartRepo.GetOrCreate(ctx, userID)
}

// AddItem puts quantity units of a product into the cart. An existing line
// for the same product is merged by summing quantities; the price snapshot
// taken when the line was first created is kept. The combined quantity
// must not exceed the product's live stock.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.Cart, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.cartRepo.FindItem(ctx, cart.ID, productID)
	if err != nil && !errors.Is(err, repository.ErrCartItemNotFound) {
		return nil, err
	}

	requested := quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if !product.InStock(requested) {
		return nil, &InsufficientStockError{ProductName: product.Name, Available: product.StockQuantity}
	}

	if existing != nil {
		if err := s.cartRepo.UpdateItemQuantity(ctx, existing.ID, requested); err != nil {
			return nil, err
		}
	} else {
		now := time.Now()
		item := &domain.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			Price:     product.Price, // snapshot, decoupled from later price changes
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.cartRepo.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	}

	return s.refreshTotal(ctx, userID)
}

// UpdateItem sets the quantity on a cart line owned by the user
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.Cart, error) {
	item, err := s.cartRepo.FindItemForUser(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	if !product.InStock(quantity) {
		return nil, &InsufficientStockError{ProductName: product.Name, Available: product.StockQuantity}
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, err
	}

	return s.refreshTotal(ctx, userID)
}

// RemoveItem deletes a cart line owned by the user
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.Cart, error) {
	item, err := s.cartRepo.FindItemForUser(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteItem(ctx, item.ID); err != nil {
		return nil, err
	}

	return s.refreshTotal(ctx, userID)
}

// Clear removes every line from the user's cart and zeroes the total
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			// Nothing to clear
			return nil
		}
		return err
	}

	if err := s.cartRepo.DeleteItems(ctx, cart.ID); err != nil {
		return err
	}

	if _, err := s.refreshTotal(ctx, userID); err != nil {
		return err
	}

	return nil
}

// refreshTotal recomputes the cart total from its lines, persists it and
// returns the up-to-date cart.
func (s *cartService) refreshTotal(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Total = cart.Subtotal()
	if err := s.cartRepo.UpdateTotal(ctx, cart.ID, cart.Total); err != nil {
		return nil, err
	}

	return cart, nil
}
