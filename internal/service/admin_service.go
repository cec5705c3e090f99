package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cloudimart/internal/domain"
	"cloudimart/internal/repository"
)

var (
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidOrderStatus = errors.New("invalid order status")
	ErrSelfRoleChange     = errors.New("cannot change your own role")
	ErrSelfDelete         = errors.New("cannot delete your own account")
	ErrOrderFinalized     = errors.New("order is already delivered or cancelled")
)

// DashboardStats aggregates the counters shown on the admin dashboard.
type DashboardStats struct {
	Users    *repository.UserStats    `json:"users"`
	Orders   *repository.OrderStats   `json:"orders"`
	Sales    *repository.SalesStats   `json:"sales"`
	Products *repository.ProductStats `json:"products"`
}

type AdminService interface {
	Stats(ctx context.Context) (*DashboardStats, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUserRole(ctx context.Context, adminID, userID uuid.UUID, role string) error
	DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) (*domain.Order, error)
}

type adminService struct {
	db          *sql.DB
	userRepo    repository.UserRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	logger      *zap.Logger
}

func NewAdminService(
	db *sql.DB,
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	logger *zap.Logger,
) AdminService {
	return &adminService{
		db:          db,
		userRepo:    userRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

func (s *adminService) Stats(ctx context.Context) (*DashboardStats, error) {
	users, err := s.userRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.orderRepo.Sales(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.productRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{Users: users, Orders: orders, Sales: sales, Products: products}, nil
}

func (s *adminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

func (s *adminService) UpdateUserRole(ctx context.Context, adminID, userID uuid.UUID, role string) error {
	if !domain.ValidRole(role) {
		return ErrInvalidRole
	}
	if adminID == userID {
		return ErrSelfRoleChange
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return err
	}

	s.logger.Info("user role updated",
		zap.String("user_id", userID.String()),
		zap.String("role", role),
		zap.String("admin_id", adminID.String()))
	return nil
}

func (s *adminService) DeleteUser(ctx context.Context, adminID, userID uuid.UUID) error {
	if adminID == userID {
		return ErrSelfDelete
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user deleted",
		zap.String("user_id", userID.String()),
		zap.String("admin_id", adminID.String()))
	return nil
}

func (s *adminService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.List(ctx)
}

// UpdateOrderStatus moves an order to status. Delivered and cancelled are
// terminal, so a finalized order rejects any further change. Cancelling
// restores the stock that checkout reserved, in the same transaction as
// the status write.
func (s *adminService) UpdateOrderStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}

	order, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return nil, ErrOrderFinalized
	}

	switch status {
	case domain.OrderStatusDelivered:
		if err := s.orderRepo.MarkDelivered(ctx, order.ID, time.Now()); err != nil {
			return nil, err
		}
	case domain.OrderStatusCancelled:
		if err := s.cancelWithRestock(ctx, order); err != nil {
			return nil, err
		}
	default:
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, status); err != nil {
			return nil, err
		}
	}

	s.logger.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("status", status))

	return s.orderRepo.FindByOrderID(ctx, orderID)
}

func (s *adminService) cancelWithRestock(ctx context.Context, order *domain.Order) error {
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
	return nil
}
