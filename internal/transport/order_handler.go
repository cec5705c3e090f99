package transport

import (
	"errors"
	"net/http"

	"cloudimart/internal/middleware"
	"cloudimart/internal/repository"
	"cloudimart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutRequest represents the checkout request payload
type CheckoutRequest struct {
	DeliveryAddress  string  `json:"delivery_address" validate:"required,min=5"`
	DeliveryLocation string  `json:"delivery_location" validate:"required"`
	Phone            string  `json:"phone" validate:"required,min=9"`
	Latitude         float64 `json:"latitude" validate:"required,latitude"`
	Longitude        float64 `json:"longitude" validate:"required,longitude"`
	Notes            string  `json:"notes"`
}

// ConfirmDeliveryRequest represents the delivery confirmation payload
type ConfirmDeliveryRequest struct {
	OrderID        string `json:"order_id" validate:"required"`
	CollectorPhone string `json:"collector_phone" validate:"required"`
}

// OrderHandler handles HTTP requests for orders and delivery
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers order and delivery routes. Tracking by order ID
// is public; everything else needs auth, and confirmation additionally
// needs a delivery or admin role.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, deliveryRoleMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/{orderId}", h.Track)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", h.ListMine)
			r.Post("/", h.Checkout)
			r.Post("/{orderId}/cancel", h.Cancel)
		})
	})

	r.Route("/api/delivery", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(deliveryRoleMiddleware)
		r.Post("/confirm", h.ConfirmDelivery)
	})
}

// Checkout handles converting the cart into an order
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dest := service.CheckoutDestination{
		DeliveryAddress:  req.DeliveryAddress,
		DeliveryLocation: req.DeliveryLocation,
		Phone:            req.Phone,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Notes:            req.Notes,
	}

	order, err := h.orderService.PlaceOrder(r.Context(), userID, dest)
	if err != nil {
		if stockErr, ok := service.AsInsufficientStock(err); ok {
			middleware.RespondWithError(w, http.StatusBadRequest, stockErr.Error())
			return
		}
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, service.ErrOutsideServiceArea):
			middleware.RespondWithError(w, http.StatusBadRequest, "delivery location is outside our service area")
		default:
			h.logger.Error("Checkout failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
		}
		return
	}

	middleware.RespondWithMessage(w, http.StatusCreated, "order placed successfully", order)
}

// ListMine handles listing the authenticated user's orders
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.orderService.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// Track handles public order tracking by external order ID
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	order, err := h.orderService.Track(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Failed to track order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to track order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Cancel handles cancelling a pending order
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(w, r, h.logger)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "orderId")

	if err := h.orderService.CancelOrder(r.Context(), userID, orderID); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrNotCancellable):
			middleware.RespondWithError(w, http.StatusBadRequest, "only pending orders can be cancelled")
		default:
			h.logger.Error("Failed to cancel order", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to cancel order")
		}
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "order cancelled", nil)
}

// ConfirmDelivery handles the delivery confirmation flow
func (h *OrderHandler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	var req ConfirmDeliveryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.ConfirmDelivery(r.Context(), req.OrderID, req.CollectorPhone)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrPhoneMismatch):
			middleware.RespondWithError(w, http.StatusBadRequest, "phone number does not match order records")
		case errors.Is(err, service.ErrAlreadyDelivered):
			middleware.RespondWithError(w, http.StatusBadRequest, "order has already been delivered")
		default:
			h.logger.Error("Failed to confirm delivery", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to confirm delivery")
		}
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "delivery confirmed", order)
}
