// Package notification delivers best-effort SMS and email notifications.
// Dispatch never fails the operation that triggered it: every error is
// logged and reported only as a per-channel boolean.
package notification

import (
	"context"

	"cloudimart/internal/config"
	"cloudimart/internal/domain"

	"go.uber.org/zap"
)

// Result reports per-channel delivery outcomes
type Result struct {
	SMS   bool `json:"sms"`
	Email bool `json:"email"`
}

// Dispatcher sends order lifecycle notifications. Implementations must
// never propagate transport errors to the caller.
type Dispatcher interface {
	SendOrderNotifications(ctx context.Context, order *domain.Order, user *domain.User) Result
	SendDeliveryConfirmation(ctx context.Context, order *domain.Order, user *domain.User) Result
}

// Service sends SMS through the Vonage REST API and email through SMTP
type Service struct {
	sms    *smsSender
	email  *emailSender
	logger *zap.Logger
}

// New creates a notification Service from configuration. Channels with
// missing credentials are disabled and report failure without attempting
// delivery.
func New(smsCfg config.SMSConfig, smtpCfg config.SMTPConfig, logger *zap.Logger) *Service {
	return &Service{
		sms:    newSMSSender(smsCfg, logger),
		email:  newEmailSender(smtpCfg, logger),
		logger: logger,
	}
}

// SendOrderNotifications notifies the customer that their order was placed
func (s *Service) SendOrderNotifications(ctx context.Context, order *domain.Order, user *domain.User) Result {
	result := Result{
		SMS:   s.sms.sendOrderPlaced(ctx, order),
		Email: s.email.sendOrderPlaced(ctx, order, user),
	}

	s.logger.Info("Order notifications dispatched",
		zap.String("order_id", order.OrderID),
		zap.Bool("sms_sent", result.SMS),
		zap.Bool("email_sent", result.Email),
	)

	return result
}

// SendDeliveryConfirmation notifies the customer that their order arrived
func (s *Service) SendDeliveryConfirmation(ctx context.Context, order *domain.Order, user *domain.User) Result {
	result := Result{
		SMS:   s.sms.sendDelivered(ctx, order),
		Email: s.email.sendDelivered(ctx, order, user),
	}

	s.logger.Info("Delivery confirmation notifications dispatched",
		zap.String("order_id", order.OrderID),
		zap.Bool("sms_sent", result.SMS),
		zap.Bool("email_sent", result.Email),
	)

	return result
}
