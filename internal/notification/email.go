package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"cloudimart/internal/config"
	"cloudimart/internal/domain"

	"go.uber.org/zap"
)

type emailSender struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

func newEmailSender(cfg config.SMTPConfig, logger *zap.Logger) *emailSender {
	return &emailSender{cfg: cfg, logger: logger}
}

func (e *emailSender) sendOrderPlaced(ctx context.Context, order *domain.Order, user *domain.User) bool {
	subject := fmt.Sprintf("CloudiMart - Order Confirmation #%s", order.OrderID)

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\r\n\r\n", customerName(user))
	fmt.Fprintf(&body, "Thank you for your order %s.\r\n\r\n", order.OrderID)
	writeItems(&body, order.Items)
	fmt.Fprintf(&body, "\r\nTotal: MWK %s\r\n", order.TotalAmount.StringFixed(2))
	fmt.Fprintf(&body, "Delivery address: %s (%s)\r\n", order.DeliveryAddress, order.DeliveryLocation)
	fmt.Fprintf(&body, "Phone: %s\r\n\r\n", order.Phone)
	body.WriteString("We'll let you know as soon as your order is on its way.\r\n")

	return e.send(order, user, subject, body.String())
}

func (e *emailSender) sendDelivered(ctx context.Context, order *domain.Order, user *domain.User) bool {
	subject := fmt.Sprintf("CloudiMart - Order Delivered #%s", order.OrderID)

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\r\n\r\n", customerName(user))
	fmt.Fprintf(&body, "Your order %s has been delivered.\r\n\r\n", order.OrderID)
	writeItems(&body, order.Items)
	fmt.Fprintf(&body, "\r\nTotal: MWK %s\r\n\r\n", order.TotalAmount.StringFixed(2))
	body.WriteString("Thank you for shopping with CloudiMart.\r\n")

	return e.send(order, user, subject, body.String())
}

func customerName(user *domain.User) string {
	if user.FullName != "" {
		return user.FullName
	}
	return user.Email
}

func writeItems(body *strings.Builder, items []*domain.OrderItem) {
	for _, item := range items {
		name := item.ProductID.String()
		if item.Product != nil {
			name = item.Product.Name
		}
		fmt.Fprintf(body, "  %d x %s @ MWK %s\r\n", item.Quantity, name, item.Price.StringFixed(2))
	}
}

func (e *emailSender) send(order *domain.Order, user *domain.User, subject, body string) bool {
	if e.cfg.Host == "" {
		e.logger.Warn("Email channel disabled, missing SMTP host",
			zap.String("order_id", order.OrderID))
		return false
	}

	msg := strings.Builder{}
	fmt.Fprintf(&msg, "From: CloudiMart <%s>\r\n", e.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", user.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	addr := e.cfg.Host + ":" + e.cfg.Port
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, e.cfg.From, []string{user.Email}, []byte(msg.String())); err != nil {
		e.logger.Error("Email delivery failed",
			zap.String("order_id", order.OrderID),
			zap.String("to", user.Email),
			zap.Error(err),
		)
		return false
	}

	e.logger.Info("Email sent",
		zap.String("order_id", order.OrderID),
		zap.String("to", user.Email),
	)
	return true
}
