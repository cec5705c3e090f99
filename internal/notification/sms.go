package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloudimart/internal/config"
	"cloudimart/internal/domain"

	"go.uber.org/zap"
)

const vonageSMSEndpoint = "https://rest.nexmo.com/sms/json"

type smsSender struct {
	cfg      config.SMSConfig
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

func newSMSSender(cfg config.SMSConfig, logger *zap.Logger) *smsSender {
	return &smsSender{
		cfg:      cfg,
		endpoint: vonageSMSEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

func (s *smsSender) sendOrderPlaced(ctx context.Context, order *domain.Order) bool {
	text := fmt.Sprintf(
		"CloudiMart: Your order %s has been placed successfully! Total: MWK %s. We'll deliver to %s.",
		order.OrderID, order.TotalAmount.StringFixed(2), order.DeliveryAddress,
	)
	return s.send(ctx, order, text)
}

func (s *smsSender) sendDelivered(ctx context.Context, order *domain.Order) bool {
	text := fmt.Sprintf(
		"CloudiMart: Your order %s has been successfully delivered! Thank you for shopping with us.",
		order.OrderID,
	)
	return s.send(ctx, order, text)
}

// vonageResponse is the subset of the Vonage SMS API response we inspect
type vonageResponse struct {
	Messages []struct {
		Status    string `json:"status"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

func (s *smsSender) send(ctx context.Context, order *domain.Order, text string) bool {
	if s.cfg.APIKey == "" || s.cfg.APISecret == "" {
		s.logger.Warn("SMS channel disabled, missing API credentials",
			zap.String("order_id", order.OrderID))
		return false
	}

	form := url.Values{}
	form.Set("api_key", s.cfg.APIKey)
	form.Set("api_secret", s.cfg.APISecret)
	form.Set("from", s.cfg.From)
	form.Set("to", NormalizePhone(order.Phone))
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Error("Failed to build SMS request",
			zap.String("order_id", order.OrderID), zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("SMS request failed",
			zap.String("order_id", order.OrderID), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	var body vonageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		s.logger.Error("Failed to decode SMS response",
			zap.String("order_id", order.OrderID), zap.Error(err))
		return false
	}

	if len(body.Messages) == 0 || body.Messages[0].Status != "0" {
		status, errText := "", ""
		if len(body.Messages) > 0 {
			status = body.Messages[0].Status
			errText = body.Messages[0].ErrorText
		}
		s.logger.Error("SMS delivery rejected",
			zap.String("order_id", order.OrderID),
			zap.String("status", status),
			zap.String("error_text", errText),
		)
		return false
	}

	s.logger.Info("SMS sent", zap.String("order_id", order.OrderID))
	return true
}
