package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	orderIDPrefix    = "CLM"
	orderIDCharset   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderIDSuffixLen = 4

	// orderIDMaxAttempts caps collision retries so a degenerate random
	// source cannot spin forever.
	orderIDMaxAttempts = 10
)

var ErrOrderIDExhausted = errors.New("could not generate a unique order ID")

// formatOrderID builds an external order identifier of the form
// CLM-YYYYMMDD-XXXX where XXXX is drawn from rnd over the uppercase
// alphanumeric charset.
func formatOrderID(now time.Time, rnd io.Reader) (string, error) {
	buf := make([]byte, orderIDSuffixLen)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderIDCharset[int(b)%len(orderIDCharset)]
	}
	return fmt.Sprintf("%s-%s-%s", orderIDPrefix, now.Format("20060102"), buf), nil
}

// generateOrderID produces an order identifier that no existing order
// uses, retrying on collision up to orderIDMaxAttempts times.
func (s *orderService) generateOrderID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < orderIDMaxAttempts; attempt++ {
		orderID, err := formatOrderID(time.Now(), s.rand)
		if err != nil {
			return "", err
		}

		exists, err := s.orderRepo.OrderIDExists(ctx, orderID)
		if err != nil {
			return "", err
		}
		if !exists {
			return orderID, nil
		}
	}
	return "", ErrOrderIDExhausted
}
