package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloudimart/internal/config"
	"cloudimart/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+265991234567", "+265991234567"},
		{"265991234567", "+265991234567"},
		{"0991234567", "+265991234567"},
		{"0881234567", "0881234567"}, // not an 09 number, passed through
		{"+447700900000", "+447700900000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), "NormalizePhone(%q)", tt.in)
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		OrderID:         "CLM-20260831-A3B9",
		Phone:           "0991234567",
		TotalAmount:     decimal.NewFromInt(6000),
		DeliveryAddress: "Room 12, Hostel B",
	}
}

func TestSMSSenderSuccess(t *testing.T) {
	var gotTo string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		gotTo = r.PostFormValue("to")
		w.Write([]byte(`{"messages":[{"status":"0"}]}`))
	}))
	defer server.Close()

	sender := newSMSSender(config.SMSConfig{APIKey: "key", APISecret: "secret", From: "CloudiMart"}, zap.NewNop())
	sender.endpoint = server.URL

	ok := sender.sendOrderPlaced(context.Background(), testOrder())
	assert.True(t, ok)
	assert.Equal(t, "+265991234567", gotTo, "phone must be normalised before sending")
}

func TestSMSSenderRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[{"status":"4","error-text":"Bad Credentials"}]}`))
	}))
	defer server.Close()

	sender := newSMSSender(config.SMSConfig{APIKey: "key", APISecret: "secret"}, zap.NewNop())
	sender.endpoint = server.URL

	assert.False(t, sender.sendDelivered(context.Background(), testOrder()))
}

func TestSMSSenderDisabledWithoutCredentials(t *testing.T) {
	sender := newSMSSender(config.SMSConfig{}, zap.NewNop())
	assert.False(t, sender.sendOrderPlaced(context.Background(), testOrder()))
}

func TestEmailSenderDisabledWithoutHost(t *testing.T) {
	sender := newEmailSender(config.SMTPConfig{}, zap.NewNop())
	user := &domain.User{Email: "student@example.com", FullName: "Chimwemwe Banda"}
	assert.False(t, sender.sendOrderPlaced(context.Background(), testOrder(), user))
}

func TestDispatchNeverPanicsOnFailure(t *testing.T) {
	// Both channels unconfigured: dispatch must degrade to a false/false
	// result rather than failing.
	svc := New(config.SMSConfig{}, config.SMTPConfig{}, zap.NewNop())
	user := &domain.User{Email: "student@example.com"}

	result := svc.SendOrderNotifications(context.Background(), testOrder(), user)
	assert.False(t, result.SMS)
	assert.False(t, result.Email)

	result = svc.SendDeliveryConfirmation(context.Background(), testOrder(), user)
	assert.False(t, result.SMS)
	assert.False(t, result.Email)
}
