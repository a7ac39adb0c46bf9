// Package notify pushes payment-completion notifications to the main
// application. The main app is a separate failure domain; notification
// failures never affect the payment outcome.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// PaymentNotification is the payload sent to the main application.
type PaymentNotification struct {
	PaymentID         int64  `json:"payment_id"`
	ExternalPaymentID string `json:"external_payment_id"`
	UserID            int64  `json:"user_id"`
	Amount            int64  `json:"amount"`
	Provider          string `json:"provider"`
	TenantID          *int64 `json:"tenant_id,omitempty"`
}

// Notifier delivers completion notifications.
type Notifier interface {
	PaymentCompleted(ctx context.Context, n PaymentNotification) error
}

// HTTPNotifier posts notifications to the main application, guarded by a
// circuit breaker so a down main app does not tie up webhook handlers.
type HTTPNotifier struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger
}

// NewHTTPNotifier creates a notifier posting to url.
func NewHTTPNotifier(url string, timeout time.Duration, logger *zap.Logger) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "main-app-notify",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &HTTPNotifier{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:  logger,
	}
}

// PaymentCompleted posts the notification. Non-2xx responses count as failures.
func (n *HTTPNotifier) PaymentCompleted(ctx context.Context, notification PaymentNotification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = n.breaker.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("main app returned status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("notify main app: %w", err)
	}

	n.logger.Debug("main app notified",
		zap.Int64("payment_id", notification.PaymentID),
		zap.Int64("user_id", notification.UserID),
	)
	return nil
}

// Nop is a Notifier that does nothing, used when no main app URL is configured.
type Nop struct{}

// PaymentCompleted implements Notifier.
func (Nop) PaymentCompleted(context.Context, PaymentNotification) error { return nil }
