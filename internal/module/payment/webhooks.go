package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/starspay/server/internal/module/payment/telegram"
	"github.com/starspay/server/internal/module/tenant"
)

// webhookUpdateTypes limits what the provider delivers to exactly what the
// router handles.
var webhookUpdateTypes = []string{"message", "callback_query", "pre_checkout_query"}

// WebhookManager registers the per-tenant webhook URLs with the provider.
type WebhookManager struct {
	tenants *tenant.Registry
	bots    telegram.Factory
	baseURL string
	logger  *zap.Logger
}

// NewWebhookManager creates a webhook manager. baseURL is the public origin
// the provider can reach, without a trailing slash.
func NewWebhookManager(tenants *tenant.Registry, bots telegram.Factory, baseURL string, logger *zap.Logger) *WebhookManager {
	return &WebhookManager{
		tenants: tenants,
		bots:    bots,
		baseURL: baseURL,
		logger:  logger,
	}
}

// SetupResult summarizes a webhook registration pass.
type SetupResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SetupAll points every active tenant's webhook at this service and verifies
// the registration took. Failures on one tenant do not stop the others.
func (m *WebhookManager) SetupAll(ctx context.Context) (*SetupResult, error) {
	if m.baseURL == "" {
		return nil, fmt.Errorf("webhook base url is not configured")
	}

	active, err := m.tenants.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}

	result := &SetupResult{Total: len(active)}
	for _, t := range active {
		url := fmt.Sprintf("%s/stars/%d", m.baseURL, t.ID)
		if err := m.setupOne(t, url); err != nil {
			result.Failed++
			m.logger.Error("webhook setup failed",
				zap.Int64("tenant_id", t.ID),
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		result.Succeeded++
		m.logger.Info("webhook registered",
			zap.Int64("tenant_id", t.ID),
			zap.String("url", url),
		)
	}
	return result, nil
}

func (m *WebhookManager) setupOne(t *tenant.BotToken, url string) error {
	client, err := m.bots.ClientFor(t.Token)
	if err != nil {
		return err
	}
	// Drop any stale registration before pointing the webhook here.
	if err := client.DeleteWebhook(); err != nil {
		m.logger.Debug("stale webhook delete failed", zap.Int64("tenant_id", t.ID), zap.Error(err))
	}
	if err := client.SetWebhook(url, webhookUpdateTypes); err != nil {
		return err
	}
	registered, err := client.WebhookURL()
	if err != nil {
		return fmt.Errorf("verify webhook: %w", err)
	}
	if registered != url {
		return fmt.Errorf("webhook verification mismatch: provider has %q", registered)
	}
	return nil
}

// CleanupAll removes the webhooks of every active tenant. Used when taking the
// service out of rotation.
func (m *WebhookManager) CleanupAll(ctx context.Context) error {
	active, err := m.tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active tenants: %w", err)
	}
	for _, t := range active {
		client, err := m.bots.ClientFor(t.Token)
		if err != nil {
			m.logger.Warn("skipping webhook cleanup for tenant",
				zap.Int64("tenant_id", t.ID),
				zap.Error(err),
			)
			continue
		}
		if err := client.DeleteWebhook(); err != nil {
			m.logger.Warn("webhook cleanup failed",
				zap.Int64("tenant_id", t.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}
