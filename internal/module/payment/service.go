package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/starspay/server/internal/module/credit"
	"github.com/starspay/server/internal/module/notify"
	"github.com/starspay/server/internal/module/payment/telegram"
	"github.com/starspay/server/internal/module/tenant"
	"github.com/starspay/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// Service implements the payment lifecycle: opening pending records with an
// invoice link, and completing them exactly once per external payment id.
type Service struct {
	repo     Repository
	tenants  *tenant.Registry
	credits  credit.Ledger
	bots     telegram.Factory
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	maxCredits int64
}

// NewService creates a new payment service.
func NewService(
	repo Repository,
	tenants *tenant.Registry,
	credits credit.Ledger,
	bots telegram.Factory,
	notifier notify.Notifier,
	m *metrics.Metrics,
	maxCredits int64,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		tenants:    tenants,
		credits:    credits,
		bots:       bots,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
		maxCredits: maxCredits,
	}
}

// OpenPayment creates a pending payment for the user and returns the invoice
// link to present. The record is pinned to the tenant whose credential issued
// the invoice. If the provider call fails the pending record is left orphaned;
// it can never produce a credit without a completion.
func (s *Service) OpenPayment(ctx context.Context, userID, creditsAmount int64, tenantID *int64) (*Payment, string, error) {
	if creditsAmount <= 0 || (s.maxCredits > 0 && creditsAmount > s.maxCredits) {
		return nil, "", fmt.Errorf("%w: %d credits", ErrAmountOutOfRange, creditsAmount)
	}

	t, err := s.resolveIssuingTenant(ctx, tenantID)
	if err != nil {
		return nil, "", err
	}

	p := &Payment{
		UserID:      userID,
		Amount:      creditsAmount,
		StarsAmount: StarsForCredits(creditsAmount),
		Provider:    ProviderStars,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, "", err
	}
	if err := s.repo.SetTenant(ctx, p.ID, t.ID); err != nil {
		s.logger.Error("failed to pin tenant on payment",
			zap.Int64("payment_id", p.ID),
			zap.Error(err),
		)
	} else {
		p.TenantID = &t.ID
	}

	client, err := s.bots.ClientFor(t.Token)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvoiceCreation, err)
	}

	lang := s.credits.UserLang(ctx, userID)
	link, err := client.CreateInvoiceLink(telegram.InvoiceRequest{
		Title:       Tr(lang, "payment_invoice_title", "amount", p.Amount),
		Description: Tr(lang, "payment_invoice_description", "amount", p.Amount),
		Payload:     InvoicePayload(p.ID),
		Label:       Tr(lang, "payment_invoice_label", "amount", p.Amount),
		StarsAmount: p.StarsAmount,
	})
	if err != nil {
		s.logger.Error("invoice link creation failed",
			zap.Int64("payment_id", p.ID),
			zap.Int64("tenant_id", t.ID),
			zap.Error(err),
		)
		return nil, "", fmt.Errorf("%w: %v", ErrInvoiceCreation, err)
	}

	s.metrics.PaymentsOpenedTotal.Inc()
	s.logger.Info("payment opened",
		zap.Int64("payment_id", p.ID),
		zap.String("external_payment_id", p.ExternalPaymentID),
		zap.Int64("user_id", userID),
		zap.Int64("amount", creditsAmount),
		zap.Int64("stars", p.StarsAmount),
		zap.Int64("tenant_id", t.ID),
	)
	return p, link, nil
}

// resolveIssuingTenant picks the tenant credential to issue an invoice under:
// the requested one when it is still active, otherwise a random active one.
func (s *Service) resolveIssuingTenant(ctx context.Context, tenantID *int64) (*tenant.BotToken, error) {
	if tenantID != nil {
		t, err := s.tenants.Resolve(ctx, *tenantID)
		if err == nil {
			return t, nil
		}
		if errors.Is(err, tenant.ErrTenantNotFound) || errors.Is(err, tenant.ErrTenantInactive) {
			s.logger.Warn("requested tenant unusable for invoice, picking random",
				zap.Int64("tenant_id", *tenantID),
				zap.Error(err),
			)
		} else {
			return nil, err
		}
	}
	return s.tenants.PickRandomActive(ctx)
}

// PreCheckoutVerdict is the synchronous answer to a provider pre-checkout
// query.
type PreCheckoutVerdict struct {
	OK bool
	// MessageKey is the translation key of the rejection text; empty on OK.
	MessageKey string
}

// ValidatePreCheckout answers whether a proposed charge may proceed. The
// provider will not charge the user when this rejects.
func (s *Service) ValidatePreCheckout(ctx context.Context, payload string, starsAmount int64) PreCheckoutVerdict {
	paymentID, err := PaymentIDFromPayload(payload)
	if err != nil {
		s.logger.Warn("pre-checkout with invalid payload", zap.String("payload", payload))
		return PreCheckoutVerdict{MessageKey: "stars_bot_invalid_payload"}
	}

	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			s.logger.Warn("pre-checkout for unknown payment", zap.Int64("payment_id", paymentID))
			return PreCheckoutVerdict{MessageKey: "stars_bot_payment_not_found"}
		}
		s.logger.Error("pre-checkout lookup failed", zap.Int64("payment_id", paymentID), zap.Error(err))
		return PreCheckoutVerdict{MessageKey: "stars_bot_payment_error_generic"}
	}

	if p.IsCompleted() {
		s.logger.Warn("pre-checkout for completed payment", zap.Int64("payment_id", paymentID))
		return PreCheckoutVerdict{MessageKey: "stars_bot_payment_already_processed"}
	}
	if starsAmount != p.StarsAmount {
		s.logger.Warn("pre-checkout amount mismatch",
			zap.Int64("payment_id", paymentID),
			zap.Int64("event_stars", starsAmount),
			zap.Int64("invoiced_stars", p.StarsAmount),
		)
		return PreCheckoutVerdict{MessageKey: "stars_bot_payment_error_generic"}
	}

	return PreCheckoutVerdict{OK: true}
}

// Complete applies a completion event to the payment identified by its
// external id. Each gate is checked in order; the conditional status
// transition is the only synchronization point, so concurrent duplicates
// resolve to exactly one credit. A non-nil error alongside a Completed
// outcome means the credit failed after the flip and needs reconciliation.
func (s *Service) Complete(ctx context.Context, externalID string, ev CompletionEvent) (*CompletionResult, error) {
	p, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			s.reject(externalID, ReasonNotFound, "completion for unknown payment")
			return &CompletionResult{Outcome: OutcomeRejected, Reason: ReasonNotFound}, nil
		}
		return nil, err
	}

	if p.IsCompleted() {
		s.metrics.CompletionsTotal.WithLabelValues(string(OutcomeAlreadyCompleted)).Inc()
		s.logger.Info("payment already completed, skipping",
			zap.String("external_payment_id", externalID),
		)
		return &CompletionResult{Outcome: OutcomeAlreadyCompleted, Payment: p}, nil
	}

	if ev.Provider != p.Provider {
		s.reject(externalID, ReasonProviderMismatch, "completion provider mismatch",
			zap.String("event_provider", ev.Provider),
			zap.String("record_provider", p.Provider),
		)
		return &CompletionResult{Outcome: OutcomeRejected, Reason: ReasonProviderMismatch, Payment: p}, nil
	}
	if ev.UserID != p.UserID {
		s.reject(externalID, ReasonUserMismatch, "completion user mismatch",
			zap.Int64("event_user_id", ev.UserID),
			zap.Int64("record_user_id", p.UserID),
		)
		return &CompletionResult{Outcome: OutcomeRejected, Reason: ReasonUserMismatch, Payment: p}, nil
	}
	if ev.StarsAmount != p.StarsAmount {
		s.reject(externalID, ReasonAmountMismatch, "completion amount mismatch",
			zap.Int64("event_stars", ev.StarsAmount),
			zap.Int64("invoiced_stars", p.StarsAmount),
		)
		return &CompletionResult{Outcome: OutcomeRejected, Reason: ReasonAmountMismatch, Payment: p}, nil
	}

	// The conditional update closes the race between the status read above and
	// this write; losing it is the same as finding the record completed.
	won, err := s.repo.CompleteIfPending(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		s.metrics.CompletionsTotal.WithLabelValues(string(OutcomeAlreadyCompleted)).Inc()
		s.logger.Info("lost completion race, payment already completed",
			zap.String("external_payment_id", externalID),
		)
		return &CompletionResult{Outcome: OutcomeAlreadyCompleted, Payment: p}, nil
	}
	p.Status = StatusCompleted

	if err := s.credits.AddCredits(ctx, p.UserID, p.Amount); err != nil {
		// The status is already flipped and cannot be rolled back safely: a
		// duplicate delivery may have observed it. Manual reconciliation is
		// required.
		s.metrics.CreditFailuresTotal.Inc()
		s.logger.Error("payment completed but credit failed, manual reconciliation required",
			zap.String("external_payment_id", externalID),
			zap.Int64("payment_id", p.ID),
			zap.Int64("user_id", p.UserID),
			zap.Int64("amount", p.Amount),
			zap.Error(err),
		)
		return &CompletionResult{Outcome: OutcomeCompleted, Payment: p},
			fmt.Errorf("%w: payment %d: %v", ErrCreditApplication, p.ID, err)
	}

	s.metrics.CompletionsTotal.WithLabelValues(string(OutcomeCompleted)).Inc()
	s.logger.Info("payment completed",
		zap.String("external_payment_id", externalID),
		zap.Int64("payment_id", p.ID),
		zap.Int64("user_id", p.UserID),
		zap.Int64("amount", p.Amount),
	)

	s.afterCompletion(ctx, p)
	return &CompletionResult{Outcome: OutcomeCompleted, Payment: p, Credited: true}, nil
}

// afterCompletion runs the best-effort side effects of a won completion:
// statistics, referral accounting and the main-app notification. None of them
// affect the payment outcome.
func (s *Service) afterCompletion(ctx context.Context, p *Payment) {
	net, gross, fee := USDBreakdown(p.StarsAmount)
	if err := s.repo.SetUSDBreakdown(ctx, p.ID, net, gross, fee); err != nil {
		s.logger.Warn("failed to record usd breakdown", zap.Int64("payment_id", p.ID), zap.Error(err))
	}

	if p.BotOwnerID != nil {
		if err := s.credits.AddReferralBonus(ctx, *p.BotOwnerID, p.Amount); err != nil {
			s.logger.Warn("failed to apply referral bonus",
				zap.Int64("payment_id", p.ID),
				zap.Int64("owner_id", *p.BotOwnerID),
				zap.Error(err),
			)
		}
	}
	if err := s.credits.MarkReferralCompleted(ctx, p.UserID); err != nil {
		s.logger.Warn("failed to update referral status", zap.Int64("user_id", p.UserID), zap.Error(err))
	}

	if err := s.notifier.PaymentCompleted(ctx, notify.PaymentNotification{
		PaymentID:         p.ID,
		ExternalPaymentID: p.ExternalPaymentID,
		UserID:            p.UserID,
		Amount:            p.Amount,
		Provider:          p.Provider,
		TenantID:          p.TenantID,
	}); err != nil {
		s.logger.Warn("main app notification failed", zap.Int64("payment_id", p.ID), zap.Error(err))
	}
}

// ForceComplete replays the completion path for a payment whose provider event
// never arrived. The event fields are fed back from the stored record itself,
// so every validation and idempotency gate still applies; an already-completed
// record is a no-op.
func (s *Service) ForceComplete(ctx context.Context, externalID string) (*CompletionResult, error) {
	p, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			s.reject(externalID, ReasonNotFound, "manual completion for unknown payment")
			return &CompletionResult{Outcome: OutcomeRejected, Reason: ReasonNotFound}, nil
		}
		return nil, err
	}

	return s.Complete(ctx, externalID, CompletionEvent{
		UserID:      p.UserID,
		Provider:    p.Provider,
		StarsAmount: p.StarsAmount,
	})
}

// SendSuccessMessage notifies the payer in chat, preferring the tenant the
// payment was opened under and falling back to any active one.
func (s *Service) SendSuccessMessage(ctx context.Context, p *Payment) error {
	t, err := s.resolveIssuingTenant(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("resolve tenant for success message: %w", err)
	}
	client, err := s.bots.ClientFor(t.Token)
	if err != nil {
		return fmt.Errorf("bot client for success message: %w", err)
	}

	lang := s.credits.UserLang(ctx, p.UserID)
	text := Tr(lang, "stars_bot_payment_success",
		"amount", p.Amount,
		"stars_amount", p.StarsAmount,
	)
	if _, err := client.SendMessage(p.UserID, text, PaymentMenuKeyboard(lang)); err != nil {
		return fmt.Errorf("send success message: %w", err)
	}
	return nil
}

// UserLang exposes the payer's UI language for handlers building chat replies.
func (s *Service) UserLang(ctx context.Context, userID int64) string {
	return s.credits.UserLang(ctx, userID)
}

func (s *Service) reject(externalID string, reason RejectReason, msg string, fields ...zap.Field) {
	s.metrics.CompletionsTotal.WithLabelValues(string(OutcomeRejected)).Inc()
	s.metrics.CompletionRejections.WithLabelValues(string(reason)).Inc()
	fields = append(fields, zap.String("external_payment_id", externalID))
	s.logger.Warn(msg, fields...)
}

// PaymentIDFromPayload extracts the internal payment id from an invoice
// payload of the form "payment_<id>".
func PaymentIDFromPayload(payload string) (int64, error) {
	const prefix = "payment_"
	if !strings.HasPrefix(payload, prefix) {
		return 0, ErrInvalidPayload
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(payload, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidPayload
	}
	return id, nil
}
