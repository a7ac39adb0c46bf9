package payment

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/starspay/server/internal/module/payment/telegram"
	"github.com/starspay/server/internal/module/tenant"
	"github.com/starspay/server/internal/shared/metrics"
)

// Update kinds as counted by the routing metrics.
const (
	kindPreCheckout = "pre_checkout"
	kindCompletion  = "completion"
	kindCallback    = "callback"
	kindMessage     = "message"
	kindOther       = "other"
)

// preCheckoutDeadline bounds the pre-checkout handling; the provider abandons
// the charge if no answer arrives within its ten second window.
const preCheckoutDeadline = 8 * time.Second

// invoiceMessageTTL is how long the invoice message stays in chat before the
// router deletes it.
const invoiceMessageTTL = 60 * time.Second

// Router dispatches inbound webhook updates for a tenant. It resolves the
// tenant credential, classifies the update and delegates to the payment
// service. It never propagates an error that should be retried by the
// provider; the transport layer acks every update.
type Router struct {
	service *Service
	tenants *tenant.Registry
	bots    telegram.Factory
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRouter creates a new update router.
func NewRouter(
	service *Service,
	tenants *tenant.Registry,
	bots telegram.Factory,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Router {
	return &Router{
		service: service,
		tenants: tenants,
		bots:    bots,
		metrics: m,
		logger:  logger,
	}
}

// Route handles one webhook update addressed to the given tenant id. The
// returned error is informational; callers ack the update regardless, since
// redelivery of an unprocessable update can never succeed.
func (r *Router) Route(ctx context.Context, tenantID int64, update *tgbotapi.Update) error {
	t, err := r.tenants.Resolve(ctx, tenantID)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrTenantNotFound):
			r.metrics.UnknownTenantsTotal.Inc()
			r.logger.Warn("update for unknown tenant, dropping",
				zap.Int64("tenant_id", tenantID),
			)
			return nil
		case errors.Is(err, tenant.ErrTenantInactive):
			r.logger.Info("update for inactive tenant, dropping",
				zap.Int64("tenant_id", tenantID),
			)
			return nil
		default:
			return err
		}
	}

	client, err := r.bots.ClientFor(t.Token)
	if err != nil {
		return err
	}

	switch {
	case update.PreCheckoutQuery != nil:
		r.metrics.UpdatesRoutedTotal.WithLabelValues(kindPreCheckout).Inc()
		return r.handlePreCheckout(ctx, client, update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		r.metrics.UpdatesRoutedTotal.WithLabelValues(kindCompletion).Inc()
		return r.handleCompletion(ctx, update.Message)
	case update.CallbackQuery != nil:
		r.metrics.UpdatesRoutedTotal.WithLabelValues(kindCallback).Inc()
		return r.handleCallback(ctx, tenantID, client, update.CallbackQuery)
	case update.Message != nil:
		r.metrics.UpdatesRoutedTotal.WithLabelValues(kindMessage).Inc()
		return r.handleMessage(ctx, client, update.Message)
	default:
		r.metrics.UpdatesRoutedTotal.WithLabelValues(kindOther).Inc()
		return nil
	}
}

// handlePreCheckout answers the provider's charge approval request. An answer
// must go out even when validation errors internally, otherwise the user's
// payment dialog hangs until the provider gives up.
func (r *Router) handlePreCheckout(ctx context.Context, client telegram.Client, q *tgbotapi.PreCheckoutQuery) error {
	ctx, cancel := context.WithTimeout(ctx, preCheckoutDeadline)
	defer cancel()

	verdict := r.service.ValidatePreCheckout(ctx, q.InvoicePayload, int64(q.TotalAmount))

	var message string
	answer := "ok"
	if !verdict.OK {
		answer = "rejected"
		lang := r.service.UserLang(ctx, q.From.ID)
		message = Tr(lang, verdict.MessageKey)
	}
	r.metrics.PreCheckoutAnswersTotal.WithLabelValues(answer).Inc()

	if err := client.AnswerPreCheckout(q.ID, verdict.OK, message); err != nil {
		r.logger.Error("failed to answer pre-checkout query",
			zap.String("query_id", q.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// handleCompletion applies a successful-payment event. The external id is
// derived from the invoice payload minted at open time.
func (r *Router) handleCompletion(ctx context.Context, msg *tgbotapi.Message) error {
	sp := msg.SuccessfulPayment
	paymentID, err := PaymentIDFromPayload(sp.InvoicePayload)
	if err != nil {
		r.logger.Warn("completion with unparseable payload",
			zap.String("payload", sp.InvoicePayload),
		)
		return nil
	}

	ev := CompletionEvent{
		UserID:      msg.From.ID,
		Provider:    ProviderStars,
		StarsAmount: int64(sp.TotalAmount),
	}
	result, err := r.service.Complete(ctx, ExternalID(paymentID), ev)
	if err != nil {
		// The outcome still stands when the credit failed post-flip; the
		// error is already logged at alert level by the service.
		if result == nil || result.Outcome != OutcomeCompleted {
			return err
		}
	}

	if result.Credited {
		if err := r.service.SendSuccessMessage(ctx, result.Payment); err != nil {
			r.logger.Warn("failed to send success message",
				zap.Int64("payment_id", result.Payment.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// handleCallback processes top-up button presses: it opens a payment and
// replies with the invoice link. The reply self-destructs after a minute so
// stale pay buttons do not accumulate in chat.
func (r *Router) handleCallback(ctx context.Context, tenantID int64, client telegram.Client, q *tgbotapi.CallbackQuery) error {
	if err := client.AnswerCallback(q.ID); err != nil {
		r.logger.Warn("failed to answer callback query", zap.Error(err))
	}

	if q.Message == nil || !strings.HasPrefix(q.Data, topupCallbackPrefix) {
		return nil
	}
	credits, err := strconv.ParseInt(strings.TrimPrefix(q.Data, topupCallbackPrefix), 10, 64)
	if err != nil || credits <= 0 {
		r.logger.Warn("callback with unparseable top-up amount", zap.String("data", q.Data))
		return nil
	}

	userID := q.From.ID
	chatID := q.Message.Chat.ID
	lang := r.service.UserLang(ctx, userID)

	p, link, err := r.service.OpenPayment(ctx, userID, credits, &tenantID)
	if err != nil {
		r.logger.Error("failed to open payment from chat",
			zap.Int64("user_id", userID),
			zap.Int64("credits", credits),
			zap.Error(err),
		)
		text := Tr(lang, "stars_bot_payment_error", "payment_id", "?")
		if _, sendErr := client.SendMessage(chatID, text, nil); sendErr != nil {
			r.logger.Warn("failed to send payment error message", zap.Error(sendErr))
		}
		return err
	}

	text := Tr(lang, "stars_bot_payment_created",
		"amount", p.Amount,
		"stars_amount", p.StarsAmount,
	)
	msgID, err := client.SendMessage(chatID, text, PayKeyboard(link, lang))
	if err != nil {
		r.logger.Error("failed to send invoice message",
			zap.Int64("payment_id", p.ID),
			zap.Error(err),
		)
		return err
	}

	time.AfterFunc(invoiceMessageTTL, func() {
		if err := client.DeleteMessage(chatID, msgID); err != nil {
			r.logger.Debug("failed to delete invoice message",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", msgID),
				zap.Error(err),
			)
		}
	})
	return nil
}

// handleMessage serves the chat entry points: /start and the payment menu
// button. Anything else is ignored.
func (r *Router) handleMessage(ctx context.Context, client telegram.Client, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}
	lang := r.service.UserLang(ctx, msg.From.ID)

	switch {
	case msg.IsCommand() && msg.Command() == "start":
		if _, err := client.SendMessage(msg.Chat.ID, Tr(lang, "stars_bot_welcome"), PaymentMenuKeyboard(lang)); err != nil {
			return err
		}
		_, err := client.SendMessage(msg.Chat.ID, Tr(lang, "stars_bot_welcome_inline"), TopupKeyboard(lang))
		return err
	case isPaymentMenuText(msg.Text):
		_, err := client.SendMessage(msg.Chat.ID, Tr(lang, "stars_bot_welcome_inline"), TopupKeyboard(lang))
		return err
	default:
		return nil
	}
}

// isPaymentMenuText reports whether the text is the payment menu button label
// in any supported language.
func isPaymentMenuText(text string) bool {
	for lang := range translations {
		if text == Tr(lang, "btn_payment_menu") {
			return true
		}
	}
	return false
}
