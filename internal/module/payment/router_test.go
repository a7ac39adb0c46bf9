package payment

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starspay/server/internal/module/tenant"
)

func completionUpdate(userID int64, payload string, stars int) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: userID},
			SuccessfulPayment: &tgbotapi.SuccessfulPayment{
				Currency:                "XTR",
				TotalAmount:             stars,
				InvoicePayload:          payload,
				TelegramPaymentChargeID: "charge-1",
			},
		},
	}
}

func TestRouteUnknownTenantAcks(t *testing.T) {
	env := newTestEnv()

	update := completionUpdate(42, "payment_1", 180)
	err := env.router.Route(context.Background(), 99, update)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.UnknownTenantsTotal))
	assert.Zero(t, env.ledger.creditCalls)
}

func TestRouteInactiveTenantDrops(t *testing.T) {
	env := newTestEnv(&tenant.BotToken{ID: 1, Token: "t", IsActive: false})
	p := env.repo.seed(&Payment{UserID: 42, Amount: 100, StarsAmount: 180})

	err := env.router.Route(context.Background(), 1, completionUpdate(42, InvoicePayload(p.ID), 180))
	require.NoError(t, err)
	assert.Zero(t, env.ledger.creditCalls)
}

func TestRoutePreCheckoutApproves(t *testing.T) {
	env := newTestEnv()
	p := env.repo.seed(&Payment{UserID: 42, Amount: 100, StarsAmount: 180})

	update := &tgbotapi.Update{
		PreCheckoutQuery: &tgbotapi.PreCheckoutQuery{
			ID:             "pcq-1",
			From:           &tgbotapi.User{ID: 42},
			Currency:       "XTR",
			TotalAmount:    180,
			InvoicePayload: InvoicePayload(p.ID),
		},
	}
	err := env.router.Route(context.Background(), 1, update)
	require.NoError(t, err)

	answers := env.client.preCheckoutAnswers()
	require.Len(t, answers, 1)
	assert.Equal(t, "pcq-1", answers[0].queryID)
	assert.True(t, answers[0].ok)
	assert.Empty(t, answers[0].message)
}

func TestRoutePreCheckoutRejectsWithLocalizedMessage(t *testing.T) {
	env := newTestEnv()

	update := &tgbotapi.Update{
		PreCheckoutQuery: &tgbotapi.PreCheckoutQuery{
			ID:             "pcq-2",
			From:           &tgbotapi.User{ID: 42},
			Currency:       "XTR",
			TotalAmount:    180,
			InvoicePayload: InvoicePayload(999),
		},
	}
	err := env.router.Route(context.Background(), 1, update)
	require.NoError(t, err)

	answers := env.client.preCheckoutAnswers()
	require.Len(t, answers, 1)
	assert.False(t, answers[0].ok)
	assert.Equal(t, Tr("en", "stars_bot_payment_not_found"), answers[0].message)
}

func TestRouteCompletionCreditsAndNotifies(t *testing.T) {
	env := newTestEnv()
	p := env.repo.seed(&Payment{UserID: 42, Amount: 100, StarsAmount: 180})

	err := env.router.Route(context.Background(), 1, completionUpdate(42, InvoicePayload(p.ID), 180))
	require.NoError(t, err)

	assert.Equal(t, int64(100), env.ledger.balance(42))
	sent := env.client.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(42), sent[0].chatID)
	assert.Contains(t, sent[0].text, "100")
}

func TestRouteCompletionDuplicateIsQuiet(t *testing.T) {
	env := newTestEnv()
	p := env.repo.seed(&Payment{UserID: 42, Amount: 100, StarsAmount: 180})
	update := completionUpdate(42, InvoicePayload(p.ID), 180)

	require.NoError(t, env.router.Route(context.Background(), 1, update))
	require.NoError(t, env.router.Route(context.Background(), 1, update))

	assert.Equal(t, 1, env.ledger.creditCalls)
	// Only the first delivery messages the user.
	assert.Len(t, env.client.sentMessages(), 1)
}

func TestRouteCompletionBadPayloadAcks(t *testing.T) {
	env := newTestEnv()

	err := env.router.Route(context.Background(), 1, completionUpdate(42, "garbage", 180))
	require.NoError(t, err)
	assert.Zero(t, env.ledger.creditCalls)
}

func TestRouteTopupCallbackOpensPayment(t *testing.T) {
	env := newTestEnv()

	update := &tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: 42},
			Data: "topup_150",
			Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 42},
			},
		},
	}
	err := env.router.Route(context.Background(), 1, update)
	require.NoError(t, err)

	assert.Equal(t, []string{"cb-1"}, env.client.callbacks)
	require.Len(t, env.client.invoices, 1)
	assert.Equal(t, int64(200), env.client.invoices[0].StarsAmount)

	sent := env.client.sentMessages()
	require.Len(t, sent, 1)
	assert.NotNil(t, sent[0].markup)
}

func TestRouteCallbackWithUnknownDataIsIgnored(t *testing.T) {
	env := newTestEnv()

	update := &tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-2",
			From:    &tgbotapi.User{ID: 42},
			Data:    "something_else",
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
		},
	}
	require.NoError(t, env.router.Route(context.Background(), 1, update))
	assert.Empty(t, env.client.invoices)
	assert.Empty(t, env.client.sentMessages())
}

func TestRouteStartCommand(t *testing.T) {
	env := newTestEnv()

	update := &tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: 42},
			Chat:     &tgbotapi.Chat{ID: 42},
			Text:     "/start",
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
		},
	}
	require.NoError(t, env.router.Route(context.Background(), 1, update))

	sent := env.client.sentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, Tr("en", "stars_bot_welcome"), sent[0].text)
	assert.Equal(t, Tr("en", "stars_bot_welcome_inline"), sent[1].text)
}

func TestRoutePaymentMenuButton(t *testing.T) {
	env := newTestEnv()

	update := &tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 42},
			Chat: &tgbotapi.Chat{ID: 42},
			Text: Tr("ru", "btn_payment_menu"),
		},
	}
	require.NoError(t, env.router.Route(context.Background(), 1, update))

	sent := env.client.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, Tr("en", "stars_bot_welcome_inline"), sent[0].text)
}

func TestRouteUnclassifiedUpdate(t *testing.T) {
	env := newTestEnv()

	require.NoError(t, env.router.Route(context.Background(), 1, &tgbotapi.Update{}))
	assert.Empty(t, env.client.sentMessages())
}
