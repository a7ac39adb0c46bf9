// Package telegram wraps the Telegram Bot API calls the payment service makes
// on behalf of a tenant credential: issuing invoice links, answering
// pre-checkout queries, managing webhooks and messaging the payer.
package telegram

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// StarsCurrency is the Bot API currency code for Telegram Stars.
const StarsCurrency = "XTR"

// InvoiceRequest describes an invoice link to create.
type InvoiceRequest struct {
	Title       string
	Description string
	Payload     string
	Label       string
	StarsAmount int64
}

// Client is the outbound Bot API surface for one tenant credential.
type Client interface {
	Username() string
	CreateInvoiceLink(req InvoiceRequest) (string, error)
	AnswerPreCheckout(queryID string, ok bool, errorMessage string) error
	SetWebhook(url string, allowedUpdates []string) error
	WebhookURL() (string, error)
	DeleteWebhook() error
	// SendMessage returns the id of the sent message so callers can schedule
	// its deletion.
	SendMessage(chatID int64, text string, markup interface{}) (int, error)
	DeleteMessage(chatID int64, messageID int) error
	AnswerCallback(callbackID string) error
}

type botClient struct {
	bot *tgbotapi.BotAPI
}

// NewClient wraps an authorized Bot API instance.
func NewClient(bot *tgbotapi.BotAPI) Client {
	return &botClient{bot: bot}
}

func (c *botClient) Username() string {
	return c.bot.Self.UserName
}

// CreateInvoiceLink calls the createInvoiceLink method directly; the library
// predates it, so the request goes through MakeRequest.
func (c *botClient) CreateInvoiceLink(req InvoiceRequest) (string, error) {
	prices, err := json.Marshal([]tgbotapi.LabeledPrice{
		{Label: req.Label, Amount: int(req.StarsAmount)},
	})
	if err != nil {
		return "", fmt.Errorf("marshal prices: %w", err)
	}

	params := tgbotapi.Params{}
	params.AddNonEmpty("title", req.Title)
	params.AddNonEmpty("description", req.Description)
	params.AddNonEmpty("payload", req.Payload)
	params.AddNonEmpty("currency", StarsCurrency)
	params.AddNonEmpty("prices", string(prices))

	resp, err := c.bot.MakeRequest("createInvoiceLink", params)
	if err != nil {
		return "", fmt.Errorf("createInvoiceLink: %w", err)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invoice link: %w", err)
	}
	return link, nil
}

// AnswerPreCheckout answers a pre-checkout query. The provider charges the
// user only after an ok answer, and gives up if none arrives in time.
func (c *botClient) AnswerPreCheckout(queryID string, ok bool, errorMessage string) error {
	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errorMessage,
	}
	if _, err := c.bot.Request(cfg); err != nil {
		return fmt.Errorf("answerPreCheckoutQuery: %w", err)
	}
	return nil
}

func (c *botClient) SetWebhook(url string, allowedUpdates []string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	wh.AllowedUpdates = allowedUpdates
	wh.DropPendingUpdates = true
	if _, err := c.bot.Request(wh); err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	return nil
}

func (c *botClient) WebhookURL() (string, error) {
	info, err := c.bot.GetWebhookInfo()
	if err != nil {
		return "", fmt.Errorf("getWebhookInfo: %w", err)
	}
	return info.URL, nil
}

func (c *botClient) DeleteWebhook() error {
	cfg := tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}
	if _, err := c.bot.Request(cfg); err != nil {
		return fmt.Errorf("deleteWebhook: %w", err)
	}
	return nil
}

func (c *botClient) SendMessage(chatID int64, text string, markup interface{}) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("sendMessage: %w", err)
	}
	return sent.MessageID, nil
}

func (c *botClient) DeleteMessage(chatID int64, messageID int) error {
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("deleteMessage: %w", err)
	}
	return nil
}

func (c *botClient) AnswerCallback(callbackID string) error {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answerCallbackQuery: %w", err)
	}
	return nil
}
