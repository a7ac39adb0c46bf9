package payment

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// topupCallbackPrefix prefixes the callback data of top-up menu buttons.
const topupCallbackPrefix = "topup_"

// TopupKeyboard builds the inline keyboard with one button per preset.
func TopupKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(TopupOptions))
	for _, opt := range TopupOptions {
		text := Tr(lang, "topup_button",
			"stars", opt.Stars,
			"usd", opt.USD,
			"credits", opt.Credits,
		)
		data := fmt.Sprintf("%s%d", topupCallbackPrefix, opt.Credits)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(text, data),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// PaymentMenuKeyboard builds the persistent reply keyboard with the single
// "payment menu" button.
func PaymentMenuKeyboard(lang string) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(Tr(lang, "btn_payment_menu")),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

// PayKeyboard builds the inline keyboard with the invoice-link pay button.
func PayKeyboard(invoiceLink, lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(Tr(lang, "btn_pay"), invoiceLink),
		),
	)
}
