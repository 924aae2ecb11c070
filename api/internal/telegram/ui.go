package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visionbot/api/internal/bot"
)

const (
	cbAccept  = "ocr_accept:"
	cbDecline = "ocr_decline:"
)

// consent buttons under the OCR result message
func makeConsentKeyboard(resultID string) tgbotapi.InlineKeyboardMarkup {
	yes := tgbotapi.NewInlineKeyboardButtonData("Send file", cbAccept+resultID)
	no := tgbotapi.NewInlineKeyboardButtonData("No thanks", cbDecline+resultID)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(yes, no))
}

// parseConsentData splits callback data into the consent action and result id.
func parseConsentData(data string) (action, resultID string, ok bool) {
	switch {
	case strings.HasPrefix(data, cbAccept):
		return bot.ConsentAccept, strings.TrimPrefix(data, cbAccept), true
	case strings.HasPrefix(data, cbDecline):
		return bot.ConsentDecline, strings.TrimPrefix(data, cbDecline), true
	default:
		return "", "", false
	}
}
