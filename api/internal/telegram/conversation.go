package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visionbot/api/internal/bot"
	"visionbot/api/internal/util"
)

// Telegram caps messages at 4096 characters.
const maxMessageRunes = 3900

// chat answers a turn in one Telegram chat.
type chat struct {
	r      *Router
	chatID int64
}

func (c *chat) Send(_ context.Context, m bot.Message) error {
	switch {
	case m.Typing:
		_, err := c.r.Bot.Request(tgbotapi.NewChatAction(c.chatID, tgbotapi.ChatTyping))
		return err

	case m.ConsentCard != nil:
		card := m.ConsentCard
		id := card.AcceptContext.ResultID
		c.r.cards.offer(c.chatID, id, card.Name)
		msg := tgbotapi.NewMessage(c.chatID, fmt.Sprintf("%s\nSend it to you as %s (%s)?", m.Text, card.Name, humanSize(card.SizeInBytes)))
		msg.ReplyMarkup = makeConsentKeyboard(id)
		_, err := c.r.Bot.Send(msg)
		return err

	case m.FileInfo != nil:
		_, err := c.r.Bot.Send(tgbotapi.NewMessage(c.chatID, "📄 "+m.FileInfo.Name))
		return err

	default:
		_, err := c.r.Bot.Send(tgbotapi.NewMessage(c.chatID, util.Truncate(m.Text, maxMessageRunes)))
		return err
	}
}

func (c *chat) FetchContent(ctx context.Context, ref string) ([]byte, error) {
	return c.r.download(ctx, ref)
}

// Upload sends the text as a document; Telegram has no upload sessions.
func (c *chat) Upload(_ context.Context, info bot.FileUploadInfo, data []byte) error {
	doc := tgbotapi.NewDocument(c.chatID, tgbotapi.FileBytes{Name: info.Name, Bytes: data})
	_, err := c.r.Bot.Send(doc)
	return err
}

func (c *chat) Retract(_ context.Context, activityID string) error {
	id, err := strconv.Atoi(activityID)
	if err != nil {
		return fmt.Errorf("message id %q: %w", activityID, err)
	}
	_, err = c.r.Bot.Request(tgbotapi.NewDeleteMessage(c.chatID, id))
	return err
}

func humanSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
