package telegram

import (
	"context"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"visionbot/api/internal/bot"
)

// API is the part of *tgbotapi.BotAPI the router uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot   API
	Modes *Modes

	Caption bot.Handler
	OCR     bot.Handler

	Log        zerolog.Logger
	HTTPClient *http.Client

	cards cards
}

const startText = "Hi! Send me a picture or a link to one, and I'll tell you what it is.\n" +
	"/caption describes pictures, /ocr reads the text in them. /health checks the bot."

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText+"\nCurrent mode: "+r.Modes.Get(cid).String())
	case "health":
		r.send(cid, "✅ OK")
	case "caption", "ocr":
		op, _ := ParseOperation(msg.Command())
		r.Modes.Set(cid, op)
		zerolog.Ctx(ctx).Info().Str("mode", op.String()).Msg("mode switched")
		if op == bot.OpRecognizeText {
			r.send(cid, "Ok, I'll read the text in your pictures.")
		} else {
			r.send(cid, "Ok, I'll tell you what's in your pictures.")
		}
	default:
		r.send(cid, "Unknown command. Try /start")
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	cid := msg.Chat.ID
	log := r.logger(cid, msg.MessageID)
	ctx = log.WithContext(ctx)

	if msg.IsCommand() {
		r.HandleCommand(ctx, msg)
		return
	}

	h := r.handlerFor(cid)
	st := h.Handle(ctx, turnFromMessage(msg), &chat{r: r, chatID: cid})
	log.Info().Str("state", st.String()).Msg("turn handled")
}

func (r *Router) handlerFor(chatID int64) bot.Handler {
	if r.Modes.Get(chatID) == bot.OpRecognizeText {
		return r.OCR
	}
	return r.Caption
}

func (r *Router) logger(chatID int64, messageID int) zerolog.Logger {
	return r.Log.With().
		Str("turn_id", uuid.NewString()).
		Str("conversation_id", conversationID(chatID)).
		Str("activity_id", strconv.Itoa(messageID)).
		Logger()
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send")
	}
}
