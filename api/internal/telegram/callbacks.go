package telegram

import (
	"context"
	"encoding/json"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visionbot/api/internal/bot"
)

// documentUpload stands in for an upload session URL: the accepted text is
// sent back into the chat as a document.
const documentUpload = "telegram:sendDocument"

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	action, resultID, ok := parseConsentData(cb.Data)
	if !ok {
		return
	}
	cid := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	log := r.logger(cid, msgID)
	ctx = log.WithContext(ctx)

	resp := bot.ConsentResponse{Action: action}
	resp.Context, _ = json.Marshal(bot.ConsentContext{ResultID: resultID})
	if action == bot.ConsentAccept {
		name := "result.txt"
		if n, ok := r.cards.name(cid, resultID); ok {
			name = n
		}
		resp.UploadInfo = &bot.FileUploadInfo{
			Name:      name,
			UploadURL: documentUpload,
			UniqueID:  resultID,
			FileType:  "txt",
		}
	}
	value, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("encode consent response")
		return
	}

	turn := bot.Turn{
		ConversationID:   conversationID(cid),
		ConversationType: conversationType(cb.Message.Chat),
		ReplyToID:        strconv.Itoa(msgID),
		Invoke:           &bot.Invoke{Name: bot.InvokeFileConsent, Value: value},
	}
	// consent answers belong to OCR whatever the chat's current mode is
	st := r.OCR.Handle(ctx, turn, &chat{r: r, chatID: cid})
	log.Info().Str("state", st.String()).Msg("consent handled")

	switch st {
	case bot.StateAccepted, bot.StateDeclined:
		r.cards.forget(cid, resultID)
	case bot.StateStale:
		// drop the keyboard so the card cannot be answered again
		edit := tgbotapi.NewEditMessageReplyMarkup(cid, msgID, tgbotapi.InlineKeyboardMarkup{})
		_, _ = r.Bot.Send(edit)
		r.cards.forget(cid, resultID)
	}
}
