package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"visionbot/api/internal/bot"
	"visionbot/api/internal/util"
)

// fileRef marks a content URL that still has to be resolved through getFile,
// so the bot token never leaves the process.
const fileRef = "tg-file:"

const maxDownload = 20 << 20

func conversationID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func conversationType(c *tgbotapi.Chat) string {
	if c == nil || c.IsPrivate() {
		return bot.ConversationPersonal
	}
	return "groupChat"
}

// turnFromMessage maps a Telegram message onto a turn. The largest photo
// size and image documents become inline image attachments.
func turnFromMessage(msg *tgbotapi.Message) bot.Turn {
	t := bot.Turn{
		ConversationID:   conversationID(msg.Chat.ID),
		ConversationType: conversationType(msg.Chat),
		ActivityID:       strconv.Itoa(msg.MessageID),
		Text:             msg.Text,
	}
	if t.Text == "" {
		t.Text = msg.Caption
	}
	if n := len(msg.Photo); n > 0 {
		ph := msg.Photo[n-1]
		t.Attachments = append(t.Attachments, bot.Attachment{ContentType: "image/jpeg", ContentURL: fileRef + ph.FileID})
	}
	if d := msg.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		t.Attachments = append(t.Attachments, bot.Attachment{ContentType: d.MimeType, ContentURL: fileRef + d.FileID, Name: d.FileName})
	}
	return t
}

func (r *Router) fileURL(ref string) (string, error) {
	if !strings.HasPrefix(ref, fileRef) {
		return ref, nil
	}
	return r.Bot.GetFileDirectURL(strings.TrimPrefix(ref, fileRef))
}

func (r *Router) download(ctx context.Context, ref string) ([]byte, error) {
	direct, err := r.fileURL(ref)
	if err != nil {
		return nil, fmt.Errorf("getFile: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, direct, nil)
	if err != nil {
		return nil, errors.New("download file: bad file url")
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		// the direct URL embeds the bot token
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return util.ReadLimited(resp.Body, maxDownload)
}

func (r *Router) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
