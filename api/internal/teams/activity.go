package teams

import (
	"encoding/json"

	"visionbot/api/internal/bot"
)

const (
	TypeMessage = "message"
	TypeInvoke  = "invoke"
	TypeTyping  = "typing"
)

type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type ConversationAccount struct {
	ID               string `json:"id"`
	ConversationType string `json:"conversationType,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
}

// Activity is the subset of the Bot Framework activity schema the bot reads
// and writes.
type Activity struct {
	Type         string               `json:"type"`
	ID           string               `json:"id,omitempty"`
	ServiceURL   string               `json:"serviceUrl,omitempty"`
	ChannelID    string               `json:"channelId,omitempty"`
	From         *ChannelAccount      `json:"from,omitempty"`
	Recipient    *ChannelAccount      `json:"recipient,omitempty"`
	Conversation *ConversationAccount `json:"conversation,omitempty"`
	ReplyToID    string               `json:"replyToId,omitempty"`
	Text         string               `json:"text,omitempty"`
	Attachments  []bot.Attachment     `json:"attachments,omitempty"`
	Name         string               `json:"name,omitempty"`
	Value        json.RawMessage      `json:"value,omitempty"`
}

func (a *Activity) conversationID() string {
	if a.Conversation == nil {
		return ""
	}
	return a.Conversation.ID
}

func (a *Activity) recipientID() string {
	if a.Recipient == nil {
		return ""
	}
	return a.Recipient.ID
}

// Turn converts an inbound activity for the workflows.
func (a *Activity) Turn() bot.Turn {
	t := bot.Turn{
		ConversationID: a.conversationID(),
		RecipientID:    a.recipientID(),
		ActivityID:     a.ID,
		ReplyToID:      a.ReplyToID,
		Text:           a.Text,
		Attachments:    a.Attachments,
	}
	if a.Conversation != nil {
		t.ConversationType = a.Conversation.ConversationType
		if t.ConversationType == "" && a.Conversation.IsGroup {
			t.ConversationType = "groupChat"
		}
	}
	if a.Type == TypeInvoke {
		t.Invoke = &bot.Invoke{Name: a.Name, Value: a.Value}
	}
	return t
}

type fileInfoContent struct {
	UniqueID string `json:"uniqueId"`
	FileType string `json:"fileType"`
}

// reply builds the outbound activity for m in answer to in.
func reply(in *Activity, m bot.Message) (*Activity, error) {
	out := &Activity{
		Type:         TypeMessage,
		From:         in.Recipient,
		Recipient:    in.From,
		Conversation: in.Conversation,
		ReplyToID:    in.ID,
	}
	if m.Typing {
		out.Type = TypeTyping
		return out, nil
	}
	out.Text = m.Text

	if c := m.ConsentCard; c != nil {
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		out.Attachments = append(out.Attachments, bot.Attachment{
			ContentType: bot.ContentTypeFileConsent,
			Name:        c.Name,
			Content:     raw,
		})
	}
	if f := m.FileInfo; f != nil {
		raw, err := json.Marshal(fileInfoContent{UniqueID: f.UniqueID, FileType: f.FileType})
		if err != nil {
			return nil, err
		}
		out.Attachments = append(out.Attachments, bot.Attachment{
			ContentType: bot.ContentTypeFileInfo,
			ContentURL:  f.ContentURL,
			Name:        f.Name,
			Content:     raw,
		})
	}
	return out, nil
}
