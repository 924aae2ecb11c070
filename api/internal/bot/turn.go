package bot

import (
	"context"
	"encoding/json"
)

const (
	ContentTypeFileDownloadInfo = "application/vnd.microsoft.teams.file.download.info"
	ContentTypeFileConsent      = "application/vnd.microsoft.teams.card.file.consent"
	ContentTypeFileInfo         = "application/vnd.microsoft.teams.card.file.info"

	InvokeFileConsent = "fileConsent/invoke"

	ConversationPersonal = "personal"
)

// Turn is one inbound activity as the workflows see it, independent of the
// channel it arrived on.
type Turn struct {
	ConversationID   string
	ConversationType string // "personal", "groupChat", "channel"; empty means personal
	RecipientID      string // bot identity the turn is addressed to
	ActivityID       string
	ReplyToID        string // for invokes: the activity that carried the card

	Text        string
	Attachments []Attachment

	Invoke *Invoke
}

func (t Turn) IsInvoke() bool { return t.Invoke != nil }

func (t Turn) Personal() bool {
	return t.ConversationType == "" || t.ConversationType == ConversationPersonal
}

type Invoke struct {
	Name  string
	Value json.RawMessage
}

type Attachment struct {
	ContentType string          `json:"contentType"`
	ContentURL  string          `json:"contentUrl,omitempty"`
	Name        string          `json:"name,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
}

// FileDownloadInfo is the content of a file attachment picked from storage.
// DownloadURL is pre-authorized and valid for a few minutes only.
type FileDownloadInfo struct {
	DownloadURL string `json:"downloadUrl"`
	UniqueID    string `json:"uniqueId"`
	FileType    string `json:"fileType"`
}

// Message is one outbound reply. A typing indicator carries nothing else; text
// may accompany a card.
type Message struct {
	Typing      bool
	Text        string
	ConsentCard *FileConsentCard
	FileInfo    *FileInfoCard
}

func typing() Message       { return Message{Typing: true} }
func text(s string) Message { return Message{Text: s} }

// Conversation is the channel side of a turn.
type Conversation interface {
	Send(ctx context.Context, m Message) error
	// FetchContent downloads an inline attachment using the bot's credential.
	FetchContent(ctx context.Context, url string) ([]byte, error)
	// Upload writes data into the upload target the user granted on accept.
	Upload(ctx context.Context, info FileUploadInfo, data []byte) error
}

// Retractor is implemented by channels that can delete an earlier bot message.
type Retractor interface {
	Retract(ctx context.Context, activityID string) error
}

// Handler processes one turn and reports the state it ended in.
type Handler interface {
	Handle(ctx context.Context, t Turn, conv Conversation) State
}

type State int

// StateResponded covers every terminal reply that leaves no state behind:
// captions, instructions and "no text found". StateAwaitingConsent means a
// pending result was stored and a consent card sent.
const (
	StateIdle State = iota
	StateResponded
	StateAwaitingConsent
	StateAccepted
	StateDeclined
	StateStale
	StateFailed
	StateIgnored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResponded:
		return "responded"
	case StateAwaitingConsent:
		return "awaiting_consent"
	case StateAccepted:
		return "accepted"
	case StateDeclined:
		return "declined"
	case StateStale:
		return "stale"
	case StateFailed:
		return "failed"
	case StateIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Operation selects which recognition a chat runs on its images.
type Operation int

const (
	OpDescribe Operation = iota
	OpRecognizeText
)

func (o Operation) String() string {
	if o == OpRecognizeText {
		return "ocr"
	}
	return "caption"
}
