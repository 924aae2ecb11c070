package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"visionbot/api/internal/bot"
	"visionbot/api/internal/credentials"
	"visionbot/api/internal/store"
	"visionbot/api/internal/upload"
	"visionbot/api/internal/vision"
)

type stubGateway struct {
	caption string
	text    string
}

func (g stubGateway) Describe(context.Context, vision.Image, vision.DescribeOptions) (vision.DescribeResult, error) {
	return vision.DescribeResult{Description: vision.ImageDescription{Captions: []vision.Caption{{Text: g.caption}}}}, nil
}

func (g stubGateway) RecognizeText(context.Context, vision.Image) (vision.OcrResult, error) {
	return vision.OcrResult{Language: "en", Regions: []vision.Region{{Lines: []vision.Line{{Words: []vision.Word{{Text: g.text}}}}}}}, nil
}

type recorded struct {
	method string
	path   string
	body   []byte
}

// channel fakes the connector service, the attachment host and the upload target.
type channel struct {
	mu    sync.Mutex
	calls []recorded
	srv   *httptest.Server
}

func newChannel(t *testing.T) *channel {
	c := &channel{}
	c.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.calls = append(c.calls, recorded{method: r.Method, path: r.URL.Path, body: b})
		c.mu.Unlock()
		if strings.HasPrefix(r.URL.Path, "/attachments/") {
			_, _ = w.Write([]byte("imagebytes"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"sent"}`))
	}))
	t.Cleanup(c.srv.Close)
	return c
}

func (c *channel) activities(t *testing.T) []Activity {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Activity
	for _, call := range c.calls {
		if call.method != http.MethodPost || !strings.HasPrefix(call.path, "/v3/") {
			continue
		}
		var a Activity
		if err := json.Unmarshal(call.body, &a); err != nil {
			t.Fatalf("decode posted activity: %v", err)
		}
		out = append(out, a)
	}
	return out
}

func (c *channel) find(method, prefix string) []recorded {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []recorded
	for _, call := range c.calls {
		if call.method == method && strings.HasPrefix(call.path, prefix) {
			out = append(out, call)
		}
	}
	return out
}

func newEndpoint(wf bot.Handler) *Endpoint {
	return &Endpoint{
		Workflow:    wf,
		Credentials: credentials.NewProvider(map[string]credentials.App{"28:bot": {}}),
		Connector:   NewConnector(nil),
		Uploads:     upload.New(nil),
		Log:         zerolog.Nop(),
	}
}

func post(t *testing.T, h http.Handler, act Activity) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(act)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader(raw)))
	return rec
}

func message(serviceURL, text string) Activity {
	return Activity{
		Type:         TypeMessage,
		ID:           "act-1",
		ServiceURL:   serviceURL,
		From:         &ChannelAccount{ID: "29:user"},
		Recipient:    &ChannelAccount{ID: "28:bot"},
		Conversation: &ConversationAccount{ID: "a:conv-1", ConversationType: "personal"},
		Text:         text,
	}
}

func TestCaptionTurnRepliesThroughConnector(t *testing.T) {
	ch := newChannel(t)
	ep := newEndpoint(&bot.CaptionWorkflow{Vision: stubGateway{caption: "a cat"}})

	rec := post(t, ep, message(ch.srv.URL, "what is https://img.example/cat.jpg"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	acts := ch.activities(t)
	if len(acts) != 2 {
		t.Fatalf("posted %d activities, want typing + reply", len(acts))
	}
	if acts[0].Type != TypeTyping {
		t.Fatalf("first activity type = %q", acts[0].Type)
	}
	if acts[1].Text != "I think that's a cat." || acts[1].ReplyToID != "act-1" {
		t.Fatalf("reply = %+v", acts[1])
	}
	if acts[1].From == nil || acts[1].From.ID != "28:bot" {
		t.Fatalf("reply must come from the bot, got %+v", acts[1].From)
	}
	posts := ch.find(http.MethodPost, "/v3/conversations/a:conv-1/activities/act-1")
	if len(posts) != 2 {
		t.Fatalf("connector posts = %+v", posts)
	}
}

func TestInlineAttachmentIsFetchedFromChannel(t *testing.T) {
	ch := newChannel(t)
	ep := newEndpoint(&bot.CaptionWorkflow{Vision: stubGateway{caption: "a dog"}})

	act := message(ch.srv.URL, "")
	act.Attachments = []bot.Attachment{{ContentType: "image/png", ContentURL: ch.srv.URL + "/attachments/1"}}
	post(t, ep, act)

	if got := ch.find(http.MethodGet, "/attachments/1"); len(got) != 1 {
		t.Fatalf("attachment fetches = %d", len(got))
	}
	acts := ch.activities(t)
	if acts[len(acts)-1].Text != "I think that's a dog." {
		t.Fatalf("reply = %+v", acts[len(acts)-1])
	}
}

func TestConsentAcceptFlow(t *testing.T) {
	ch := newChannel(t)
	ep := newEndpoint(bot.NewConsentWorkflow(stubGateway{text: "héllo"}, store.NewMemory(0)))

	file, _ := json.Marshal(bot.FileDownloadInfo{DownloadURL: "https://files.example/dl"})
	act := message(ch.srv.URL, "")
	act.Attachments = []bot.Attachment{{ContentType: bot.ContentTypeFileDownloadInfo, Name: "page.jpg", Content: file}}
	post(t, ep, act)

	acts := ch.activities(t)
	card := acts[len(acts)-1]
	if card.Text != "I found English text in that image." || len(card.Attachments) != 1 {
		t.Fatalf("consent reply = %+v", card)
	}
	att := card.Attachments[0]
	if att.ContentType != bot.ContentTypeFileConsent || att.Name != "page.jpg.txt" {
		t.Fatalf("consent attachment = %+v", att)
	}
	var content bot.FileConsentCard
	if err := json.Unmarshal(att.Content, &content); err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if content.SizeInBytes != int64(len("héllo")) || content.AcceptContext.ResultID == "" {
		t.Fatalf("card content = %+v", content)
	}

	ctxRaw, _ := json.Marshal(content.AcceptContext)
	value, _ := json.Marshal(bot.ConsentResponse{
		Action:  bot.ConsentAccept,
		Context: ctxRaw,
		UploadInfo: &bot.FileUploadInfo{
			Name:       "page.jpg.txt",
			UploadURL:  ch.srv.URL + "/upload/session-1",
			ContentURL: "https://files.example/page.jpg.txt",
			UniqueID:   "u-1",
			FileType:   "txt",
		},
	})
	invoke := message(ch.srv.URL, "")
	invoke.Type = TypeInvoke
	invoke.ID = "act-2"
	invoke.Name = bot.InvokeFileConsent
	invoke.ReplyToID = "card-1"
	invoke.Value = value
	if rec := post(t, ep, invoke); rec.Code != http.StatusOK {
		t.Fatalf("invoke status = %d", rec.Code)
	}

	puts := ch.find(http.MethodPut, "/upload/session-1")
	if len(puts) != 1 || string(puts[0].body) != "héllo" {
		t.Fatalf("uploads = %+v", puts)
	}
	if dels := ch.find(http.MethodDelete, "/v3/conversations/a:conv-1/activities/card-1"); len(dels) != 1 {
		t.Fatalf("consent card deletions = %d", len(dels))
	}
	acts = ch.activities(t)
	last := acts[len(acts)-1]
	if len(last.Attachments) != 1 || last.Attachments[0].ContentType != bot.ContentTypeFileInfo {
		t.Fatalf("file info reply = %+v", last)
	}
	if last.Attachments[0].ContentURL != "https://files.example/page.jpg.txt" || last.Attachments[0].Name != "page.jpg.txt" {
		t.Fatalf("file info attachment = %+v", last.Attachments[0])
	}
}

func TestEndpointRejectsBadRequests(t *testing.T) {
	ep := newEndpoint(&bot.CaptionWorkflow{Vision: stubGateway{}})

	rec := httptest.NewRecorder()
	ep.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/messages", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ep.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader("{nope")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", rec.Code)
	}
}

func TestUnknownBotProducesNoReplies(t *testing.T) {
	ch := newChannel(t)
	ep := newEndpoint(&bot.CaptionWorkflow{Vision: stubGateway{caption: "x"}})

	act := message(ch.srv.URL, "https://img.example/a.png")
	act.Recipient = &ChannelAccount{ID: "28:someone-else"}
	if rec := post(t, ep, act); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(ch.activities(t)) != 0 {
		t.Fatalf("no replies expected for an unknown bot")
	}
}

func TestNonMessageActivitiesAreIgnored(t *testing.T) {
	ch := newChannel(t)
	ep := newEndpoint(&bot.CaptionWorkflow{Vision: stubGateway{caption: "x"}})

	act := message(ch.srv.URL, "")
	act.Type = "conversationUpdate"
	post(t, ep, act)
	if len(ch.activities(t)) != 0 {
		t.Fatalf("conversationUpdate must not be answered")
	}
}
