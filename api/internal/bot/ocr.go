package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"visionbot/api/internal/store"
	"visionbot/api/internal/vision"
)

// ConsentWorkflow transcribes images and hands the text over as a file once
// the user accepts a consent card. The last recognition of a conversation is
// the only one that can still be accepted.
type ConsentWorkflow struct {
	Vision  vision.Gateway
	Results store.ResultStore

	newID func() string
	now   func() time.Time
}

func NewConsentWorkflow(gw vision.Gateway, results store.ResultStore) *ConsentWorkflow {
	return &ConsentWorkflow{
		Vision:  gw,
		Results: results,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

func (w *ConsentWorkflow) Handle(ctx context.Context, t Turn, conv Conversation) State {
	if t.IsInvoke() {
		if t.Invoke.Name != InvokeFileConsent {
			zerolog.Ctx(ctx).Warn().Str("invoke", t.Invoke.Name).Msg("unknown invoke activity")
			return StateIgnored
		}
		return w.handleConsent(ctx, t, conv)
	}
	return w.recognize(ctx, t, conv)
}

func (w *ConsentWorkflow) recognize(ctx context.Context, t Turn, conv Conversation) State {
	log := zerolog.Ctx(ctx)
	send(ctx, conv, typing())

	src, ok := ResolveImage(t)
	if !ok {
		send(ctx, conv, text(instructions(t, false)))
		return StateResponded
	}

	img, err := loadImage(ctx, src, conv)
	if err != nil {
		return fail(ctx, conv, err)
	}
	res, err := w.Vision.RecognizeText(ctx, img)
	if err != nil {
		return fail(ctx, conv, err)
	}

	txt := res.Text()
	if txt == "" {
		send(ctx, conv, text(msgNoText))
		return StateResponded
	}

	id := w.newID()
	pending := store.PendingResult{ResultID: id, Text: txt, CreatedAt: w.now()}
	if err := w.Results.Put(ctx, t.ConversationID, pending); err != nil {
		log.Error().Err(err).Msg("store pending result")
		send(ctx, conv, text(fmt.Sprintf(msgAnalyzeErr, "the result could not be saved.")))
		return StateFailed
	}

	name := defaultResultName
	if src.Name != "" {
		name = src.Name + ".txt"
	}
	card := &FileConsentCard{
		Name:           name,
		Description:    consentDescription,
		SizeInBytes:    int64(len(txt)),
		AcceptContext:  ConsentContext{ResultID: id},
		DeclineContext: ConsentContext{ResultID: id},
	}
	log.Info().Str("result_id", id).Str("language", res.Language).Int("bytes", len(txt)).Msg("ocr: awaiting consent")
	send(ctx, conv, Message{
		Text:        fmt.Sprintf(msgFoundText, LanguageName(res.Language)),
		ConsentCard: card,
	})
	return StateAwaitingConsent
}

func (w *ConsentWorkflow) handleConsent(ctx context.Context, t Turn, conv Conversation) State {
	log := zerolog.Ctx(ctx)

	var resp ConsentResponse
	if err := json.Unmarshal(t.Invoke.Value, &resp); err != nil {
		log.Warn().Err(err).Msg("undecodable file consent response")
		return StateIgnored
	}

	switch resp.Action {
	case ConsentDecline:
		retract(ctx, t, conv)
		send(ctx, conv, text(msgDeclined))
		return StateDeclined

	case ConsentAccept:
		pending, ok, err := w.Results.Get(ctx, t.ConversationID)
		if err != nil {
			log.Error().Err(err).Msg("load pending result")
			send(ctx, conv, text(fmt.Sprintf(msgUploadErr, "the result could not be loaded.")))
			return StateFailed
		}
		if !ok || resp.ResultID() == "" || pending.ResultID != resp.ResultID() {
			log.Info().Str("result_id", resp.ResultID()).Msg("ocr: stale consent response")
			send(ctx, conv, text(msgExpired))
			return StateStale
		}

		send(ctx, conv, typing())
		if resp.UploadInfo == nil || resp.UploadInfo.UploadURL == "" {
			send(ctx, conv, text(fmt.Sprintf(msgUploadErr, "no upload location was provided.")))
			return StateFailed
		}
		if err := conv.Upload(ctx, *resp.UploadInfo, []byte(pending.Text)); err != nil {
			log.Warn().Err(err).Msg("upload result")
			send(ctx, conv, text(fmt.Sprintf(msgUploadErr, err.Error())))
			return StateFailed
		}

		retract(ctx, t, conv)
		send(ctx, conv, Message{FileInfo: FileInfoFromUpload(*resp.UploadInfo)})
		log.Info().Str("result_id", pending.ResultID).Msg("ocr: file delivered")
		return StateAccepted

	default:
		log.Warn().Str("action", resp.Action).Msg("unknown file consent action")
		return StateIgnored
	}
}

// retract removes the consent card the response came from, when the channel
// allows it.
func retract(ctx context.Context, t Turn, conv Conversation) {
	r, ok := conv.(Retractor)
	if !ok || t.ReplyToID == "" {
		return
	}
	if err := r.Retract(ctx, t.ReplyToID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("activity_id", t.ReplyToID).Msg("retract consent card")
	}
}
