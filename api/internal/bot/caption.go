package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"visionbot/api/internal/vision"
)

// CaptionWorkflow answers every image with a one-line description. It keeps
// no state between turns.
type CaptionWorkflow struct {
	Vision vision.Gateway
	// GroupHint adds the "paste it inline" hint to instructions in group chats.
	GroupHint bool
}

func (w *CaptionWorkflow) Handle(ctx context.Context, t Turn, conv Conversation) State {
	log := zerolog.Ctx(ctx)
	if t.IsInvoke() {
		return StateIgnored
	}

	send(ctx, conv, typing())

	src, ok := ResolveImage(t)
	if !ok {
		send(ctx, conv, text(instructions(t, w.GroupHint)))
		return StateResponded
	}
	log.Debug().Int("source", int(src.Kind)).Msg("caption: image resolved")

	img, err := loadImage(ctx, src, conv)
	if err != nil {
		return fail(ctx, conv, err)
	}
	res, err := w.Vision.Describe(ctx, img, vision.DescribeOptions{})
	if err != nil {
		return fail(ctx, conv, err)
	}

	if c, ok := res.FirstCaption(); ok {
		send(ctx, conv, text(fmt.Sprintf(msgCaption, c.Text)))
	} else {
		send(ctx, conv, text(msgNoCaption))
	}
	return StateResponded
}

func fail(ctx context.Context, conv Conversation, err error) State {
	ev := zerolog.Ctx(ctx).Warn().Err(err)
	if apiErr, ok := vision.AsAPIError(err); ok {
		ev = ev.Str("request_id", apiErr.RequestID).Str("code", apiErr.Code).Int("status", apiErr.StatusCode)
	}
	ev.Msg("recognition failed")
	send(ctx, conv, text(diagnostic(err)))
	return StateFailed
}

// send delivers m and logs a failed delivery; a lost reply ends nothing else.
func send(ctx context.Context, conv Conversation, m Message) {
	if err := conv.Send(ctx, m); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send reply")
	}
}
