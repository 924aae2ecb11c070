package teams

import (
	"context"

	"visionbot/api/internal/bot"
	"visionbot/api/internal/credentials"
	"visionbot/api/internal/upload"
)

// conversation answers one inbound activity through the connector.
type conversation struct {
	in      *Activity
	cred    *credentials.Credential
	conn    *Connector
	uploads *upload.Session
}

func (c *conversation) Send(ctx context.Context, m bot.Message) error {
	out, err := reply(c.in, m)
	if err != nil {
		return err
	}
	return c.conn.Reply(ctx, c.cred, c.in.ServiceURL, out)
}

func (c *conversation) FetchContent(ctx context.Context, url string) ([]byte, error) {
	return c.conn.Fetch(ctx, c.cred, url)
}

func (c *conversation) Upload(ctx context.Context, info bot.FileUploadInfo, data []byte) error {
	return c.uploads.Put(ctx, info.UploadURL, data)
}

func (c *conversation) Retract(ctx context.Context, activityID string) error {
	return c.conn.DeleteActivity(ctx, c.cred, c.in.ServiceURL, c.in.conversationID(), activityID)
}
