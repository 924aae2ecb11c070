package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"visionbot/api/internal/credentials"
	"visionbot/api/internal/util"
)

// max inline attachment size accepted from the channel
const maxContent = 20 << 20

// Connector calls the Bot Framework connector service of a conversation.
type Connector struct {
	httpc *http.Client
}

func NewConnector(httpc *http.Client) *Connector {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Connector{httpc: httpc}
}

func activitiesURL(serviceURL, conversationID, activityID string) string {
	u := strings.TrimRight(serviceURL, "/") + "/v3/conversations/" + url.PathEscape(conversationID) + "/activities"
	if activityID != "" {
		u += "/" + url.PathEscape(activityID)
	}
	return u
}

// Reply posts act into the conversation, threaded under act.ReplyToID when set.
func (c *Connector) Reply(ctx context.Context, cred *credentials.Credential, serviceURL string, act *Activity) error {
	if act.Conversation == nil {
		return fmt.Errorf("connector reply: activity has no conversation")
	}
	body, err := json.Marshal(act)
	if err != nil {
		return err
	}
	endpoint := activitiesURL(serviceURL, act.Conversation.ID, act.ReplyToID)
	_, err = c.do(ctx, cred, http.MethodPost, endpoint, bytes.NewReader(body))
	return err
}

func (c *Connector) DeleteActivity(ctx context.Context, cred *credentials.Credential, serviceURL, conversationID, activityID string) error {
	_, err := c.do(ctx, cred, http.MethodDelete, activitiesURL(serviceURL, conversationID, activityID), nil)
	return err
}

// Fetch downloads attachment content that requires the bot token.
func (c *Connector) Fetch(ctx context.Context, cred *credentials.Credential, contentURL string) ([]byte, error) {
	return c.do(ctx, cred, http.MethodGet, contentURL, nil)
}

func (c *Connector) do(ctx context.Context, cred *credentials.Credential, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := cred.Authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := util.ReadLimited(resp.Body, maxContent)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(truncate(b, 512)))
	}
	return b, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
