package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Session writes a whole file into a pre-authorized upload URL, such as the
// one returned when a user accepts a file consent card.
type Session struct {
	httpc *http.Client
}

func New(httpc *http.Client) *Session {
	if httpc == nil {
		httpc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Session{httpc: httpc}
}

// Put uploads data in a single range. The upload URL carries its own
// authorization, so no bot token is attached.
func (s *Session) Put(ctx context.Context, uploadURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Range", contentRange(len(data)))

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("upload: status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}

func contentRange(n int) string {
	if n == 0 {
		return "bytes */0"
	}
	return fmt.Sprintf("bytes 0-%d/%d", n-1, n)
}
