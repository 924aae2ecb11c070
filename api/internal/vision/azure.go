package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	describePath = "describe"
	ocrPath      = "ocr"

	SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

	// default API version path appended when only a host name is configured
	defaultAPIPath = "vision/v2.0"
)

// Client talks to the Azure Computer Vision REST API.
type Client struct {
	baseURL string
	key     string
	httpc   *http.Client
}

// New accepts either a full base URL ("https://host/vision/v2.0") or a bare
// region host name ("westus.api.cognitive.microsoft.com").
func New(endpoint, key string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: normalizeEndpoint(endpoint),
		key:     key,
		httpc:   httpc,
	}
}

func normalizeEndpoint(endpoint string) string {
	e := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if e == "" {
		return ""
	}
	if !strings.Contains(e, "://") {
		return "https://" + e + "/" + defaultAPIPath
	}
	return e
}

func (c *Client) Describe(ctx context.Context, img Image, opt DescribeOptions) (DescribeResult, error) {
	opt = opt.withDefaults()
	q := url.Values{}
	q.Set("language", opt.Language)
	q.Set("maxCandidates", strconv.Itoa(opt.MaxCandidates))

	var out DescribeResult
	err := c.post(ctx, describePath, q, img, &out)
	return out, err
}

func (c *Client) RecognizeText(ctx context.Context, img Image) (OcrResult, error) {
	q := url.Values{}
	q.Set("detectOrientation", "true")

	var out OcrResult
	err := c.post(ctx, ocrPath, q, img, &out)
	return out, err
}

type imageURLRequest struct {
	URL string `json:"url"`
}

func (c *Client) post(ctx context.Context, path string, q url.Values, img Image, out any) error {
	endpoint := c.baseURL + "/" + path + "?" + q.Encode()

	var (
		body        io.Reader
		contentType string
	)
	if img.IsURL() {
		payload, err := json.Marshal(imageURLRequest{URL: img.URL()})
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	} else {
		body = bytes.NewReader(img.Bytes())
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("vision %s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(SubscriptionKeyHeader, c.key)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("vision %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("vision %s: read body: %w", path, err)
	}
	return decodeResponse(resp.StatusCode, raw, out)
}

// decodeResponse maps a service reply onto out, or onto an *APIError when the
// status is not 2xx.
func decodeResponse(status int, raw []byte, out any) error {
	if status < 200 || status >= 300 {
		apiErr := &APIError{StatusCode: status}
		if err := json.Unmarshal(raw, apiErr); err != nil {
			return fmt.Errorf("%w: status %d, error body: %v", ErrMalformedResponse, status, err)
		}
		return apiErr
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
