package bot

import (
	"context"
	"errors"
	"sync"

	"visionbot/api/internal/vision"
)

type uploadCall struct {
	info FileUploadInfo
	data []byte
}

type fakeConv struct {
	mu        sync.Mutex
	sent      []Message
	uploads   []uploadCall
	retracted []string
	fetched   []string

	content   map[string][]byte
	uploadErr error
}

func (c *fakeConv) Send(_ context.Context, m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeConv) FetchContent(_ context.Context, url string) ([]byte, error) {
	c.fetched = append(c.fetched, url)
	b, ok := c.content[url]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return b, nil
}

func (c *fakeConv) Upload(_ context.Context, info FileUploadInfo, data []byte) error {
	c.uploads = append(c.uploads, uploadCall{info: info, data: data})
	return c.uploadErr
}

// texts returns the text replies, typing indicators excluded.
func (c *fakeConv) texts() []string {
	var out []string
	for _, m := range c.sent {
		if !m.Typing && m.Text != "" {
			out = append(out, m.Text)
		}
	}
	return out
}

func (c *fakeConv) last() Message {
	if len(c.sent) == 0 {
		return Message{}
	}
	return c.sent[len(c.sent)-1]
}

type retractingConv struct {
	fakeConv
}

func (c *retractingConv) Retract(_ context.Context, id string) error {
	c.retracted = append(c.retracted, id)
	return nil
}

type fakeGateway struct {
	describe func(vision.Image) (vision.DescribeResult, error)
	ocr      func(vision.Image) (vision.OcrResult, error)

	images []vision.Image
}

func (g *fakeGateway) Describe(_ context.Context, img vision.Image, _ vision.DescribeOptions) (vision.DescribeResult, error) {
	g.images = append(g.images, img)
	return g.describe(img)
}

func (g *fakeGateway) RecognizeText(_ context.Context, img vision.Image) (vision.OcrResult, error) {
	g.images = append(g.images, img)
	return g.ocr(img)
}

func ocrText(lang string, lines ...string) vision.OcrResult {
	res := vision.OcrResult{Language: lang}
	if len(lines) == 0 {
		return res
	}
	rg := vision.Region{}
	for _, l := range lines {
		rg.Lines = append(rg.Lines, vision.Line{Words: []vision.Word{{Text: l}}})
	}
	res.Regions = []vision.Region{rg}
	return res
}

func urlTurn(conv, url string) Turn {
	return Turn{ConversationID: conv, ConversationType: ConversationPersonal, Text: "look " + url}
}
