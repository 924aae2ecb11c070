package vision

import (
	"context"
	"strings"
)

// Gateway is the recognition service seen from the bot.
type Gateway interface {
	Describe(ctx context.Context, img Image, opt DescribeOptions) (DescribeResult, error)
	RecognizeText(ctx context.Context, img Image) (OcrResult, error)
}

// Image is either a reference by URL or the raw image bytes, never both.
type Image struct {
	url  string
	data []byte
}

func FromURL(u string) Image   { return Image{url: u} }
func FromBytes(b []byte) Image { return Image{data: b} }

func (i Image) URL() string   { return i.url }
func (i Image) Bytes() []byte { return i.data }
func (i Image) IsURL() bool   { return i.data == nil }
func (i Image) IsZero() bool  { return i.url == "" && len(i.data) == 0 }

type DescribeOptions struct {
	Language      string // default "en"
	MaxCandidates int    // default 1
}

func (o DescribeOptions) withDefaults() DescribeOptions {
	if strings.TrimSpace(o.Language) == "" {
		o.Language = "en"
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 1
	}
	return o
}

// ----- describe -----

type DescribeResult struct {
	Description ImageDescription `json:"description"`
	RequestID   string           `json:"requestId,omitempty"`
	Metadata    *ImageMetadata   `json:"metadata,omitempty"`
}

type ImageDescription struct {
	Tags     []string  `json:"tags"`
	Captions []Caption `json:"captions"`
}

type Caption struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type ImageMetadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// FirstCaption returns the best caption, if the service produced any.
func (r DescribeResult) FirstCaption() (Caption, bool) {
	if len(r.Description.Captions) == 0 {
		return Caption{}, false
	}
	return r.Description.Captions[0], true
}

// ----- ocr -----

type OcrResult struct {
	Language    string   `json:"language"`
	TextAngle   float64  `json:"textAngle"`
	Orientation string   `json:"orientation"`
	Regions     []Region `json:"regions"`
}

type Region struct {
	BoundingBox string `json:"boundingBox,omitempty"`
	Lines       []Line `json:"lines"`
}

type Line struct {
	BoundingBox string `json:"boundingBox,omitempty"`
	Words       []Word `json:"words"`
}

type Word struct {
	BoundingBox string `json:"boundingBox,omitempty"`
	Text        string `json:"text"`
}

// Text flattens the recognized words: words are separated by a space, lines by
// CRLF and regions by an empty line.
func (r OcrResult) Text() string {
	regions := make([]string, 0, len(r.Regions))
	for _, rg := range r.Regions {
		lines := make([]string, 0, len(rg.Lines))
		for _, ln := range rg.Lines {
			words := make([]string, 0, len(ln.Words))
			for _, w := range ln.Words {
				words = append(words, w.Text)
			}
			lines = append(lines, strings.Join(words, " "))
		}
		regions = append(regions, strings.Join(lines, "\r\n"))
	}
	return strings.Join(regions, "\r\n\r\n")
}
