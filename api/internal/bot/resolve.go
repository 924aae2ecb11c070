package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"visionbot/api/internal/util"
	"visionbot/api/internal/vision"
)

// SourceFile is a file attachment with a pre-authorized download URL,
// SourceInline an inline image whose content URL needs the bot credential and
// SourceText a URL found in the message text.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceFile
	SourceInline
	SourceText
)

// Source is where the image of a turn comes from.
type Source struct {
	Kind SourceKind
	URL  string
	Name string // attachment name, file sources only
}

var urlRe = regexp.MustCompile(`(?i)https?://\S*`)

// FindURL returns the first http(s) URL in text, or "".
func FindURL(text string) string {
	return urlRe.FindString(text)
}

// ResolveImage picks the image of a turn: a file attachment first, then an
// inline image attachment, then a URL in the text.
func ResolveImage(t Turn) (Source, bool) {
	for _, a := range t.Attachments {
		if a.ContentType != ContentTypeFileDownloadInfo {
			continue
		}
		var info FileDownloadInfo
		if err := json.Unmarshal(a.Content, &info); err != nil || info.DownloadURL == "" {
			continue
		}
		return Source{Kind: SourceFile, URL: info.DownloadURL, Name: a.Name}, true
	}
	for _, a := range t.Attachments {
		if strings.HasPrefix(a.ContentType, "image/") && a.ContentURL != "" {
			return Source{Kind: SourceInline, URL: a.ContentURL}, true
		}
	}
	if u := FindURL(t.Text); u != "" {
		return Source{Kind: SourceText, URL: u}, true
	}
	return Source{}, false
}

// loadImage turns a source into a gateway input. Only inline images are
// downloaded; the others are passed to the service by URL.
func loadImage(ctx context.Context, src Source, conv Conversation) (vision.Image, error) {
	if src.Kind != SourceInline {
		return vision.FromURL(src.URL), nil
	}
	data, err := conv.FetchContent(ctx, src.URL)
	if err != nil {
		return vision.Image{}, fmt.Errorf("fetch inline image: %w", err)
	}
	if prepared, ok := util.PrepareImage(data); ok {
		data = prepared
	}
	return vision.FromBytes(data), nil
}
