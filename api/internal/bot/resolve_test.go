package bot

import (
	"context"
	"encoding/json"
	"testing"
)

func fileAttachment(t *testing.T, name, url string) Attachment {
	t.Helper()
	raw, err := json.Marshal(FileDownloadInfo{DownloadURL: url, FileType: "png"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return Attachment{ContentType: ContentTypeFileDownloadInfo, Name: name, Content: raw}
}

func TestResolveImagePriority(t *testing.T) {
	file := fileAttachment(t, "scan.png", "https://files.example/dl")
	inline := Attachment{ContentType: "image/png", ContentURL: "https://smba.example/inline"}
	text := "see https://web.example/pic.jpg"

	cases := []struct {
		name     string
		turn     Turn
		wantKind SourceKind
		wantURL  string
	}{
		{"all three", Turn{Text: text, Attachments: []Attachment{inline, file}}, SourceFile, "https://files.example/dl"},
		{"inline and text", Turn{Text: text, Attachments: []Attachment{inline}}, SourceInline, "https://smba.example/inline"},
		{"text only", Turn{Text: text}, SourceText, "https://web.example/pic.jpg"},
		{"non-image attachment", Turn{Text: text, Attachments: []Attachment{{ContentType: "text/html", ContentURL: "https://x"}}}, SourceText, "https://web.example/pic.jpg"},
	}
	for _, tc := range cases {
		src, ok := ResolveImage(tc.turn)
		if !ok {
			t.Fatalf("%s: no image resolved", tc.name)
		}
		if src.Kind != tc.wantKind || src.URL != tc.wantURL {
			t.Fatalf("%s: got %+v", tc.name, src)
		}
	}

	src, _ := ResolveImage(Turn{Attachments: []Attachment{file}})
	if src.Name != "scan.png" {
		t.Fatalf("file source name = %q", src.Name)
	}
}

func TestResolveImageNone(t *testing.T) {
	broken := Attachment{ContentType: ContentTypeFileDownloadInfo, Content: json.RawMessage(`"nope"`)}
	for _, turn := range []Turn{{}, {Text: "hello there"}, {Attachments: []Attachment{broken}}} {
		if src, ok := ResolveImage(turn); ok {
			t.Fatalf("turn %+v resolved to %+v", turn, src)
		}
	}
}

func TestFindURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"no links here", ""},
		{"ftp://old.example/file", ""},
		{"one http://a.example/x.png please", "http://a.example/x.png"},
		{"first https://a.example/1 then https://b.example/2", "https://a.example/1"},
		{"SHOUTING HTTPS://A.EXAMPLE/Y.PNG", "HTTPS://A.EXAMPLE/Y.PNG"},
		{"bare https:// only", "https://"},
	}
	for _, tc := range cases {
		if got := FindURL(tc.in); got != tc.want {
			t.Fatalf("FindURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadImageFetchesOnlyInline(t *testing.T) {
	conv := &fakeConv{content: map[string][]byte{"https://smba.example/i": []byte("raw")}}

	img, err := loadImage(context.Background(), Source{Kind: SourceInline, URL: "https://smba.example/i"}, conv)
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	if img.IsURL() || string(img.Bytes()) != "raw" {
		t.Fatalf("inline image = %+v", img)
	}

	img, err = loadImage(context.Background(), Source{Kind: SourceFile, URL: "https://files.example/dl"}, conv)
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if !img.IsURL() || img.URL() != "https://files.example/dl" {
		t.Fatalf("file image = %+v", img)
	}
	if len(conv.fetched) != 1 {
		t.Fatalf("fetched = %v, want only the inline URL", conv.fetched)
	}
}

func TestLanguageName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"en", "English"},
		{"de", "German"},
		{"unk", "unk"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := LanguageName(tc.in); got != tc.want {
			t.Fatalf("LanguageName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
