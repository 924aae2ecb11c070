package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"visionbot/api/internal/util"
	"visionbot/api/internal/vision"
)

// maximum image size fetched for URL-form requests
const maxDownload = 20 << 20

// Engine serves vision.Gateway through a Gemini multimodal model.
type Engine struct {
	APIKey string
	Model  string
	httpc  *http.Client
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
		httpc:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

const describeSystem = `You caption photos. Look at the image and describe it the way a short alt text would,
starting with an article, lower case, without a trailing period (e.g. "a cat sitting on a sofa").
Return STRICT JSON only:
{
  "captions": [{"text": string, "confidence": number between 0 and 1}],
  "tags": [string]
}
Order captions from most to least likely. If the image cannot be described, return an empty captions array.`

const ocrSystem = `You are an OCR engine. Transcribe ALL text visible in the image verbatim. Do not translate,
summarize or correct it. Group text that belongs together (a paragraph, a column, a label) into one region;
keep the visual line breaks inside each region.
Return STRICT JSON only:
{
  "language": string,      // BCP-47 code of the main language, "unk" if unknown or no text
  "orientation": string,   // "Up" | "Down" | "Left" | "Right"
  "regions": [[string]]    // regions, each an array of lines
}
If there is no text, return {"language":"unk","orientation":"Up","regions":[]}.`

func (e *Engine) Describe(ctx context.Context, img vision.Image, opt vision.DescribeOptions) (vision.DescribeResult, error) {
	if opt.MaxCandidates <= 0 {
		opt.MaxCandidates = 1
	}
	if opt.Language == "" {
		opt.Language = "en"
	}
	user := fmt.Sprintf("Return at most %d caption(s). Write captions in language %q.", opt.MaxCandidates, opt.Language)
	txt, err := e.generate(ctx, describeSystem, user, img)
	if err != nil {
		return vision.DescribeResult{}, err
	}
	return parseDescribe(txt, opt.MaxCandidates)
}

func (e *Engine) RecognizeText(ctx context.Context, img vision.Image) (vision.OcrResult, error) {
	txt, err := e.generate(ctx, ocrSystem, "Transcribe the text. JSON only.", img)
	if err != nil {
		return vision.OcrResult{}, err
	}
	return parseOCR(txt)
}

func (e *Engine) generate(ctx context.Context, system, user string, img vision.Image) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	data, err := e.imageBytes(ctx, img)
	if err != nil {
		return "", err
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	resp, err := m.GenerateContent(ctx,
		genai.Text(user),
		genai.Blob{MIMEType: util.PickMIME("", data), Data: data},
	)
	if err != nil {
		return "", &vision.APIError{Code: "gemini", Message: err.Error()}
	}
	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("%w: gemini returned no text", vision.ErrMalformedResponse)
	}
	return util.StripCodeFences(txt), nil
}

// imageBytes resolves URL-form images; Gemini only accepts inline data.
func (e *Engine) imageBytes(ctx context.Context, img vision.Image) ([]byte, error) {
	if !img.IsURL() {
		return img.Bytes(), nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download image: status %d", resp.StatusCode)
	}
	return util.ReadLimited(resp.Body, maxDownload)
}

type describeOut struct {
	Captions []vision.Caption `json:"captions"`
	Tags     []string         `json:"tags"`
}

func parseDescribe(txt string, maxCandidates int) (vision.DescribeResult, error) {
	var out describeOut
	if err := json.Unmarshal([]byte(txt), &out); err != nil {
		return vision.DescribeResult{}, fmt.Errorf("%w: gemini describe: %v", vision.ErrMalformedResponse, err)
	}
	caps := make([]vision.Caption, 0, len(out.Captions))
	for _, c := range out.Captions {
		if s := strings.TrimSpace(c.Text); s != "" {
			caps = append(caps, vision.Caption{Text: s, Confidence: c.Confidence})
		}
	}
	if maxCandidates > 0 && len(caps) > maxCandidates {
		caps = caps[:maxCandidates]
	}
	return vision.DescribeResult{
		Description: vision.ImageDescription{Tags: out.Tags, Captions: caps},
	}, nil
}

type ocrOut struct {
	Language    string     `json:"language"`
	Orientation string     `json:"orientation"`
	Regions     [][]string `json:"regions"`
}

func parseOCR(txt string) (vision.OcrResult, error) {
	var out ocrOut
	if err := json.Unmarshal([]byte(txt), &out); err != nil {
		return vision.OcrResult{}, fmt.Errorf("%w: gemini ocr: %v", vision.ErrMalformedResponse, err)
	}
	res := vision.OcrResult{Language: out.Language, Orientation: out.Orientation}
	for _, lines := range out.Regions {
		var rg vision.Region
		for _, l := range lines {
			fields := strings.Fields(l)
			if len(fields) == 0 {
				continue
			}
			ln := vision.Line{Words: make([]vision.Word, 0, len(fields))}
			for _, w := range fields {
				ln.Words = append(ln.Words, vision.Word{Text: w})
			}
			rg.Lines = append(rg.Lines, ln)
		}
		if len(rg.Lines) > 0 {
			res.Regions = append(res.Regions, rg)
		}
	}
	return res, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
