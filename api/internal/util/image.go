package util

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxImageDim is the largest width or height the vision service accepts.
const MaxImageDim = 4200

// MaxPixels bounds the images PrepareImage is willing to decode. Larger ones
// are passed through and left to the vision service to reject.
const MaxPixels = 50_000_000

// PrepareImage makes raw image bytes acceptable to the vision service: WebP is
// re-encoded as JPEG and anything larger than MaxImageDim is downscaled to fit.
// Data that cannot be decoded is returned unchanged so the service can report
// on it. The second result tells whether the bytes were rewritten.
func PrepareImage(data []byte) ([]byte, bool) {
	mime := SniffImageMIME(data)
	if mime == "" {
		return data, false
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return data, false
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return data, false
	}
	oversized := cfg.Width > MaxImageDim || cfg.Height > MaxImageDim
	if mime != "image/webp" && !oversized {
		return data, false
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, false
	}
	if oversized {
		img = imaging.Fit(img, MaxImageDim, MaxImageDim, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 90}); err != nil {
		return data, false
	}
	return out.Bytes(), true
}
