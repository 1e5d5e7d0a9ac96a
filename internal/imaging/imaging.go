// Package imaging normalizes uploaded post images.
package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"net/http"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Defaults applied when Options fields are zero.
const (
	DefaultMaxDimension = 1600
	DefaultWebPQuality  = 75
	ContentTypeWebP     = "image/webp"
)

var (
	// ErrEmpty is returned for a zero-length upload.
	ErrEmpty = errors.New("empty image")
	// ErrUnsupported is returned when the bytes are not a supported image.
	ErrUnsupported = errors.New("unsupported image format")
)

// Options tune Process.
type Options struct {
	MaxDimension int
	Quality      int
}

// Result is a processed image ready for storage.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	// Hash is the hex SHA-256 of Data, usable as a content-addressed key.
	Hash string
}

// Process decodes a JPEG, PNG, GIF or WebP image, downscales it so that
// neither side exceeds MaxDimension and re-encodes it as WebP.
func Process(data []byte, opts Options) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if !allowedMIME(http.DetectContentType(data)) {
		return nil, ErrUnsupported
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultMaxDimension
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultWebPQuality
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	scaled := resizeToFit(src, opts.MaxDimension)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, scaled, &webp.Options{Quality: float32(opts.Quality)}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	b := scaled.Bounds()
	return &Result{
		Data:        buf.Bytes(),
		ContentType: ContentTypeWebP,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Hash:        hex.EncodeToString(sum[:]),
	}, nil
}

// ToPNG decodes any supported image and re-encodes it as PNG.
func ToPNG(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, maxSide int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxSide && h <= maxSide) {
		return src
	}

	scale := float64(maxSide) / float64(w)
	if hs := float64(maxSide) / float64(h); hs < scale {
		scale = hs
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func allowedMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}
