// Package ocr turns images into text. Recognition is delegated to a
// Recognizer; Processor adds URI resolution and decoding and hides every
// failure behind an empty result.
package ocr

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Recognizer extracts text from a decoded image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Opener opens the bytes behind an image URI.
type Opener interface {
	Open(uri string) (io.ReadCloser, error)
}

// Processor runs recognition on images addressed by URI.
type Processor struct {
	opener Opener
	rec    Recognizer
	logger *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(opener Opener, rec Recognizer, logger *slog.Logger) *Processor {
	return &Processor{opener: opener, rec: rec, logger: logger}
}

// ExtractText returns the recognized text of the image at uri. Any failure
// (unresolvable URI, undecodable image, recognizer error) yields "".
func (p *Processor) ExtractText(ctx context.Context, uri string) string {
	img, err := p.decode(uri)
	if err != nil {
		p.logger.Warn("ocr: decode failed", slog.String("uri", uri), slog.String("error", err.Error()))
		return ""
	}
	text, err := p.rec.Recognize(ctx, img)
	if err != nil {
		p.logger.Warn("ocr: recognition failed", slog.String("uri", uri), slog.String("error", err.Error()))
		return ""
	}
	return text
}

func (p *Processor) decode(uri string) (image.Image, error) {
	rc, err := p.opener.Open(uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	img, format, err := image.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("ocr: decode: %w", err)
	}
	p.logger.Debug("ocr: decoded", slog.String("uri", uri), slog.String("format", format),
		slog.Int("width", img.Bounds().Dx()), slog.Int("height", img.Bounds().Dy()))
	return img, nil
}
