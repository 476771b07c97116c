package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"
)

// Tesseract recognizes text by running the tesseract command line tool.
type Tesseract struct {
	Binary   string // defaults to "tesseract"
	Language string // tesseract -l value, defaults to "eng"
}

// Recognize writes img as PNG to a temp file and returns tesseract's stdout.
func (t Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	lang := t.Language
	if lang == "" {
		lang = "eng"
	}

	f, err := os.CreateTemp("", "noor-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("ocr: temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("ocr: encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("ocr: close temp: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, f.Name(), "stdout", "-l", lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("ocr: tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("ocr: tesseract: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Available reports whether the tesseract binary can be found.
func (t Tesseract) Available() error {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	if _, err := exec.LookPath(bin); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("ocr: %s not found in PATH", bin)
		}
		return fmt.Errorf("ocr: %w", err)
	}
	return nil
}
