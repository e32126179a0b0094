package extract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// GosseractEngine recognizes text in-process through libtesseract.
type GosseractEngine struct {
	Languages      []string
	TessdataPrefix string

	clientFactory func() *gosseract.Client
}

// NewGosseractEngine constructs a libtesseract-backed engine.
func NewGosseractEngine(languages []string, tessdataPrefix string) *GosseractEngine {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	return &GosseractEngine{
		Languages:      languages,
		TessdataPrefix: tessdataPrefix,
		clientFactory:  gosseract.NewClient,
	}
}

func (e *GosseractEngine) Name() string { return "gosseract" }

// Recognize runs OCR on png with a fresh client per call.
func (e *GosseractEngine) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if e.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(e.TessdataPrefix); err != nil {
			return "", fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(e.Languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page seg mode: %w", err)
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
