package extract

import (
	"context"
	"errors"
	"fmt"

	"doctext-backend/internal/preprocess"
	"doctext-backend/internal/shared/util"
)

var (
	// ErrExtraction wraps every failure to turn file bytes into text.
	ErrExtraction = errors.New("extraction failed")
	// ErrUnsupportedFormat is returned for extensions with no extraction path.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Kind is the extraction path chosen for a file.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

var imageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"bmp":  {},
	"tif":  {},
	"tiff": {},
	"webp": {},
}

// KindFor dispatches on the case-insensitive extension of fileName.
func KindFor(fileName string) (Kind, error) {
	ext := util.Extension(fileName)
	if ext == "pdf" {
		return KindPDF, nil
	}
	if _, ok := imageExtensions[ext]; ok {
		return KindImage, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// Extractor turns uploaded documents into plain text.
type Extractor struct {
	OCR Engine
}

// New returns an Extractor that recognizes images with ocr.
func New(ocr Engine) *Extractor {
	return &Extractor{OCR: ocr}
}

// Extract returns the trimmed text of data, reading it as a PDF text layer
// or as an image to OCR depending on fileName's extension.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	kind, err := KindFor(fileName)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch kind {
	case KindPDF:
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("%w: pdf: %v", ErrExtraction, err)
		}
		return text, nil
	default:
		return e.extractImage(ctx, data)
	}
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, error) {
	if e.OCR == nil {
		return "", fmt.Errorf("%w: no ocr engine configured", ErrExtraction)
	}
	gray, err := preprocess.Decode(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	pngData, err := preprocess.EncodePNG(gray)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	text, err := e.OCR.Recognize(ctx, pngData)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: ocr %s: %v", ErrExtraction, e.OCR.Name(), err)
	}
	return trimText(text), nil
}
