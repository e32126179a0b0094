// Package preprocess prepares scanned images for OCR.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// ContrastFactor scales each pixel's distance from the mean intensity.
	ContrastFactor = 2.0
	// Threshold is the binarization cut: values below map to black.
	Threshold = 140
)

// Decode decodes image bytes and runs Preprocess on the result.
func Decode(data []byte) (*image.Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return Preprocess(img), nil
}

// Preprocess converts img to luma, doubles its contrast around the mean
// intensity and binarizes it at Threshold. Every output pixel is 0 or 255.
func Preprocess(img image.Image) *image.Gray {
	gray := Grayscale(img)
	Contrast(gray, ContrastFactor)
	Binarize(gray, Threshold)
	return gray
}

// Grayscale returns a single-channel copy of img with its origin at (0,0).
// Luma is taken from the straight (non-premultiplied) RGB values and alpha
// is dropped, so transparent pixels keep their colour.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.Gray); ok {
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
		return gray
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(0, y-b.Min.Y):]
		for x := b.Min.X; x < b.Max.X; x++ {
			row[x-b.Min.X] = luma(img.At(x, y))
		}
	}
	return gray
}

// luma uses the ITU-R 601-2 weights on 8-bit straight RGB.
func luma(c color.Color) uint8 {
	var r, g, b uint32
	switch px := c.(type) {
	case color.NRGBA64:
		r, g, b = uint32(px.R>>8), uint32(px.G>>8), uint32(px.B>>8)
	default:
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		r, g, b = uint32(n.R), uint32(n.G), uint32(n.B)
	}
	return uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
}

// Contrast adjusts gray in place: out = mean + factor*(px-mean), clamped.
// mean is the average intensity rounded half up.
func Contrast(gray *image.Gray, factor float64) {
	if len(gray.Pix) == 0 {
		return
	}
	mean := float64(int(meanIntensity(gray) + 0.5))
	var lut [256]uint8
	for v := range lut {
		lut[v] = clamp(mean + factor*(float64(v)-mean))
	}
	applyLUT(gray, lut)
}

// Binarize maps pixels below threshold to 0 and the rest to 255.
func Binarize(gray *image.Gray, threshold uint8) {
	var lut [256]uint8
	for v := range lut {
		if uint8(v) >= threshold {
			lut[v] = 255
		}
	}
	applyLUT(gray, lut)
}

// EncodePNG serializes gray for OCR engines that read image files.
func EncodePNG(gray *image.Gray) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func meanIntensity(gray *image.Gray) float64 {
	b := gray.Bounds()
	var sum, n uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y):gray.PixOffset(b.Max.X, y)]
		for _, v := range row {
			sum += uint64(v)
		}
		n += uint64(len(row))
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func applyLUT(gray *image.Gray, lut [256]uint8) {
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y):gray.PixOffset(b.Max.X, y)]
		for i, v := range row {
			row[i] = lut[v]
		}
	}
}

func clamp(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
