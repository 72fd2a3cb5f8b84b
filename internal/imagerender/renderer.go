package imagerender

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// Options controls preview rendering.
type Options struct {
	DPI     int
	Quality int
	Color   ColorMode
}

// RenderPageToJPEG renders page pageIndex (0-based) of the PDF held in data as a
// JPEG image. Returns JPEG bytes, width, height, error.
func RenderPageToJPEG(data []byte, pageIndex int, opts Options) ([]byte, int, int, error) {
	if opts.DPI <= 0 {
		opts.DPI = 72
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 80
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return nil, 0, 0, fmt.Errorf("page %d out of range (document has %d pages)", pageIndex+1, doc.NumPage())
	}

	img, err := doc.ImageDPI(pageIndex, float64(opts.DPI))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to render page %d: %w", pageIndex+1, err)
	}

	final := convert(img, opts.Color)
	bounds := final.Bounds()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, final, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	log.Debug().
		Int("page", pageIndex+1).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("jpeg_size", buf.Len()).
		Int("dpi", opts.DPI).
		Str("color", string(opts.Color)).
		Msg("rendered page preview")

	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// convert returns img in the requested color mode; RGB is returned as is.
func convert(img image.Image, mode ColorMode) image.Image {
	if mode != ColorGray {
		return img
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}
