package scanning

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// DefaultMaxDimension bounds the longest side of an image sent to a model.
const DefaultMaxDimension = 2048

// Preprocessor turns an uploaded receipt (photo, HEIC or PDF) into a PNG
// tuned for reading text: scaled down to MaxDimension, grayscale and
// lightly sharpened.
type Preprocessor struct {
	MaxDimension int
}

// Prepare decodes img and returns PNG bytes ready for a vision model.
func (p Preprocessor) Prepare(img Image) ([]byte, error) {
	decoded, err := decodeImage(img.Data, normalizeMimeType(img.ContentType))
	if err != nil {
		return nil, err
	}

	maxDimension := p.MaxDimension
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	bounds := decoded.Bounds()
	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		decoded = imaging.Fit(decoded, maxDimension, maxDimension, imaging.Lanczos)
	}

	processed := imaging.Grayscale(decoded)
	processed = imaging.AdjustContrast(processed, 20)
	processed = imaging.Sharpen(processed, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte, mimeType string) (image.Image, error) {
	switch {
	case mimeType == "application/pdf":
		return pdfFirstPage(data)
	case strings.HasPrefix(mimeType, "text/"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
		return img, nil
	}

	// Phone photos are usually stored sideways with an EXIF orientation tag.
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		if _, _, cfgErr := image.DecodeConfig(bytes.NewReader(data)); cfgErr == image.ErrFormat {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// pdfFirstPage renders the first page; receipts are single page.
func pdfFirstPage(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// isHEICFormat checks for an ftyp box with a HEIC brand at offset 4.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

func normalizeMimeType(contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i != -1 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" {
		return "image/jpeg"
	}
	return mimeType
}
