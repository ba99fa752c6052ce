package heuristic

import (
	"strings"

	"github.com/zombor/livestock-receipts/internal/scanning"
)

// ReadText is the text source used when no provider can read an image.
// Receipts uploaded as plain text are returned as is; anything else has no
// text without a vision model.
func ReadText(img scanning.Image) (*scanning.ExtractedText, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(img.ContentType)), "text/") {
		return nil, scanning.ErrNoText
	}
	return &scanning.ExtractedText{Text: string(img.Data), Confidence: 1.0}, nil
}
