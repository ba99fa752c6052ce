package scanning

import "context"

// Image is a receipt file as uploaded: raw bytes, the declared MIME type and
// the reference it was loaded from.
type Image struct {
	Data        []byte
	ContentType string
	Ref         string
}

// ExtractedText is the plain text read off a receipt image.
type ExtractedText struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Provider is an external model service that can read receipts. A nil
// Provider means the service is not configured.
type Provider interface {
	// Name identifies the provider in logs and metrics
	Name() string
	// ReadText transcribes the visible text of a receipt image
	ReadText(ctx context.Context, img Image) (*ExtractedText, error)
	// Analyze sends the image together with prompt and returns the raw
	// model output, expected to contain JSON
	Analyze(ctx context.Context, img Image, prompt string) (string, error)
	// Complete sends prompt with input text and returns the raw model
	// output, expected to contain JSON
	Complete(ctx context.Context, prompt, input string) (string, error)
	// Close releases the provider's client resources
	Close() error
}
