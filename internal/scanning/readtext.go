package scanning

import (
	"context"
	"strings"
)

// defaultTextConfidence is used when a provider returns bare text instead
// of the requested JSON envelope.
const defaultTextConfidence = 0.5

const transcribePrompt = `Transcribe every line of text on this receipt exactly as printed, top to bottom, one receipt line per output line. Keep prices, quantities and weights as written. Do not summarize or correct anything.

Return ONLY JSON in this format:
{"text": "<the full receipt text with \n between lines>", "confidence": <0.0 to 1.0, how legible the receipt is>}`

type analyzeFunc func(ctx context.Context, img Image, prompt string) (string, error)

// readText runs the transcription prompt through analyze. Models that
// ignore the JSON envelope still produce usable text, so a decode failure
// falls back to the raw output.
func readText(ctx context.Context, analyze analyzeFunc, img Image) (*ExtractedText, error) {
	raw, err := analyze(ctx, img, transcribePrompt)
	if err != nil {
		return nil, err
	}

	var out ExtractedText
	if err := DecodeJSON(raw, &out); err != nil {
		out = ExtractedText{
			Text:       strings.TrimSpace(strings.Trim(fencePattern.ReplaceAllString(raw, ""), "`\n ")),
			Confidence: defaultTextConfidence,
		}
	}

	out.Text = strings.TrimSpace(out.Text)
	if out.Text == "" {
		return nil, ErrNoText
	}
	if out.Confidence <= 0 || out.Confidence > 1 {
		out.Confidence = defaultTextConfidence
	}
	return &out, nil
}
