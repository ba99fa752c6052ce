package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	geminiName         = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
	geminiTimeout      = 60 * time.Second
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Gemini implements Provider using Google Gemini
type Gemini struct {
	client       *genai.Client
	model        contentGenerator
	preprocessor Preprocessor
	timeout      time.Duration
}

// NewGemini creates a Gemini provider. An empty apiKey returns
// ErrProviderUnavailable.
func NewGemini(apiKey, modelName string, maxDimension int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrProviderUnavailable)
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)

	g := NewGeminiWithDeps(model, maxDimension)
	g.client = client
	return g, nil
}

// NewGeminiWithDeps creates a Gemini provider around an existing model
func NewGeminiWithDeps(model contentGenerator, maxDimension int) *Gemini {
	return &Gemini{
		model:        model,
		preprocessor: Preprocessor{MaxDimension: maxDimension},
		timeout:      geminiTimeout,
	}
}

// Name returns "gemini"
func (g *Gemini) Name() string {
	return geminiName
}

// ReadText transcribes the receipt image
func (g *Gemini) ReadText(ctx context.Context, img Image) (*ExtractedText, error) {
	return readText(ctx, g.Analyze, img)
}

// Analyze sends the receipt image with prompt
func (g *Gemini) Analyze(ctx context.Context, img Image, prompt string) (string, error) {
	pngData, err := g.preprocessor.Prepare(img)
	if err != nil {
		return "", &RequestError{Provider: geminiName, Err: fmt.Errorf("preparing image: %w", err)}
	}

	// genai.ImageData wants the format suffix, not the MIME type
	return g.generate(ctx, genai.ImageData("png", pngData), genai.Text(prompt))
}

// Complete sends prompt followed by the receipt text
func (g *Gemini) Complete(ctx context.Context, prompt, input string) (string, error) {
	return g.generate(ctx, genai.Text(prompt), genai.Text(input))
}

func (g *Gemini) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", &RequestError{Provider: geminiName, StatusCode: googleStatus(err), Err: err}
	}

	text := responseText(resp)
	if text == "" {
		return "", &RequestError{Provider: geminiName, Err: errors.New("empty response")}
	}
	return text, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

func googleStatus(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
