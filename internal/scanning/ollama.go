package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ollamaName         = "ollama"
	defaultOllamaModel = "llava"
)

const ollamaSystemPrompt = "You read farm supply, feed store and veterinary receipts. Read every line carefully and answer only with the JSON you are asked for."

// Ollama implements Provider using a local Ollama server.
// Vision models that work for receipts:
//   - llava:1.6
//   - qwen2-vl:7b (good OCR)
//   - llama3.2-vision
type Ollama struct {
	baseURL      string
	model        string
	client       *http.Client
	preprocessor Preprocessor
}

// NewOllama creates an Ollama provider. An empty baseURL returns
// ErrProviderUnavailable.
func NewOllama(baseURL, modelName string, maxDimension int) (*Ollama, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("ollama: %w", ErrProviderUnavailable)
	}
	if modelName == "" {
		modelName = defaultOllamaModel
	}

	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			// vision models on local hardware are slow
			Timeout: 120 * time.Second,
		},
		preprocessor: Preprocessor{MaxDimension: maxDimension},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Name returns "ollama"
func (o *Ollama) Name() string {
	return ollamaName
}

// ReadText transcribes the receipt image
func (o *Ollama) ReadText(ctx context.Context, img Image) (*ExtractedText, error) {
	return readText(ctx, o.Analyze, img)
}

// Analyze sends the receipt image with prompt
func (o *Ollama) Analyze(ctx context.Context, img Image, prompt string) (string, error) {
	pngData, err := o.preprocessor.Prepare(img)
	if err != nil {
		return "", &RequestError{Provider: ollamaName, Err: fmt.Errorf("preparing image: %w", err)}
	}

	return o.chat(ctx, ollamaMessage{
		Role:    "user",
		Content: prompt,
		Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
	})
}

// Complete sends prompt followed by the receipt text
func (o *Ollama) Complete(ctx context.Context, prompt, input string) (string, error) {
	return o.chat(ctx, ollamaMessage{
		Role:    "user",
		Content: prompt + "\n\nReceipt text:\n" + input,
	})
}

func (o *Ollama) chat(ctx context.Context, msg ollamaMessage) (string, error) {
	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Format: "json",
		Messages: []ollamaMessage{
			{Role: "system", Content: ollamaSystemPrompt},
			msg,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &RequestError{Provider: ollamaName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &RequestError{
			Provider:   ollamaName,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &RequestError{Provider: ollamaName, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	text := strings.TrimSpace(chatResp.Message.Content)
	if text == "" {
		return "", &RequestError{Provider: ollamaName, StatusCode: resp.StatusCode, Err: errors.New("empty response")}
	}
	return text, nil
}

// Close is a no-op; the HTTP client holds no resources
func (o *Ollama) Close() error {
	return nil
}
