package scanning

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/api/googleapi"
)

type mockGenerator struct {
	parts    []genai.Part
	response *genai.GenerateContentResponse
	err      error
}

func (m *mockGenerator) GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	m.parts = parts
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func textResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

var _ = Describe("Gemini", func() {
	var (
		generator *mockGenerator
		provider  *Gemini
	)

	BeforeEach(func() {
		generator = &mockGenerator{}
		provider = NewGeminiWithDeps(generator, 200)
	})

	It("is unavailable without an API key", func() {
		_, err := NewGemini("", "", 0)
		Expect(errors.Is(err, ErrProviderUnavailable)).To(BeTrue())
	})

	It("sends the preprocessed image as png followed by the prompt", func() {
		generator.response = textResponse(genai.Text(`{"vendor":`), genai.Text(` "Rural King"}`))

		out, err := provider.Analyze(context.Background(), Image{Data: testPNG(20, 10), ContentType: "image/png"}, "read it")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(`{"vendor": "Rural King"}`))

		Expect(generator.parts).To(HaveLen(2))
		blob, ok := generator.parts[0].(genai.Blob)
		Expect(ok).To(BeTrue())
		Expect(blob.MIMEType).To(Equal("image/png"))
		Expect(generator.parts[1]).To(Equal(genai.Text("read it")))
	})

	It("sends prompt and input as text parts", func() {
		generator.response = textResponse(genai.Text("[]"))

		out, err := provider.Complete(context.Background(), "list items", "HAY 12.50")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("[]"))
		Expect(generator.parts).To(Equal([]genai.Part{genai.Text("list items"), genai.Text("HAY 12.50")}))
	})

	It("reports the API status code", func() {
		generator.err = &googleapi.Error{Code: http.StatusTooManyRequests, Message: "quota"}

		_, err := provider.Complete(context.Background(), "list items", "HAY 12.50")
		var reqErr *RequestError
		Expect(errors.As(err, &reqErr)).To(BeTrue())
		Expect(reqErr.Provider).To(Equal("gemini"))
		Expect(reqErr.StatusCode).To(Equal(http.StatusTooManyRequests))
	})

	It("treats a response without candidates as a failed request", func() {
		generator.response = &genai.GenerateContentResponse{}

		_, err := provider.Complete(context.Background(), "list items", "HAY 12.50")
		var reqErr *RequestError
		Expect(errors.As(err, &reqErr)).To(BeTrue())
	})

	It("closes without a client", func() {
		Expect(provider.Close()).To(Succeed())
	})
})
