package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/livestock-receipts/internal/expense"
	"github.com/zombor/livestock-receipts/internal/heuristic"
	"github.com/zombor/livestock-receipts/internal/scanning"
)

const plainReceipt = `RURAL KING #88
2024-04-12
50# SHOW FEED 21.00
FLY SPRAY 9.99
Total: $33.07`

var _ = Describe("Orchestrator", func() {
	var (
		primary  *mockProvider
		fallback *mockProvider
		images   *mockImages
		vendors  *mockVendors
		now      time.Time
		opts     expense.ProcessingOptions
		ref      string

		// set to nil in a BeforeEach to leave a slot unconfigured
		primarySlot  scanning.Provider
		fallbackSlot scanning.Provider

		result *expense.ProcessingResult
		err    error
	)

	BeforeEach(func() {
		now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		primary = &mockProvider{name: "gemini"}
		fallback = &mockProvider{name: "ollama"}
		primarySlot = primary
		fallbackSlot = fallback
		images = &mockImages{images: map[string]scanning.Image{
			"photo.png": {Data: []byte{0x89, 'P', 'N', 'G'}, ContentType: "image/png", Ref: "photo.png"},
			"plain.txt": {Data: []byte(plainReceipt), ContentType: "text/plain", Ref: "plain.txt"},
			"empty.txt": {Data: []byte{}, ContentType: "text/plain", Ref: "empty.txt"},
		}}
		vendors = &mockVendors{}
		opts = expense.DefaultOptions()
		ref = "photo.png"
	})

	JustBeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		orchestrator := NewOrchestratorWithDeps(primarySlot, fallbackSlot, images, vendors, heuristic.NewParserWithClock(fixedClock{now: now}), fixedClock{now: now}, logger)
		result, err = orchestrator.ProcessReceipt(context.Background(), ProcessReceiptRequest{
			ImageRef: ref,
			UserID:   "user-1",
			Options:  opts,
		})
	})

	When("the primary provider reads the whole receipt", func() {
		BeforeEach(func() {
			primary.analysis = "```json\n" + `{
				"vendor": "Tractor Supply",
				"date": "2024-03-02",
				"total": "$81.98",
				"receiptNumber": 1042,
				"confidence": 0.93,
				"items": [
					{"description": "JACOBY'S RED TAG GROW/DEV", "amount": 57.00, "quantity": 2, "category": "feed", "subcategory": "Grower", "feedWeight": 100, "confidence": 0.95},
					{"description": "SHOW HALTER", "amount": 15.99, "category": "Supplies", "subcategory": "leashes"},
					{"description": "MYSTERY", "amount": 5.00, "category": "groceries", "confidence": 1.4},
					{"description": "COUPON", "amount": -2.00, "category": "other"}
				]
			}` + "\n```"
		})

		It("returns its result without calling the fallback", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(primary.calls).To(Equal([]string{"analyze"}))
			Expect(fallback.calls).To(BeEmpty())
			Expect(result.Metrics.Source).To(Equal("gemini"))
		})

		It("keeps the receipt details", func() {
			Expect(result.ReceiptData.Vendor).To(Equal("Tractor Supply"))
			Expect(result.ReceiptData.TotalAmount.Equal(decimal.RequireFromString("81.98"))).To(BeTrue())
			Expect(result.ReceiptData.Date).To(Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
			Expect(result.ReceiptData.ReceiptNumber).To(Equal("1042"))
			Expect(result.Metrics.OCRConfidence).To(Equal(0.93))
		})

		It("drops items with a negative amount", func() {
			Expect(result.LineItems).To(HaveLen(3))
		})

		It("validates categories against the registry", func() {
			Expect(result.LineItems[0].Category).To(Equal(expense.CategoryFeed))
			Expect(result.LineItems[0].Subcategory).To(Equal("grower"))
			Expect(result.LineItems[0].FeedType).To(Equal("JACOBY'S RED TAG GROW/DEV"))
			Expect(result.LineItems[1].Category).To(Equal(expense.CategorySupplies))
			Expect(result.LineItems[1].Subcategory).To(Equal("grooming"))
			Expect(result.LineItems[2].Category).To(Equal(expense.CategoryOther))
		})

		It("clamps reported confidence and scores missing confidence", func() {
			Expect(result.LineItems[0].Confidence).To(Equal(0.95))
			Expect(result.LineItems[1].Confidence).To(Equal(0.8))
			Expect(result.LineItems[2].Confidence).To(Equal(1.0))
		})

		It("builds suggestions and feed analysis", func() {
			Expect(result.SuggestedExpenses).To(HaveLen(3))
			Expect(result.FeedAnalysis).NotTo(BeNil())
			Expect(result.FeedAnalysis.TotalFeedWeight).To(Equal(100.0))
			Expect(result.Warnings).To(Equal([]string{"1 item could not be categorized"}))
		})
	})

	When("the primary provider writes numbers as text", func() {
		BeforeEach(func() {
			primary.analysis = `{
				"vendor": "Tractor Supply",
				"total": 49.98,
				"items": [
					{"description": "SHOW CHOW 50 LB", "amount": 32.99, "quantity": "2", "category": "feed", "feedWeight": "50 lb", "confidence": 0.9},
					{"description": "SHOW COMB", "amount": "16.99", "quantity": "one", "category": "supplies", "confidence": "0.85"}
				]
			}`
			fallback.textErr = scanning.ErrNoText
		})

		It("keeps every item and drops only the unreadable fields", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Metrics.Source).To(Equal("gemini"))
			Expect(result.LineItems).To(HaveLen(2))
			Expect(result.LineItems[0].Quantity).To(Equal(2.0))
			Expect(result.LineItems[0].FeedWeight).To(Equal(50.0))
			Expect(result.LineItems[1].Quantity).To(Equal(1.0))
			Expect(result.LineItems[1].Confidence).To(Equal(0.85))
		})
	})

	When("the primary provider finds no items", func() {
		BeforeEach(func() {
			primary.analysis = `{"vendor": "Rural King", "total": 33.07, "items": []}`
			fallback.text = &scanning.ExtractedText{Text: plainReceipt, Confidence: 0.88}
			fallback.structure = `Here you go: {"vendor": "Rural King", "date": "04/12/2024", "total": 33.07, "receiptNumber": null, "confidence": 0.9}`
			fallback.items = `[{"description": "50# SHOW FEED", "amount": 21.00, "feedWeight": 50}, {"description": "FLY SPRAY", "amount": "9.99"}]`
			fallback.classes = `{"items": [{"index": 0, "category": "feed", "subcategory": "show feed", "confidence": 0.9}, {"index": 1, "category": "supplies", "confidence": 0.85}]}`
		})

		It("runs every stage on the fallback provider", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(fallback.calls).To(Equal([]string{"read_text", "structure", "line_items", "categorize"}))
			Expect(result.Metrics.Source).To(Equal("ollama"))
			Expect(result.Metrics.FallbackStages).To(BeEmpty())
			Expect(result.Metrics.OCRConfidence).To(Equal(0.88))
		})

		It("merges the classifications by position", func() {
			Expect(result.LineItems).To(HaveLen(2))
			Expect(result.LineItems[0].Category).To(Equal(expense.CategoryFeed))
			Expect(result.LineItems[0].Subcategory).To(Equal("show feed"))
			Expect(result.LineItems[0].FeedWeight).To(Equal(50.0))
			Expect(result.LineItems[1].Category).To(Equal(expense.CategorySupplies))
			Expect(result.LineItems[1].Confidence).To(Equal(0.85))
		})

		It("uses the structured details", func() {
			Expect(result.ReceiptData.Date).To(Equal(time.Date(2024, 4, 12, 0, 0, 0, 0, time.UTC)))
			Expect(result.ReceiptData.TotalAmount.Equal(decimal.RequireFromString("33.07"))).To(BeTrue())
		})
	})

	When("the fallback provider's classification does not line up", func() {
		BeforeEach(func() {
			primarySlot = nil
			fallback.text = &scanning.ExtractedText{Text: plainReceipt, Confidence: 0.88}
			fallback.structure = `{"vendor": "Rural King", "total": 33.07}`
			fallback.items = `{"items": [{"description": "50# SHOW FEED", "amount": 21.00, "feedWeight": 50}, {"description": "FLY SPRAY", "amount": 9.99}]}`
			fallback.classes = `{"items": [{"index": 0, "category": "feed"}]}`
		})

		It("categorizes with keywords instead", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Metrics.FallbackStages).To(Equal([]string{StageCategorize}))
			Expect(result.LineItems[0].Category).To(Equal(expense.CategoryFeed))
			Expect(result.LineItems[0].Confidence).To(Equal(1.0))
			Expect(result.LineItems[1].Category).To(Equal(expense.CategorySupplies))
		})
	})

	When("the fallback provider finds no items", func() {
		BeforeEach(func() {
			primarySlot = nil
			fallback.text = &scanning.ExtractedText{Text: plainReceipt, Confidence: 0.7}
			fallback.structureErr = &scanning.RequestError{Provider: "ollama", StatusCode: 500, Err: errors.New("boom")}
			fallback.items = `{"items": []}`
			fallback.classes = `not json`
		})

		It("falls back to the heuristic parser for each failed stage", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Metrics.FallbackStages).To(Equal([]string{StageStructure, StageLineItems, StageCategorize}))
			Expect(result.Metrics.Source).To(Equal("heuristic"))
			Expect(result.ReceiptData.Vendor).To(Equal("Rural King"))
			Expect(result.LineItems).To(HaveLen(2))
			Expect(result.LineItems[0].FeedWeight).To(Equal(50.0))
		})
	})

	When("no provider is configured and the receipt is plain text", func() {
		BeforeEach(func() {
			primarySlot = nil
			fallbackSlot = nil
			ref = "plain.txt"
		})

		It("parses it with the heuristic parser", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Metrics.Source).To(Equal("heuristic"))
			Expect(result.ReceiptData.Vendor).To(Equal("Rural King"))
			Expect(result.ReceiptData.TotalAmount.Equal(decimal.RequireFromString("33.07"))).To(BeTrue())
			Expect(result.LineItems).To(HaveLen(2))
			Expect(result.LineItems[0].Category).To(Equal(expense.CategoryFeed))
			Expect(result.LineItems[1].Category).To(Equal(expense.CategorySupplies))
			Expect(result.Metrics.OCRConfidence).To(Equal(1.0))
		})
	})

	When("no provider is configured and the receipt text is empty", func() {
		BeforeEach(func() {
			primarySlot = nil
			fallbackSlot = nil
			ref = "empty.txt"
		})

		It("returns an empty completed result with defaults", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.LineItems).To(BeEmpty())
			Expect(result.Warnings).To(BeEmpty())
			Expect(result.SuggestedExpenses).To(BeEmpty())
			Expect(result.ReceiptData.Status).To(Equal(expense.StatusCompleted))
			Expect(result.ReceiptData.Vendor).To(Equal(expense.UnknownVendor))
			Expect(result.ReceiptData.TotalAmount.IsZero()).To(BeTrue())
			Expect(result.ReceiptData.Date).To(Equal(now))
		})
	})

	When("no source can read the image", func() {
		BeforeEach(func() {
			primary.analyzeErr = &scanning.RequestError{Provider: "gemini", StatusCode: 429, Err: errors.New("quota")}
			fallback.textErr = &scanning.RequestError{Provider: "ollama", Err: errors.New("connection refused")}
		})

		It("returns an exhausted error", func() {
			Expect(result).To(BeNil())
			Expect(errors.Is(err, ErrAllProvidersExhausted)).To(BeTrue())

			var exhausted *ExhaustedError
			Expect(errors.As(err, &exhausted)).To(BeTrue())
			Expect(exhausted.Failures).To(HaveLen(3))
			Expect(err.Error()).To(ContainSubstring("enter the expense manually"))
			Expect(err.Error()).To(ContainSubstring("gemini, ollama, heuristic"))
		})

		It("exposes each stage failure", func() {
			Expect(errors.Is(err, scanning.ErrNoText)).To(BeTrue())
			var reqErr *scanning.RequestError
			Expect(errors.As(err, &reqErr)).To(BeTrue())
		})
	})

	When("no provider is configured for an image", func() {
		BeforeEach(func() {
			primarySlot = nil
			fallbackSlot = nil
		})

		It("returns an exhausted error naming only the heuristic parser", func() {
			Expect(errors.Is(err, ErrAllProvidersExhausted)).To(BeTrue())
			Expect(errors.Is(err, scanning.ErrProviderUnavailable)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("(tried heuristic)"))
		})
	})

	When("the primary provider read the header but no text source works", func() {
		BeforeEach(func() {
			primary.analysis = `{"vendor": "Valley Vet Supply", "date": "2024-02-10", "total": 120.50, "items": []}`
			fallbackSlot = nil
		})

		It("returns the partial result", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Metrics.Source).To(Equal("gemini"))
			Expect(result.ReceiptData.Vendor).To(Equal("Valley Vet Supply"))
			Expect(result.ReceiptData.TotalAmount.Equal(decimal.RequireFromString("120.50"))).To(BeTrue())
			Expect(result.LineItems).To(BeEmpty())
		})
	})

	When("the image cannot be loaded", func() {
		BeforeEach(func() {
			ref = "missing.png"
		})

		It("returns a load error", func() {
			Expect(err).To(MatchError(ContainSubstring("loading receipt image")))
			Expect(errors.Is(err, ErrAllProvidersExhausted)).To(BeFalse())
			Expect(primary.calls).To(BeEmpty())
		})
	})

	Describe("processing options", func() {
		BeforeEach(func() {
			primarySlot = nil
			fallbackSlot = nil
			ref = "plain.txt"
		})

		When("feed weight extraction is off", func() {
			BeforeEach(func() {
				opts.ExtractFeedWeights = false
			})

			It("omits the feed analysis and weights", func() {
				Expect(result.FeedAnalysis).To(BeNil())
				Expect(result.LineItems[0].FeedWeight).To(BeZero())
				Expect(result.LineItems[0].Category).To(Equal(expense.CategoryFeed))
			})

			It("scores confidence without the weight bonus", func() {
				Expect(result.LineItems[0].Confidence).To(Equal(0.8))
			})
		})

		When("categorization is off", func() {
			BeforeEach(func() {
				opts.CategorizeLineItems = false
			})

			It("leaves every item in other", func() {
				for _, item := range result.LineItems {
					Expect(item.Category).To(Equal(expense.CategoryOther))
					Expect(item.FeedWeight).To(BeZero())
				}
				Expect(result.SuggestedExpenses).To(HaveLen(1))
			})
		})

		When("a custom review threshold is set", func() {
			BeforeEach(func() {
				opts.ConfidenceThreshold = 0.95
			})

			It("flags items below it", func() {
				Expect(result.Metrics.ReviewThreshold).To(Equal(0.95))
				Expect(result.Metrics.ItemsRequiringReview).To(Equal(1))
			})
		})

		When("the vendor is already known", func() {
			BeforeEach(func() {
				vendors.names = []string{"Rural King Supply"}
			})

			It("uses the known name", func() {
				Expect(result.ReceiptData.Vendor).To(Equal("Rural King Supply"))
			})
		})

		When("database validation is off", func() {
			BeforeEach(func() {
				opts.ValidateWithDatabase = false
				vendors.names = []string{"Rural King Supply"}
			})

			It("keeps the extracted name", func() {
				Expect(result.ReceiptData.Vendor).To(Equal("Rural King"))
			})
		})

		When("the vendor directory fails", func() {
			BeforeEach(func() {
				vendors.err = errors.New("db closed")
			})

			It("keeps the extracted name", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result.ReceiptData.Vendor).To(Equal("Rural King"))
			})
		})
	})
})
