package expense

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus tracks how far structure parsing got for a receipt
type ReceiptStatus string

const (
	StatusPending   ReceiptStatus = "pending"
	StatusCompleted ReceiptStatus = "completed"
	StatusFailed    ReceiptStatus = "failed"
)

// UnknownVendor is used when no vendor can be read from a receipt
const UnknownVendor = "Unknown Vendor"

// LowConfidenceThreshold is the confidence below which an item is flagged
// for review when the caller does not supply its own threshold.
const LowConfidenceThreshold = 0.7

// StructuredReceipt is the receipt-level data: who, when and how much.
type StructuredReceipt struct {
	Vendor        string          `json:"vendor"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Date          time.Time       `json:"date"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	Confidence    float64         `json:"confidence"`
	Status        ReceiptStatus   `json:"status"`
}

// LineItem is a single priced entry on a receipt. FeedWeight is in pounds
// and is only meaningful for feed items.
type LineItem struct {
	Description   string           `json:"description"`
	Amount        decimal.Decimal  `json:"amount"`
	Quantity      float64          `json:"quantity,omitempty"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
	UnitOfMeasure string           `json:"unit_of_measure,omitempty"`
	Category      string           `json:"category"`
	Subcategory   string           `json:"subcategory,omitempty"`
	FeedType      string           `json:"feed_type,omitempty"`
	FeedWeight    float64          `json:"feed_weight,omitempty"`
	RawText       string           `json:"raw_text,omitempty"`
	Confidence    float64          `json:"confidence"`
}

// IsFeed reports whether the item is categorized as feed
func (i LineItem) IsFeed() bool {
	return i.Category == CategoryFeed
}

// FeedType is one named feed product on a receipt.
type FeedType struct {
	Name     string          `json:"name"`
	Weight   float64         `json:"weight"`
	Cost     decimal.Decimal `json:"cost"`
	Category string          `json:"category"`
}

// SupplyProjection is a rough estimate of daily use assuming the purchase
// lasts SupplyDays. It is a flat division, not a consumption forecast.
type SupplyProjection struct {
	SupplyDays      int             `json:"supply_days"`
	DailyFeedWeight float64         `json:"daily_feed_weight"`
	DailyFeedCost   decimal.Decimal `json:"daily_feed_cost"`
}

// FeedSummary aggregates the feed items of a receipt.
type FeedSummary struct {
	TotalFeedWeight   float64           `json:"total_feed_weight"`
	EstimatedFeedCost decimal.Decimal   `json:"estimated_feed_cost"`
	FeedTypes         []FeedType        `json:"feed_types"`
	Projection        *SupplyProjection `json:"efficiency_projection,omitempty"`
}

// ExpenseSuggestion is a draft expense grouping the items of one category.
type ExpenseSuggestion struct {
	Category     string          `json:"category"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Vendor       string          `json:"vendor"`
	Date         time.Time       `json:"date"`
	Subcategory  string          `json:"subcategory,omitempty"`
	TaxLine      string          `json:"tax_line,omitempty"`
	IsDeductible bool            `json:"is_deductible"`
	LineItems    []LineItem      `json:"line_items"`
	Notes        string          `json:"notes,omitempty"`
}

// Metrics describes how a result was produced.
type Metrics struct {
	TotalProcessingTimeMs    int64    `json:"total_processing_time_ms"`
	OCRConfidence            float64  `json:"ocr_confidence"`
	CategorizationConfidence float64  `json:"categorization_confidence"`
	ItemsRequiringReview     int      `json:"items_requiring_review"`
	ReviewThreshold          float64  `json:"review_threshold"`
	Source                   string   `json:"source,omitempty"`
	FallbackStages           []string `json:"fallback_stages,omitempty"`
}

// ProcessingResult is everything extracted from one receipt.
type ProcessingResult struct {
	ReceiptData       StructuredReceipt   `json:"receipt_data"`
	LineItems         []LineItem          `json:"line_items"`
	SuggestedExpenses []ExpenseSuggestion `json:"suggested_expenses"`
	FeedAnalysis      *FeedSummary        `json:"feed_analysis,omitempty"`
	Metrics           Metrics             `json:"metrics"`
	Warnings          []string            `json:"warnings"`
}

// ProcessingOptions controls which parts of the pipeline run.
type ProcessingOptions struct {
	ExtractFeedWeights   bool    `json:"extract_feed_weights"`
	CategorizeLineItems  bool    `json:"categorize_line_items"`
	ValidateWithDatabase bool    `json:"validate_with_database"`
	ConfidenceThreshold  float64 `json:"confidence_threshold"`
}

// DefaultOptions enables every stage with the standard review threshold
func DefaultOptions() ProcessingOptions {
	return ProcessingOptions{
		ExtractFeedWeights:   true,
		CategorizeLineItems:  true,
		ValidateWithDatabase: true,
		ConfidenceThreshold:  LowConfidenceThreshold,
	}
}

// ReviewThreshold returns the confidence threshold to flag items with,
// falling back to LowConfidenceThreshold when unset or out of range.
func (o ProcessingOptions) ReviewThreshold() float64 {
	if o.ConfidenceThreshold <= 0 || o.ConfidenceThreshold > 1 {
		return LowConfidenceThreshold
	}
	return o.ConfidenceThreshold
}

// ClampConfidence forces c into [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// SumAmounts adds up item amounts exactly
func SumAmounts(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}
