package expense

// NewResult assembles a result from a parsed receipt and its categorized
// items: suggestions, feed analysis (when enabled), warnings and the item
// based metrics. Timing and OCR confidence are left to the caller.
func NewResult(receipt StructuredReceipt, items []LineItem, opts ProcessingOptions) ProcessingResult {
	r := ProcessingResult{
		ReceiptData: receipt,
		LineItems:   cloneItems(items),
		Metrics: Metrics{
			ReviewThreshold: opts.ReviewThreshold(),
		},
	}
	if opts.ExtractFeedWeights {
		r.FeedAnalysis = &FeedSummary{}
	}
	r.derive()
	return r
}

// derive recomputes everything that is a function of the line items.
func (r *ProcessingResult) derive() {
	r.SuggestedExpenses = BuildSuggestions(r.LineItems, r.ReceiptData.Vendor, r.ReceiptData.Date)
	if r.FeedAnalysis != nil {
		summary := AnalyzeFeed(r.LineItems)
		r.FeedAnalysis = &summary
	}

	r.Warnings = BuildWarnings(r.LineItems)
	if w := ReconcileWarning(r.ReceiptData.TotalAmount, r.LineItems); w != "" {
		r.Warnings = append(r.Warnings, w)
	}

	threshold := r.Metrics.ReviewThreshold
	if threshold <= 0 {
		threshold = LowConfidenceThreshold
	}
	r.Metrics.CategorizationConfidence = averageConfidence(r.LineItems)
	r.Metrics.ItemsRequiringReview = 0
	for _, item := range r.LineItems {
		if item.Confidence < threshold || item.Category == CategoryOther {
			r.Metrics.ItemsRequiringReview++
		}
	}
}

func averageConfidence(items []LineItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range items {
		sum += item.Confidence
	}
	return ClampConfidence(sum / float64(len(items)))
}

// Uncategorized resets every item to the other category, used when the
// caller switches categorization off.
func Uncategorized(items []LineItem) []LineItem {
	out := cloneItems(items)
	other, _ := LookupCategory(CategoryOther)
	for i := range out {
		out[i].Category = other.ID
		out[i].Subcategory = other.DefaultSubcategory()
		out[i].FeedType = ""
		out[i].FeedWeight = 0
	}
	return out
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
