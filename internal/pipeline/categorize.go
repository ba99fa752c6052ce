package pipeline

import (
	"fmt"
	"strings"

	"github.com/zombor/livestock-receipts/internal/expense"
	"github.com/zombor/livestock-receipts/internal/heuristic"
	"github.com/zombor/livestock-receipts/internal/scanning"
)

// mergeClassifications applies a provider's classifications to items, by
// the index each answer names when those line up and by position
// otherwise. A count mismatch means the answers cannot be lined up with the
// items and is treated as a parse failure. With weights off the provider's
// feed weights are ignored.
func mergeClassifications(items []expense.LineItem, classes []classification, weights bool) ([]expense.LineItem, error) {
	if len(classes) != len(items) {
		return nil, fmt.Errorf("%w: %d classifications for %d items", scanning.ErrResponseParse, len(classes), len(items))
	}
	classes = alignClassifications(classes)

	out := make([]expense.LineItem, len(items))
	for i, item := range items {
		c := classes[i]
		item = assignCategory(item, c.Category, c.Subcategory)
		if w, ok := c.FeedWeight.positive(); ok && weights && item.IsFeed() && item.FeedWeight == 0 {
			item.FeedWeight = w
		}
		item = settleFeedFields(item)
		item.Confidence = scoreConfidence(item, c.Confidence)
		out[i] = item
	}
	return out, nil
}

// alignClassifications orders classes by their index when every one names
// a distinct index in range, and returns them unchanged otherwise.
func alignClassifications(classes []classification) []classification {
	aligned := make([]classification, len(classes))
	seen := make([]bool, len(classes))
	for _, c := range classes {
		i := int(c.Index.value)
		if !c.Index.valid || float64(i) != c.Index.value || i < 0 || i >= len(classes) || seen[i] {
			return classes
		}
		seen[i] = true
		aligned[i] = c
	}
	return aligned
}

// categorizedItem converts an item the provider extracted and categorized
// in one pass. The weight is dropped before scoring when weights is off.
func categorizedItem(r itemResponse, weights bool) (expense.LineItem, error) {
	item, err := r.toLineItem()
	if err != nil {
		return expense.LineItem{}, err
	}
	if !weights {
		item.FeedWeight = 0
	}
	item = assignCategory(item, r.Category, r.Subcategory)
	if item.IsFeed() {
		item.FeedType = strings.TrimSpace(r.FeedType)
		if strings.EqualFold(item.FeedType, "null") {
			item.FeedType = ""
		}
	}
	item = settleFeedFields(item)
	item.Confidence = scoreConfidence(item, r.Confidence)
	return item, nil
}

// assignCategory maps a provider's category to the registry, unknown ids
// and labels becoming other, and keeps the subcategory only when it belongs
// to the category.
func assignCategory(item expense.LineItem, category, subcategory string) expense.LineItem {
	c, _ := expense.LookupCategory(expense.NormalizeCategory(category))
	item.Category = c.ID
	item.Subcategory = c.DefaultSubcategory()
	for _, sub := range c.Subcategories {
		if strings.EqualFold(sub, strings.TrimSpace(subcategory)) {
			item.Subcategory = sub
			break
		}
	}
	return item
}

// settleFeedFields keeps feed details only on feed items.
func settleFeedFields(item expense.LineItem) expense.LineItem {
	if !item.IsFeed() {
		item.FeedType = ""
		item.FeedWeight = 0
		return item
	}
	if item.FeedType == "" {
		item.FeedType = item.Description
	}
	if item.FeedWeight > 0 && item.UnitOfMeasure == "" {
		item.UnitOfMeasure = "lb"
	}
	return item
}

// scoreConfidence uses the provider's confidence when it gave one and the
// keyword score otherwise.
func scoreConfidence(item expense.LineItem, reported number) float64 {
	if reported.valid {
		return expense.ClampConfidence(reported.value)
	}
	return heuristic.Confidence(item)
}

// withoutFeedWeights is used when feed weight extraction is switched off,
// before categorization so no confidence is scored on a dropped weight.
func withoutFeedWeights(items []expense.LineItem) []expense.LineItem {
	out := make([]expense.LineItem, len(items))
	for i, item := range items {
		item.FeedWeight = 0
		if item.UnitOfMeasure == "lb" {
			item.UnitOfMeasure = ""
		}
		out[i] = item
	}
	return out
}
