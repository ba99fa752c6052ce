package heuristic

import (
	"math"
	"unicode/utf8"

	"github.com/zombor/livestock-receipts/internal/expense"
)

const (
	baseCategoryConfidence = 0.7
	feedWeightBonus        = 0.2
	descriptionBonus       = 0.1
	descriptiveLength      = 10
)

// Categorize assigns each item the first registry category with a keyword
// anywhere in its description or raw text, once that category's exclusions
// are removed, or other when none matches. Order and count are preserved
// and the input is not modified.
func Categorize(items []expense.LineItem) []expense.LineItem {
	categories := expense.Categories()
	out := make([]expense.LineItem, len(items))
	for i, item := range items {
		out[i] = categorizeItem(item, categories)
	}
	return out
}

func categorizeItem(item expense.LineItem, categories []expense.Category) expense.LineItem {
	text := Fold(item.Description + " " + item.RawText)

	category, _ := expense.LookupCategory(expense.CategoryOther)
	for _, c := range categories {
		if t := Without(text, c.Exclusions); matchesAny(t, c.Keywords) {
			category = c
			text = t
			break
		}
	}

	item.Category = category.ID
	item.Subcategory = category.DefaultSubcategory()
	for _, sub := range category.Subcategories {
		if ContainsPhrase(text, sub) {
			item.Subcategory = sub
			break
		}
	}

	if item.IsFeed() {
		item.FeedType = item.Description
	} else {
		item.FeedType = ""
		item.FeedWeight = 0
	}
	item.Confidence = Confidence(item)
	return item
}

// Confidence scores a keyword categorization: a base value, more for feed
// with a known weight and for descriptions long enough to be specific.
func Confidence(item expense.LineItem) float64 {
	c := baseCategoryConfidence
	if item.IsFeed() && item.FeedWeight > 0 {
		c += feedWeightBonus
	}
	if utf8.RuneCountInString(item.Description) > descriptiveLength {
		c += descriptionBonus
	}
	// rounded so 0.7+0.2+0.1 scores exactly 1
	return expense.ClampConfidence(math.Round(c*100) / 100)
}

func matchesAny(folded string, keywords []string) bool {
	for _, k := range keywords {
		if ContainsPhrase(folded, k) {
			return true
		}
	}
	return false
}
