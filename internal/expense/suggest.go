package expense

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BuildSuggestions groups items by category into one draft expense per
// category, in the order each category first appears. Each suggestion's
// amount is the exact sum of its items.
func BuildSuggestions(items []LineItem, vendor string, date time.Time) []ExpenseSuggestion {
	suggestions := make([]ExpenseSuggestion, 0)
	index := make(map[string]int)

	for _, item := range items {
		i, ok := index[item.Category]
		if !ok {
			index[item.Category] = len(suggestions)
			suggestions = append(suggestions, ExpenseSuggestion{
				Category: item.Category,
				Amount:   decimal.Zero,
				Vendor:   vendor,
				Date:     date,
			})
			i = len(suggestions) - 1
		}
		suggestions[i].LineItems = append(suggestions[i].LineItems, item)
		suggestions[i].Amount = suggestions[i].Amount.Add(item.Amount)
	}

	for i := range suggestions {
		finishSuggestion(&suggestions[i])
	}
	return suggestions
}

func finishSuggestion(s *ExpenseSuggestion) {
	category, ok := LookupCategory(s.Category)
	if !ok {
		category, _ = LookupCategory(CategoryOther)
	}

	if len(s.LineItems) == 1 {
		s.Description = s.LineItems[0].Description
	} else {
		s.Description = fmt.Sprintf("%s from %s (%d items)", category.Label, s.Vendor, len(s.LineItems))
	}

	s.IsDeductible = category.Deductible
	s.TaxLine = category.TaxLine
	s.Subcategory = dominantSubcategory(s.LineItems)
	if s.Subcategory == "" {
		s.Subcategory = category.DefaultSubcategory()
	}

	notes := []string{"Reported on " + category.TaxLine}
	if s.Category == CategoryFeed {
		var weight float64
		for _, item := range s.LineItems {
			weight += item.FeedWeight
		}
		if weight > 0 {
			notes = append(notes, "Total feed weight: "+strconv.FormatFloat(weight, 'f', -1, 64)+" lb")
		}
	}
	s.Notes = strings.Join(notes, "; ")
}

// dominantSubcategory returns the most frequent non-empty subcategory,
// breaking ties by first occurrence.
func dominantSubcategory(items []LineItem) string {
	counts := make(map[string]int)
	var order []string
	for _, item := range items {
		if item.Subcategory == "" {
			continue
		}
		if counts[item.Subcategory] == 0 {
			order = append(order, item.Subcategory)
		}
		counts[item.Subcategory]++
	}

	best := ""
	for _, sub := range order {
		if counts[sub] > counts[best] {
			best = sub
		}
	}
	return best
}
