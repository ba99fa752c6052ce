package expense

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrItemIndex is returned when an edit names a line item that does not exist
	ErrItemIndex = errors.New("line item index out of range")
	// ErrUnknownCategory is returned when an edit names a category outside the registry
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownSubcategory is returned when a subcategory does not belong to its category
	ErrUnknownSubcategory = errors.New("unknown subcategory")
	// ErrNotFeed is returned when a feed weight is set on a non-feed item
	ErrNotFeed = errors.New("line item is not feed")
	// ErrInvalidWeight is returned for negative or non-numeric feed weights
	ErrInvalidWeight = errors.New("invalid feed weight")
)

// Clone returns a copy of r that shares no slices with it.
func (r ProcessingResult) Clone() ProcessingResult {
	out := r
	out.LineItems = cloneItems(r.LineItems)
	out.Warnings = append([]string(nil), r.Warnings...)
	out.Metrics.FallbackStages = append([]string(nil), r.Metrics.FallbackStages...)
	if r.FeedAnalysis != nil {
		feed := *r.FeedAnalysis
		feed.FeedTypes = append([]FeedType(nil), r.FeedAnalysis.FeedTypes...)
		out.FeedAnalysis = &feed
	}
	out.SuggestedExpenses = make([]ExpenseSuggestion, len(r.SuggestedExpenses))
	for i, s := range r.SuggestedExpenses {
		s.LineItems = cloneItems(s.LineItems)
		out.SuggestedExpenses[i] = s
	}
	return out
}

// WithItemCategory returns a copy of r with one item moved to category.
// An empty subcategory keeps the item's current one when it still fits,
// otherwise the category default is used.
func (r ProcessingResult) WithItemCategory(index int, category, subcategory string) (ProcessingResult, error) {
	if index < 0 || index >= len(r.LineItems) {
		return ProcessingResult{}, fmt.Errorf("%w: %d", ErrItemIndex, index)
	}
	out := r.Clone()
	if err := recategorize(&out.LineItems[index], category, subcategory); err != nil {
		return ProcessingResult{}, err
	}
	out.derive()
	return out, nil
}

// WithBulkCategory returns a copy of r with every item currently in from
// moved to category.
func (r ProcessingResult) WithBulkCategory(from, category, subcategory string) (ProcessingResult, error) {
	if !IsCategory(from) {
		return ProcessingResult{}, fmt.Errorf("%w: %s", ErrUnknownCategory, from)
	}
	out := r.Clone()
	for i := range out.LineItems {
		if out.LineItems[i].Category != from {
			continue
		}
		if err := recategorize(&out.LineItems[i], category, subcategory); err != nil {
			return ProcessingResult{}, err
		}
	}
	out.derive()
	return out, nil
}

// WithFeedWeight returns a copy of r with the feed weight of one feed item
// replaced.
func (r ProcessingResult) WithFeedWeight(index int, weight float64) (ProcessingResult, error) {
	if index < 0 || index >= len(r.LineItems) {
		return ProcessingResult{}, fmt.Errorf("%w: %d", ErrItemIndex, index)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return ProcessingResult{}, fmt.Errorf("%w: %v", ErrInvalidWeight, weight)
	}
	if !r.LineItems[index].IsFeed() {
		return ProcessingResult{}, fmt.Errorf("%w: item %d is %s", ErrNotFeed, index, r.LineItems[index].Category)
	}

	out := r.Clone()
	item := &out.LineItems[index]
	item.FeedWeight = weight
	if item.UnitOfMeasure == "" {
		item.UnitOfMeasure = "lb"
	}
	item.Confidence = 1
	out.derive()
	return out, nil
}

func recategorize(item *LineItem, category, subcategory string) error {
	c, ok := LookupCategory(category)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	switch {
	case subcategory != "" && !c.HasSubcategory(subcategory):
		return fmt.Errorf("%w: %s in %s", ErrUnknownSubcategory, subcategory, category)
	case subcategory == "" && c.HasSubcategory(item.Subcategory):
		subcategory = item.Subcategory
	case subcategory == "":
		subcategory = c.DefaultSubcategory()
	}

	item.Category = c.ID
	item.Subcategory = subcategory
	if c.ID == CategoryFeed {
		if item.FeedType == "" {
			item.FeedType = item.Description
		}
	} else {
		item.FeedType = ""
		item.FeedWeight = 0
	}
	// A category picked by the user is as certain as it gets.
	item.Confidence = 1
	return nil
}
