package expense

import "github.com/shopspring/decimal"

// ProjectionDays is the flat supply window used for the feed projection.
const ProjectionDays = 30

// AnalyzeFeed totals the feed items in items. It always returns a usable
// summary: with no feed items every field is zero and there is no
// projection.
//
// The projection divides the purchase evenly over ProjectionDays. It is a
// rough estimate for display, not a forecast based on herd consumption.
func AnalyzeFeed(items []LineItem) FeedSummary {
	summary := FeedSummary{
		EstimatedFeedCost: decimal.Zero,
		FeedTypes:         []FeedType{},
	}

	index := make(map[string]int)
	for _, item := range items {
		if !item.IsFeed() {
			continue
		}
		name := item.FeedType
		if name == "" {
			name = item.Description
		}
		i, ok := index[name]
		if !ok {
			index[name] = len(summary.FeedTypes)
			summary.FeedTypes = append(summary.FeedTypes, FeedType{
				Name:     name,
				Cost:     decimal.Zero,
				Category: item.Subcategory,
			})
			i = len(summary.FeedTypes) - 1
		}
		summary.FeedTypes[i].Weight += item.FeedWeight
		summary.FeedTypes[i].Cost = summary.FeedTypes[i].Cost.Add(item.Amount)
		summary.EstimatedFeedCost = summary.EstimatedFeedCost.Add(item.Amount)
	}

	// Summed from the grouped weights so the total matches them exactly.
	for _, ft := range summary.FeedTypes {
		summary.TotalFeedWeight += ft.Weight
	}

	if summary.TotalFeedWeight > 0 {
		summary.Projection = &SupplyProjection{
			SupplyDays:      ProjectionDays,
			DailyFeedWeight: summary.TotalFeedWeight / ProjectionDays,
			DailyFeedCost:   summary.EstimatedFeedCost.Div(decimal.NewFromInt(ProjectionDays)).Round(2),
		}
	}

	return summary
}
