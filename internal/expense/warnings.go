package expense

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BuildWarnings inspects the final items and returns human readable
// warnings in a fixed order: low confidence, uncategorized, feed without
// weight. Conditions with no matching items produce nothing.
func BuildWarnings(items []LineItem) []string {
	warnings := make([]string, 0)

	var lowConfidence, uncategorized, missingWeight int
	for _, item := range items {
		if item.Confidence < LowConfidenceThreshold {
			lowConfidence++
		}
		if item.Category == CategoryOther {
			uncategorized++
		}
		if item.IsFeed() && item.FeedWeight <= 0 {
			missingWeight++
		}
	}

	if lowConfidence > 0 {
		warnings = append(warnings, fmt.Sprintf("%d %s low confidence and should be reviewed", lowConfidence, itemsHave(lowConfidence)))
	}
	if uncategorized > 0 {
		warnings = append(warnings, fmt.Sprintf("%d %s could not be categorized", uncategorized, plural(uncategorized, "item", "items")))
	}
	if missingWeight > 0 {
		warnings = append(warnings, fmt.Sprintf("%d feed %s missing a feed weight", missingWeight, itemsAre(missingWeight)))
	}
	return warnings
}

// ReconcileWarning returns a warning when the line items add up to more
// than the receipt total, or "" when there is nothing to report. Items
// below the total are expected (tax, fees) and a zero total is treated as
// unknown.
func ReconcileWarning(total decimal.Decimal, items []LineItem) string {
	if len(items) == 0 || !total.IsPositive() {
		return ""
	}
	sum := SumAmounts(items)
	if !sum.GreaterThan(total) {
		return ""
	}
	return fmt.Sprintf("Line items add up to $%s, more than the receipt total of $%s", sum.StringFixed(2), total.StringFixed(2))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func itemsHave(n int) string {
	return plural(n, "item has", "items have")
}

func itemsAre(n int) string {
	return plural(n, "item is", "items are")
}
