package heuristic

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/livestock-receipts/internal/expense"
)

const (
	baseStructureConfidence = 0.2
	fieldConfidence         = 0.15
	maxStructureConfidence  = 0.8

	// itemConfidence is what a regex-parsed line starts with before
	// categorization scores it.
	itemConfidence = 0.6

	poundsPerKilogram = 2.20462
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type realTimeSource struct{}

func (realTimeSource) Now() time.Time { return time.Now() }

// Parser reads receipt structure and line items out of plain text with
// regular expressions. It is the last resort when no model provider can
// do it and never fails: missing fields get defaults.
type Parser struct {
	clock TimeSource
}

// NewParser creates a Parser using the wall clock for undated receipts
func NewParser() *Parser {
	return NewParserWithClock(realTimeSource{})
}

// NewParserWithClock creates a Parser with a custom clock
func NewParserWithClock(clock TimeSource) *Parser {
	return &Parser{clock: clock}
}

// ParseStructure extracts vendor, total, date and receipt number from text.
func (p *Parser) ParseStructure(text string) expense.StructuredReceipt {
	lines := splitLines(text)
	receipt := expense.StructuredReceipt{
		TotalAmount: decimal.Zero,
		Status:      expense.StatusCompleted,
	}

	found := make(map[field]bool)
	for _, r := range structureRules {
		if found[r.field] {
			continue
		}
		for _, line := range r.lines(lines) {
			if r.skip != nil && r.skip.MatchString(line) {
				continue
			}
			m := r.pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if r.extract(line, m, &receipt) {
				found[r.field] = true
				break
			}
		}
	}

	if !found[fieldVendor] {
		receipt.Vendor = firstNamedLine(lines)
	}
	if receipt.Vendor == "" {
		receipt.Vendor = expense.UnknownVendor
	}
	if !found[fieldDate] {
		receipt.Date = p.clock.Now()
	}

	receipt.Confidence = math.Min(baseStructureConfidence+fieldConfidence*float64(len(found)), maxStructureConfidence)
	return receipt
}

func (r rule) lines(lines []string) []string {
	switch r.scope {
	case scopeHead:
		if len(lines) > headLines {
			return lines[:headLines]
		}
		return lines
	case scopeFromEnd:
		reversed := make([]string, len(lines))
		for i, line := range lines {
			reversed[len(lines)-1-i] = line
		}
		return reversed
	}
	return lines
}

// firstNamedLine returns the first line with a letter in it, ignoring
// separator rows and bare dates or numbers.
func firstNamedLine(lines []string) string {
	for _, line := range lines {
		if strings.IndexFunc(line, isLetter) == -1 {
			continue
		}
		return cleanVendor(line)
	}
	return ""
}

var (
	// lines that carry an amount but are not purchases; discounts are often
	// printed without a minus sign
	itemBlacklist = regexp.MustCompile(`(?i)\b(discount|coupon|override|markdown|promo|rebate|instant|thank|subtotal|sub-total|sub\s+total|total|tax|change|cash|payment|paid|visa|mastercard|amex|discover|debit|credit|card|signature|sign|balance|tender(ed)?|approved|auth|savings|saved|rewards?|cashier|register|store\s*#|phone|tel)\b`)
	itemPattern   = regexp.MustCompile(`^\s*(.*?[A-Za-z].*?)\s+\$?(\d{1,3}(?:,\d{3})+\.\d{2}|\d+\.\d{2})\s*([A-Za-z]{1,2})?\s*$`)

	leadingTimes  = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*[x@]\s+`)
	leadingCount  = regexp.MustCompile(`^\s*(\d{1,3})\s+(\S+)`)
	qtyPattern    = regexp.MustCompile(`(?i)\bqty\s*:?\s*(\d+(?:\.\d+)?)\b`)
	skuPrefix     = regexp.MustCompile(`^\s*\d{5,}\s+`)
	weightPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:(lbs?|pounds?)\b|#)`)
	kgPattern     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*kgs?\b`)
	weightUnit    = regexp.MustCompile(`(?i)^(#|lbs?\.?|pounds?|kgs?)$`)
)

// ParseLineItems returns one item per purchase line in text, in order.
// Items come back in the other category; Categorize assigns real ones.
func (p *Parser) ParseLineItems(text string) []expense.LineItem {
	items := make([]expense.LineItem, 0)
	for _, line := range splitLines(text) {
		if itemBlacklist.MatchString(line) {
			continue
		}
		m := itemPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		amount, ok := parseAmount(m[2])
		if !ok {
			continue
		}
		if item, ok := parseItem(line, m[1], amount); ok {
			items = append(items, item)
		}
	}
	return items
}

func parseItem(line, description string, amount decimal.Decimal) (expense.LineItem, bool) {
	quantity, description := extractQuantity(description)
	description = skuPrefix.ReplaceAllString(description, "")
	description = strings.Trim(spaces.ReplaceAllString(description, " "), " -*.:$")
	if description == "" || strings.IndexFunc(description, isLetter) == -1 {
		return expense.LineItem{}, false
	}

	item := expense.LineItem{
		Description: description,
		Amount:      amount,
		Quantity:    quantity,
		Category:    expense.CategoryOther,
		RawText:     line,
		Confidence:  itemConfidence,
	}
	if quantity > 1 {
		unit := amount.Div(decimal.NewFromFloat(quantity)).Round(2)
		item.UnitPrice = &unit
	}
	if weight := extractWeight(description); weight > 0 {
		item.FeedWeight = weight * quantity
		item.UnitOfMeasure = "lb"
	}
	return item, true
}

// extractQuantity finds a purchase count and returns it with the
// description minus the count. Defaults to 1.
func extractQuantity(description string) (float64, string) {
	if m := leadingTimes.FindStringSubmatchIndex(description); m != nil {
		if q, err := strconv.ParseFloat(description[m[2]:m[3]], 64); err == nil && q > 0 {
			return q, description[m[1]:]
		}
	}
	if m := qtyPattern.FindStringSubmatchIndex(description); m != nil {
		if q, err := strconv.ParseFloat(description[m[2]:m[3]], 64); err == nil && q > 0 {
			return q, description[:m[0]] + " " + description[m[1]:]
		}
	}
	// a bare leading number is a count unless it is a weight like "50 LB"
	if m := leadingCount.FindStringSubmatchIndex(description); m != nil {
		next := description[m[4]:m[5]]
		if !weightUnit.MatchString(next) {
			if q, err := strconv.ParseFloat(description[m[2]:m[3]], 64); err == nil && q > 0 {
				return q, description[m[4]:]
			}
		}
	}
	return 1, description
}

// extractWeight returns the per-unit weight in pounds printed in the
// description, or 0.
func extractWeight(description string) float64 {
	if m := weightPattern.FindStringSubmatch(description); m != nil {
		if w, err := strconv.ParseFloat(m[1], 64); err == nil {
			return w
		}
	}
	if m := kgPattern.FindStringSubmatch(description); m != nil {
		if w, err := strconv.ParseFloat(m[1], 64); err == nil {
			return math.Round(w*poundsPerKilogram*100) / 100
		}
	}
	return 0
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}
