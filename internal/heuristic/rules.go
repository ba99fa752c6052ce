package heuristic

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zombor/livestock-receipts/internal/expense"
)

type field int

const (
	fieldVendor field = iota
	fieldTotal
	fieldDate
	fieldReceiptNumber
)

func (f field) String() string {
	switch f {
	case fieldVendor:
		return "vendor"
	case fieldTotal:
		return "total"
	case fieldDate:
		return "date"
	case fieldReceiptNumber:
		return "receipt_number"
	}
	return "unknown"
}

// scope selects which lines a rule looks at and in what order.
type scope int

const (
	scopeHead    scope = iota // first headLines lines, top down
	scopeAll                  // every line, top down
	scopeFromEnd              // every line, bottom up
)

const headLines = 5

// rule extracts one receipt field. Rules are tried in priority order and
// the first one that extracts a value wins its field.
type rule struct {
	field    field
	priority int
	pattern  *regexp.Regexp
	skip     *regexp.Regexp
	scope    scope
	extract  func(line string, m []string, r *expense.StructuredReceipt) bool
}

var totalSkip = regexp.MustCompile(`(?i)\b(sub\s*-?\s*total|tax|savings|saved|discount|change)\b`)

var structureRules = []rule{
	{
		field:    fieldVendor,
		priority: 1,
		pattern:  regexp.MustCompile(`(?i)\b(tractor supply|rural king|atwoods|orscheln|bomgaars|big r|murdoch'?s|north 40|coastal farm|family farm|theisen'?s|valley vet|jeffers|sullivan supply|weaver|premier ?1|stock ?show)\b`),
		scope:    scopeHead,
		extract:  extractKnownVendor,
	},
	{
		field:    fieldVendor,
		priority: 2,
		pattern:  regexp.MustCompile(`(?i)\b(co-?op|cooperative|feed (store|mill|supply|and seed|& seed)|farm (store|supply|and ranch|& ranch)|ranch supply|elevator|grain co)\b`),
		scope:    scopeHead,
		extract:  extractVendor,
	},
	{
		field:    fieldVendor,
		priority: 3,
		pattern:  regexp.MustCompile(`(?i)\b(vet(erinary)? (clinic|hospital|services|supply)|animal (clinic|hospital)|large animal)\b`),
		scope:    scopeHead,
		extract:  extractVendor,
	},
	{
		field:    fieldTotal,
		priority: 1,
		pattern:  regexp.MustCompile(`(?i)^\s*(grand\s*total|total\s*due|amount\s*due|balance\s*due|total)\b[^0-9]*?\$?\s*([\d,]+\.\d{2})\b`),
		skip:     totalSkip,
		scope:    scopeFromEnd,
		extract:  extractTotal,
	},
	{
		field:    fieldTotal,
		priority: 2,
		pattern:  regexp.MustCompile(`(?i)^\s*(amount|amt)\b[^0-9]*?\$?\s*([\d,]+\.\d{2})\b`),
		skip:     regexp.MustCompile(`(?i)\b(sub\s*-?\s*total|tax|savings|saved|discount|change|tendered|paid)\b`),
		scope:    scopeFromEnd,
		extract:  extractTotal,
	},
	{
		field:    fieldDate,
		priority: 1,
		pattern:  regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		scope:    scopeAll,
		extract:  dateExtractor("2006-01-02"),
	},
	{
		field:    fieldDate,
		priority: 2,
		pattern:  regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`),
		scope:    scopeAll,
		extract:  dateExtractor("1/2/2006"),
	},
	{
		field:    fieldDate,
		priority: 3,
		pattern:  regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2})\b`),
		scope:    scopeAll,
		extract:  dateExtractor("1/2/06"),
	},
	{
		field:    fieldDate,
		priority: 4,
		pattern:  regexp.MustCompile(`\b(\d{1,2}-\d{1,2}-\d{4})\b`),
		scope:    scopeAll,
		extract:  dateExtractor("1-2-2006"),
	},
	{
		field:    fieldDate,
		priority: 5,
		pattern:  regexp.MustCompile(`(?i)\b((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.? \d{1,2},? \d{4})\b`),
		scope:    scopeAll,
		extract:  extractLongDate,
	},
	{
		field:    fieldReceiptNumber,
		priority: 1,
		pattern:  regexp.MustCompile(`(?i)\b(?:receipt|invoice|inv|trans(?:action)?|order|ticket)\s*(?:#|no\.?|num(?:ber)?)\s*:?\s*#?\s*([A-Z0-9][A-Z0-9-]{2,})`),
		scope:    scopeAll,
		extract: func(_ string, m []string, r *expense.StructuredReceipt) bool {
			r.ReceiptNumber = strings.ToUpper(m[1])
			return true
		},
	},
}

// extractKnownVendor uses the chain's own name rather than the whole
// line, which usually carries a store number.
func extractKnownVendor(_ string, m []string, r *expense.StructuredReceipt) bool {
	r.Vendor = cleanVendor(m[1])
	return r.Vendor != ""
}

func extractVendor(line string, _ []string, r *expense.StructuredReceipt) bool {
	r.Vendor = cleanVendor(line)
	return r.Vendor != ""
}

func extractTotal(_ string, m []string, r *expense.StructuredReceipt) bool {
	amount, ok := parseAmount(m[2])
	if !ok {
		return false
	}
	r.TotalAmount = amount
	return true
}

func dateExtractor(layout string) func(string, []string, *expense.StructuredReceipt) bool {
	return func(_ string, m []string, r *expense.StructuredReceipt) bool {
		d, err := time.Parse(layout, m[1])
		if err != nil {
			return false
		}
		r.Date = d
		return true
	}
}

var longDateCleaner = regexp.MustCompile(`[.,]`)

func extractLongDate(_ string, m []string, r *expense.StructuredReceipt) bool {
	parts := strings.Fields(longDateCleaner.ReplaceAllString(m[1], ""))
	if len(parts) != 3 || len(parts[0]) < 3 {
		return false
	}
	// month names match case-insensitively
	d, err := time.Parse("Jan 2 2006", parts[0][:3]+" "+parts[1]+" "+parts[2])
	if err != nil {
		return false
	}
	r.Date = d
	return true
}

var (
	storeNumber = regexp.MustCompile(`(?i)(\bstore\s*)?#\s*\d+|\bstore\s+\d+`)
	spaces      = regexp.MustCompile(`\s+`)
)

// cleanVendor drops store numbers and stray punctuation and title cases the
// name.
func cleanVendor(s string) string {
	s = storeNumber.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	s = strings.Trim(s, " -*=.,:|")
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(s))
}

// parseAmount reads a printed money value, dropping "$" and thousands
// separators.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
