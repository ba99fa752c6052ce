package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/livestock-receipts/internal/expense"
	"github.com/zombor/livestock-receipts/internal/scanning"
)

var leadingNumber = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)`)

// numericText pulls the leading number out of a JSON value models use for
// quantities: 12.5, "12.5", "$1,250.00" or "50 lb". ok is false for null,
// words and anything else without a leading number.
func numericText(data []byte) (string, bool) {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal([]byte(s), &s); err != nil {
			return "", false
		}
	}
	s = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(s))
	n := leadingNumber.FindString(s)
	return n, n != ""
}

// money decodes amounts the way models write them. A value that is not an
// amount leaves it invalid instead of failing the whole response.
type money struct {
	value decimal.Decimal
	valid bool
}

func (m *money) UnmarshalJSON(data []byte) error {
	*m = money{}
	s, ok := numericText(data)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	*m = money{value: d, valid: true}
	return nil
}

// number is the float counterpart of money, used for quantities, weights,
// confidences and indexes.
type number struct {
	value float64
	valid bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	*n = number{}
	s, ok := numericText(data)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	*n = number{value: f, valid: true}
	return nil
}

// positive returns the value when it is set and above zero.
func (n number) positive() (float64, bool) {
	return n.value, n.valid && n.value > 0
}

type receiptResponse struct {
	Vendor        string          `json:"vendor"`
	Date          string          `json:"date"`
	Total         money           `json:"total"`
	ReceiptNumber json.RawMessage `json:"receiptNumber"`
	Confidence    number          `json:"confidence"`
	Items         []itemResponse  `json:"items"`
}

type itemResponse struct {
	Description   string `json:"description"`
	Amount        money  `json:"amount"`
	Quantity      number `json:"quantity"`
	UnitPrice     money  `json:"unitPrice"`
	UnitOfMeasure string `json:"unitOfMeasure"`
	Category      string `json:"category"`
	Subcategory   string `json:"subcategory"`
	FeedType      string `json:"feedType"`
	FeedWeight    number `json:"feedWeight"`
	Confidence    number `json:"confidence"`
}

type classification struct {
	Index       number `json:"index"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	FeedWeight  number `json:"feedWeight"`
	Confidence  number `json:"confidence"`
}

// decodeList decodes either {"items": [...]} or a bare array.
func decodeList[T any](raw string) ([]T, error) {
	clean := scanning.Sanitize(raw)
	if strings.HasPrefix(clean, "[") {
		var list []T
		if err := json.Unmarshal([]byte(clean), &list); err != nil {
			return nil, fmt.Errorf("%w: %v", scanning.ErrResponseParse, err)
		}
		return list, nil
	}
	var wrapped struct {
		Items []T `json:"items"`
	}
	if err := json.Unmarshal([]byte(clean), &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", scanning.ErrResponseParse, err)
	}
	return wrapped.Items, nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"01/02/06",
	"January 2, 2006",
	"Jan 2, 2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// toReceipt converts a model's receipt details, filling the same defaults
// the heuristic parser uses.
func (r receiptResponse) toReceipt(now time.Time) expense.StructuredReceipt {
	receipt := expense.StructuredReceipt{
		Vendor:        strings.TrimSpace(r.Vendor),
		TotalAmount:   decimal.Zero,
		ReceiptNumber: rawString(r.ReceiptNumber),
		Confidence:    0.5,
		Status:        expense.StatusCompleted,
	}
	if receipt.Vendor == "" || strings.EqualFold(receipt.Vendor, "null") {
		receipt.Vendor = expense.UnknownVendor
	}
	if r.Total.valid && !r.Total.value.IsNegative() {
		receipt.TotalAmount = r.Total.value
	}
	if d, ok := parseDate(r.Date); ok {
		receipt.Date = d
	} else {
		receipt.Date = now
	}
	if r.Confidence.valid {
		receipt.Confidence = expense.ClampConfidence(r.Confidence.value)
	}
	return receipt
}

// rawString reads a field models fill with a string, a number or null.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

var errNoDescription = errors.New("item has no description")

// toLineItem converts an extracted item. Items without a description or
// with a missing or negative amount are rejected.
func (i itemResponse) toLineItem() (expense.LineItem, error) {
	description := strings.TrimSpace(i.Description)
	if description == "" {
		return expense.LineItem{}, errNoDescription
	}
	if !i.Amount.valid || i.Amount.value.IsNegative() {
		return expense.LineItem{}, fmt.Errorf("item %q has no usable amount", description)
	}

	item := expense.LineItem{
		Description:   description,
		Amount:        i.Amount.value,
		Quantity:      1,
		UnitOfMeasure: strings.TrimSpace(i.UnitOfMeasure),
		Category:      expense.CategoryOther,
		RawText:       description,
		Confidence:    0.6,
	}
	if q, ok := i.Quantity.positive(); ok {
		item.Quantity = q
	}
	if i.UnitPrice.valid && i.UnitPrice.value.IsPositive() {
		unit := i.UnitPrice.value
		item.UnitPrice = &unit
	}
	if w, ok := i.FeedWeight.positive(); ok {
		item.FeedWeight = w
	}
	if i.Confidence.valid {
		item.Confidence = expense.ClampConfidence(i.Confidence.value)
	}
	return item, nil
}
