package pipeline

import (
	"fmt"
	"strings"

	"github.com/zombor/livestock-receipts/internal/expense"
)

// categoryGuide lists the registry for the model: id, label and the
// subcategories it may pick from.
func categoryGuide() string {
	var b strings.Builder
	for _, c := range expense.Categories() {
		fmt.Fprintf(&b, "- %s (%s): subcategories %s\n", c.ID, c.Label, strings.Join(c.Subcategories, ", "))
	}
	return b.String()
}

func fullReceiptPrompt() string {
	return `You are reading a receipt from a farm store, feed mill, veterinary clinic or livestock show for a youth livestock project. Read every line and extract the receipt and each purchased item.

Categories:
` + categoryGuide() + `
Return ONLY valid JSON in this exact format:
{
  "vendor": "store or business name",
  "date": "YYYY-MM-DD",
  "total": 0.00,
  "receiptNumber": "receipt, invoice or transaction number or null",
  "confidence": 0.0,
  "items": [
    {
      "description": "item text as printed",
      "amount": 0.00,
      "quantity": 1,
      "unitPrice": 0.00,
      "unitOfMeasure": "lb, bag, each",
      "category": "one of the category ids above",
      "subcategory": "one of that category's subcategories",
      "feedType": "product name for feed items, otherwise null",
      "feedWeight": 0,
      "confidence": 0.0
    }
  ]
}

Important:
- amount is the line total for the item, as a number
- feedWeight is the total pounds of feed on the line (bag weight times quantity), 0 when not feed or not printed; convert kg to lb
- do not list subtotal, tax, total, payment or discount lines as items
- confidence is between 0.0 and 1.0
- Do not include any text before or after the JSON`
}

func structurePrompt() string {
	return `The following is the text of a purchase receipt. Extract the receipt details.

Return ONLY valid JSON in this exact format:
{"vendor": "store or business name", "date": "YYYY-MM-DD", "total": 0.00, "receiptNumber": "number or null", "confidence": 0.0}

Use the final total, not the subtotal. Use null for anything you cannot find.`
}

func lineItemsPrompt() string {
	return `The following is the text of a purchase receipt. List every purchased item in the order printed.

Return ONLY valid JSON in this exact format:
{"items": [{"description": "item text", "amount": 0.00, "quantity": 1, "unitPrice": 0.00, "unitOfMeasure": "lb, bag, each", "feedWeight": 0}]}

amount is the line total. feedWeight is total pounds of feed on the line when printed (bag weight times quantity), otherwise 0. Skip subtotal, tax, total, payment and discount lines.`
}

func classificationPrompt() string {
	var b strings.Builder
	b.WriteString(`Classify each livestock project purchase below into one category.

Categories:
`)
	b.WriteString(categoryGuide())
	b.WriteString(`
Return ONLY valid JSON with exactly one entry per item, in the same order:
{"items": [{"index": 0, "category": "category id", "subcategory": "subcategory", "feedWeight": 0, "confidence": 0.0}]}

feedWeight is total pounds for feed items, 0 otherwise.`)
	return b.String()
}

// classificationInput numbers the item descriptions for the classification
// prompt.
func classificationInput(items []expense.LineItem) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s ($%s)\n", i, item.Description, item.Amount.StringFixed(2))
	}
	return b.String()
}
