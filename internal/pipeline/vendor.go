package pipeline

import (
	"strings"

	"github.com/zombor/livestock-receipts/internal/expense"
	"github.com/zombor/livestock-receipts/internal/heuristic"
)

// VendorDirectory lists vendor names already confirmed by the user
type VendorDirectory interface {
	KnownVendors() ([]string, error)
}

const minVendorMatch = 4

// matchVendor returns the known vendor that vendor refers to, or vendor
// itself. A match is either name containing the other once case and
// punctuation are folded; the longest known name wins.
func matchVendor(vendor string, known []string) string {
	if vendor == "" || vendor == expense.UnknownVendor {
		return vendor
	}
	folded := strings.TrimSpace(heuristic.Fold(vendor))
	if len(folded) < minVendorMatch {
		return vendor
	}

	best := ""
	for _, name := range known {
		candidate := strings.TrimSpace(heuristic.Fold(name))
		if len(candidate) < minVendorMatch {
			continue
		}
		if strings.Contains(folded, candidate) || strings.Contains(candidate, folded) {
			if len(name) > len(best) {
				best = name
			}
		}
	}
	if best == "" {
		return vendor
	}
	return best
}
