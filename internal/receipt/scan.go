package receipt

import (
	"errors"
	"time"

	"github.com/zombor/livestock-receipts/internal/expense"
)

// ScanStatus tracks whether the user has reviewed a scan
type ScanStatus string

const (
	// StatusDraft scans can still be edited
	StatusDraft ScanStatus = "draft"
	// StatusConfirmed scans are final
	StatusConfirmed ScanStatus = "confirmed"
)

var (
	// ErrNotFound is returned when a scan does not exist
	ErrNotFound = errors.New("scan not found")
	// ErrAlreadyConfirmed is returned when editing a confirmed scan
	ErrAlreadyConfirmed = errors.New("scan is already confirmed")
)

// Scan is an uploaded receipt together with what was extracted from it
type Scan struct {
	ID          string                   `json:"id"`
	Filename    string                   `json:"filename"`
	ContentType string                   `json:"content_type"`
	UserID      string                   `json:"user_id,omitempty"`
	Status      ScanStatus               `json:"status"`
	Result      expense.ProcessingResult `json:"result"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}
