package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zombor/livestock-receipts/internal/scanning"
)

var (
	// ErrNoItems is returned by a stage that ran but found no line items
	ErrNoItems = errors.New("no line items found")
	// ErrAllProvidersExhausted is matched by the error ProcessReceipt
	// returns when no source could read the receipt at all
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
)

// StageFailure records one source failing one stage.
type StageFailure struct {
	Stage  string
	Source string
	Err    error
}

func (f StageFailure) Error() string {
	return fmt.Sprintf("%s via %s: %v", f.Stage, f.Source, f.Err)
}

func (f StageFailure) Unwrap() error {
	return f.Err
}

// ExhaustedError is returned when every provider and the heuristic
// fallback failed to produce anything usable. Its message is meant for the
// person who uploaded the receipt.
type ExhaustedError struct {
	Failures []StageFailure
}

func (e *ExhaustedError) Error() string {
	tried := make([]string, 0, len(e.Failures))
	seen := make(map[string]bool)
	for _, f := range e.Failures {
		if errors.Is(f.Err, scanning.ErrProviderUnavailable) {
			continue
		}
		if !seen[f.Source] {
			seen[f.Source] = true
			tried = append(tried, f.Source)
		}
	}
	msg := "We couldn't read this receipt automatically. Please enter the expense manually."
	if len(tried) > 0 {
		msg += " (tried " + strings.Join(tried, ", ") + ")"
	}
	return msg
}

// Is makes errors.Is(err, ErrAllProvidersExhausted) true
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// Unwrap exposes each stage failure to errors.Is and errors.As
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
