package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/zombor/livestock-receipts/internal/scanning"
)

const heuristicSource = "heuristic"

// attempt is one way of completing a stage. Attempts of a stage are tried
// in order until one succeeds.
type attempt[T any] struct {
	source string
	run    func(ctx context.Context) (T, error)
}

type outcome[T any] struct {
	data     T
	source   string
	ok       bool
	fellBack bool
	failures []StageFailure
}

// runStage tries each attempt in order and returns the first success.
// Failures are collected so an exhausted pipeline can report them.
func runStage[T any](ctx context.Context, log *slog.Logger, stage string, attempts []attempt[T]) outcome[T] {
	log.Debug("stage entered", "stage", stage)

	var out outcome[T]
	for i, a := range attempts {
		data, err := a.run(ctx)
		if err == nil {
			out.data = data
			out.source = a.source
			out.ok = true
			out.fellBack = i > 0
			return out
		}

		out.failures = append(out.failures, StageFailure{Stage: stage, Source: a.source, Err: err})
		if errors.Is(err, scanning.ErrProviderUnavailable) {
			log.Debug("provider unavailable", "stage", stage, "source", a.source)
			continue
		}
		if i < len(attempts)-1 {
			log.Warn("fallback triggered", "stage", stage, "source", a.source, "next", attempts[i+1].source, "error", err)
		}
	}

	log.Warn("stage failed", "stage", stage)
	return out
}

// providerName is the source name for p, which may be nil.
func providerName(p scanning.Provider, slot string) string {
	if p == nil {
		return slot
	}
	return p.Name()
}
