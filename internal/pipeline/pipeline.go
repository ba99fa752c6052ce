package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zombor/livestock-receipts/internal/expense"
	"github.com/zombor/livestock-receipts/internal/heuristic"
	"github.com/zombor/livestock-receipts/internal/scanning"
)

// Stage names used in logs, failures and metrics
const (
	StageAnalyze    = "analyze"
	StageReadText   = "read_text"
	StageStructure  = "structure"
	StageLineItems  = "line_items"
	StageCategorize = "categorize"
)

// ImageLoader resolves an image reference to the stored receipt file
type ImageLoader interface {
	Load(ref string) (scanning.Image, error)
}

// ProcessReceiptRequest is a single receipt to process
type ProcessReceiptRequest struct {
	ImageRef string
	UserID   string
	Options  expense.ProcessingOptions
}

// Orchestrator turns a receipt image into a categorized ProcessingResult.
// The primary provider gets one chance to read the whole receipt in a
// single call; otherwise each stage runs on the fallback provider and then
// the heuristic parser.
type Orchestrator struct {
	primary  scanning.Provider
	fallback scanning.Provider
	images   ImageLoader
	vendors  VendorDirectory
	parser   *heuristic.Parser
	clock    heuristic.TimeSource
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. primary, fallback and vendors
// may be nil.
func NewOrchestrator(primary, fallback scanning.Provider, images ImageLoader, vendors VendorDirectory) *Orchestrator {
	return NewOrchestratorWithDeps(primary, fallback, images, vendors, heuristic.NewParser(), wallClock{}, slog.Default())
}

// NewOrchestratorWithDeps creates an Orchestrator with custom dependencies
func NewOrchestratorWithDeps(primary, fallback scanning.Provider, images ImageLoader, vendors VendorDirectory, parser *heuristic.Parser, clock heuristic.TimeSource, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		primary:  primary,
		fallback: fallback,
		images:   images,
		vendors:  vendors,
		parser:   parser,
		clock:    clock,
		logger:   logger,
	}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// run holds the state of one ProcessReceipt call.
type run struct {
	req       ProcessReceiptRequest
	img       scanning.Image
	log       *slog.Logger
	start     time.Time
	failures  []StageFailure
	fallbacks []string
}

func (r *run) record(stage string, failures []StageFailure, fellBack bool) {
	r.failures = append(r.failures, failures...)
	if fellBack {
		r.fallbacks = append(r.fallbacks, stage)
	}
}

// ProcessReceipt extracts, categorizes and summarizes one receipt.
//
// It returns an error wrapping ErrAllProvidersExhausted only when no text
// could be read from any source and the primary provider produced nothing
// usable. Every other provider failure is absorbed by falling back, so a
// result with warnings is the normal outcome for a hard to read receipt.
func (o *Orchestrator) ProcessReceipt(ctx context.Context, req ProcessReceiptRequest) (*expense.ProcessingResult, error) {
	r := &run{
		req:   req,
		log:   o.logger.With("user_id", req.UserID, "image_ref", req.ImageRef),
		start: o.clock.Now(),
	}

	img, err := o.images.Load(req.ImageRef)
	if err != nil {
		return nil, fmt.Errorf("loading receipt image: %w", err)
	}
	r.img = img

	analyzed := o.analyze(ctx, r)
	if analyzed.ok && len(analyzed.data.items) > 0 {
		return o.finish(r, analyzed.data.receipt, analyzed.data.items, analyzed.data.receipt.Confidence, analyzed.source), nil
	}

	text := runStage(ctx, r.log, StageReadText, []attempt[*scanning.ExtractedText]{
		{source: providerName(o.fallback, "fallback"), run: func(ctx context.Context) (*scanning.ExtractedText, error) {
			if o.fallback == nil {
				return nil, scanning.ErrProviderUnavailable
			}
			return o.fallback.ReadText(ctx, r.img)
		}},
		{source: heuristicSource, run: func(context.Context) (*scanning.ExtractedText, error) {
			return heuristic.ReadText(r.img)
		}},
	})
	r.record(StageReadText, text.failures, text.fellBack)

	if !text.ok {
		if analyzed.ok {
			r.log.Warn("returning partial result", "source", analyzed.source)
			return o.finish(r, analyzed.data.receipt, nil, analyzed.data.receipt.Confidence, analyzed.source), nil
		}
		r.log.Error("all providers exhausted", "failures", len(r.failures))
		return nil, &ExhaustedError{Failures: r.failures}
	}

	receipt := o.structure(ctx, r, text.data.Text)
	items, source := o.lineItems(ctx, r, text.data.Text)
	if !req.Options.ExtractFeedWeights {
		items = withoutFeedWeights(items)
	}
	return o.finish(r, receipt, o.categorize(ctx, r, items), text.data.Confidence, source), nil
}

type analysis struct {
	receipt expense.StructuredReceipt
	items   []expense.LineItem
}

// analyze is the primary provider's single call path.
func (o *Orchestrator) analyze(ctx context.Context, r *run) outcome[analysis] {
	out := runStage(ctx, r.log, StageAnalyze, []attempt[analysis]{
		{source: providerName(o.primary, "primary"), run: func(ctx context.Context) (analysis, error) {
			if o.primary == nil {
				return analysis{}, scanning.ErrProviderUnavailable
			}
			raw, err := o.primary.Analyze(ctx, r.img, fullReceiptPrompt())
			if err != nil {
				return analysis{}, err
			}
			var resp receiptResponse
			if err := scanning.DecodeJSON(raw, &resp); err != nil {
				return analysis{}, err
			}

			a := analysis{receipt: resp.toReceipt(o.clock.Now()), items: make([]expense.LineItem, 0, len(resp.Items))}
			for _, ir := range resp.Items {
				item, err := categorizedItem(ir, r.req.Options.ExtractFeedWeights)
				if err != nil {
					r.log.Debug("skipping extracted item", "error", err)
					continue
				}
				a.items = append(a.items, item)
			}
			return a, nil
		}},
	})
	r.record(StageAnalyze, out.failures, false)
	return out
}

func (o *Orchestrator) structure(ctx context.Context, r *run, text string) expense.StructuredReceipt {
	out := runStage(ctx, r.log, StageStructure, []attempt[expense.StructuredReceipt]{
		{source: providerName(o.fallback, "fallback"), run: func(ctx context.Context) (expense.StructuredReceipt, error) {
			if o.fallback == nil {
				return expense.StructuredReceipt{}, scanning.ErrProviderUnavailable
			}
			raw, err := o.fallback.Complete(ctx, structurePrompt(), text)
			if err != nil {
				return expense.StructuredReceipt{}, err
			}
			var resp receiptResponse
			if err := scanning.DecodeJSON(raw, &resp); err != nil {
				return expense.StructuredReceipt{}, err
			}
			return resp.toReceipt(o.clock.Now()), nil
		}},
		{source: heuristicSource, run: func(context.Context) (expense.StructuredReceipt, error) {
			return o.parser.ParseStructure(text), nil
		}},
	})
	r.record(StageStructure, out.failures, out.fellBack)
	return out.data
}

func (o *Orchestrator) lineItems(ctx context.Context, r *run, text string) ([]expense.LineItem, string) {
	out := runStage(ctx, r.log, StageLineItems, []attempt[[]expense.LineItem]{
		{source: providerName(o.fallback, "fallback"), run: func(ctx context.Context) ([]expense.LineItem, error) {
			if o.fallback == nil {
				return nil, scanning.ErrProviderUnavailable
			}
			raw, err := o.fallback.Complete(ctx, lineItemsPrompt(), text)
			if err != nil {
				return nil, err
			}
			resp, err := decodeList[itemResponse](raw)
			if err != nil {
				return nil, err
			}
			items := make([]expense.LineItem, 0, len(resp))
			for _, ir := range resp {
				item, err := ir.toLineItem()
				if err != nil {
					r.log.Debug("skipping extracted item", "error", err)
					continue
				}
				items = append(items, item)
			}
			if len(items) == 0 {
				return nil, ErrNoItems
			}
			return items, nil
		}},
		{source: heuristicSource, run: func(context.Context) ([]expense.LineItem, error) {
			return o.parser.ParseLineItems(text), nil
		}},
	})
	r.record(StageLineItems, out.failures, out.fellBack)
	return out.data, out.source
}

func (o *Orchestrator) categorize(ctx context.Context, r *run, items []expense.LineItem) []expense.LineItem {
	if len(items) == 0 || !r.req.Options.CategorizeLineItems {
		return items
	}

	out := runStage(ctx, r.log, StageCategorize, []attempt[[]expense.LineItem]{
		{source: providerName(o.fallback, "fallback"), run: func(ctx context.Context) ([]expense.LineItem, error) {
			if o.fallback == nil {
				return nil, scanning.ErrProviderUnavailable
			}
			raw, err := o.fallback.Complete(ctx, classificationPrompt(), classificationInput(items))
			if err != nil {
				return nil, err
			}
			classes, err := decodeList[classification](raw)
			if err != nil {
				return nil, err
			}
			return mergeClassifications(items, classes, r.req.Options.ExtractFeedWeights)
		}},
		{source: heuristicSource, run: func(context.Context) ([]expense.LineItem, error) {
			return heuristic.Categorize(items), nil
		}},
	})
	r.record(StageCategorize, out.failures, out.fellBack)
	return out.data
}

// finish applies the caller's options and builds the result.
func (o *Orchestrator) finish(r *run, receipt expense.StructuredReceipt, items []expense.LineItem, ocrConfidence float64, source string) *expense.ProcessingResult {
	opts := r.req.Options
	if items == nil {
		items = []expense.LineItem{}
	}
	if !opts.CategorizeLineItems {
		items = expense.Uncategorized(items)
	}
	if !opts.ExtractFeedWeights {
		items = withoutFeedWeights(items)
	}
	if opts.ValidateWithDatabase {
		receipt.Vendor = o.knownVendor(r, receipt.Vendor)
	}

	result := expense.NewResult(receipt, items, opts)
	result.Metrics.OCRConfidence = expense.ClampConfidence(ocrConfidence)
	result.Metrics.Source = source
	result.Metrics.FallbackStages = r.fallbacks
	result.Metrics.TotalProcessingTimeMs = o.clock.Now().Sub(r.start).Milliseconds()

	r.log.Info("receipt processed",
		"source", source,
		"items", len(result.LineItems),
		"warnings", len(result.Warnings),
		"duration_ms", result.Metrics.TotalProcessingTimeMs,
	)
	return &result
}

func (o *Orchestrator) knownVendor(r *run, vendor string) string {
	if o.vendors == nil {
		return vendor
	}
	known, err := o.vendors.KnownVendors()
	if err != nil {
		r.log.Warn("listing known vendors", "error", err)
		return vendor
	}
	matched := matchVendor(vendor, known)
	if matched != vendor {
		r.log.Debug("vendor matched", "extracted", vendor, "known", matched)
	}
	return matched
}
