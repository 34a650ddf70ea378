package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/storehawk/apple-pickup-cn/internal/domain"
	"github.com/storehawk/apple-pickup-cn/internal/logger"
	"github.com/storehawk/apple-pickup-cn/pkg/catalog"
	"github.com/storehawk/apple-pickup-cn/pkg/fulfillment"
)

// Runner executes one availability check per selected model family and writes
// the report to out. Each run is independent; nothing survives between runs.
type Runner struct {
	client *fulfillment.Client
	out    io.Writer
}

// Options carries the per-invocation inputs resolved from flags.
type Options struct {
	Location string
	Store    string
	Parts    []string
	Models   []catalog.Model
	Policy   domain.RetryPolicy
	ShowRaw  bool
}

// NewRunner wires a runner around the fulfillment client.
func NewRunner(client *fulfillment.Client, out io.Writer) *Runner {
	return &Runner{client: client, out: out}
}

// Run queries every selected model family and renders the results. Per-model
// failures do not stop the remaining queries; they are joined into the
// returned error.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("runner is not initialized")
	}
	if len(opts.Models) == 0 {
		return fmt.Errorf("%w: no models selected", fulfillment.ErrInvalidQuery)
	}

	var errs []error
	for _, model := range opts.Models {
		fmt.Fprintf(r.out, "\n=== %s ===\n", model.Label)
		if err := r.runModel(ctx, model, opts); err != nil {
			errs = append(errs, fmt.Errorf("query %s: %w", model.Label, err))
			logger.ErrorObj("model query failed", "query_error", map[string]any{
				"model": model.Label,
				"error": err.Error(),
			})
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) runModel(ctx context.Context, model catalog.Model, opts Options) error {
	requested, filter, err := combineParts(model.Parts, opts.Parts)
	if err != nil {
		fmt.Fprintln(r.out, "No overlapping part numbers between the model defaults and --part filter.")
		return nil
	}

	q := domain.Query{
		Location:   opts.Location,
		Store:      opts.Store,
		SearchTerm: model.SearchTerm,
		Parts:      requested,
	}

	start := time.Now()
	raw, err := r.client.Fetch(ctx, q, opts.Policy)
	if err != nil {
		return err
	}
	logger.DebugObj("fulfillment response received", "fetch_meta", map[string]any{
		"model":      model.Label,
		"bytes":      len(raw),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if opts.ShowRaw {
		r.printRaw(raw)
	}

	q.Parts = filter
	records, err := fulfillment.Parse(raw, q)
	if err != nil {
		return err
	}

	count := 0
	for rec := range records {
		r.printRecord(model, rec)
		count++
	}
	if count == 0 {
		fmt.Fprintln(r.out, "No stores returned by the API for this query.")
	}
	return nil
}

// combineParts merges the model's default part numbers with the --part flags.
// The request carries the union (deduplicated, first occurrence wins); the
// post-parse filter is the intersection when both sides are set. An empty
// intersection means the two filters cannot match anything.
func combineParts(modelParts, cliParts []string) (requested, filter []string, err error) {
	requested = dedup(append(append([]string{}, modelParts...), cliParts...))

	switch {
	case len(modelParts) == 0:
		filter = dedup(cliParts)
	case len(cliParts) == 0:
		filter = dedup(modelParts)
	default:
		cli := make(map[string]struct{}, len(cliParts))
		for _, p := range cliParts {
			cli[p] = struct{}{}
		}
		for _, p := range dedup(modelParts) {
			if _, ok := cli[p]; ok {
				filter = append(filter, p)
			}
		}
		if len(filter) == 0 {
			return nil, nil, fmt.Errorf("disjoint part filters")
		}
	}
	return requested, filter, nil
}

func dedup(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (r *Runner) printRaw(raw []byte) {
	var pretty map[string]any
	if err := json.Unmarshal(raw, &pretty); err == nil {
		if buf, err := json.MarshalIndent(pretty, "", "  "); err == nil {
			fmt.Fprintln(r.out, string(buf))
			return
		}
	}
	// Not an object; dump as-is so --show-raw still helps with debugging.
	fmt.Fprintln(r.out, strings.TrimSpace(string(raw)))
}

func (r *Runner) printRecord(model catalog.Model, rec domain.AvailabilityRecord) {
	marker := "❌"
	if rec.PickupAvailable {
		marker = "✅"
	}

	where := []string{rec.StoreName}
	if rec.City != "" {
		where = append(where, rec.City)
	}
	if rec.StoreCode != "" {
		where = append(where, "#"+rec.StoreCode)
	}

	product := rec.ModelName
	if product == "" {
		product = model.Label
	}

	extra := rec.PickupQuote
	if extra == "" {
		extra = rec.PickupStatus
	}

	fmt.Fprintf(r.out, "%s %s | %s (%s) | %s\n", marker, strings.Join(where, " - "), product, rec.PartNumber, extra)
}
