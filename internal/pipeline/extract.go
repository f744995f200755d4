package pipeline

import (
	"context"
	"errors"
	"fmt"
	"salesledger/internal/assemble"
	"salesledger/internal/merge"
	"salesledger/internal/sale"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Extraction is the merged batch of one extraction pass.
type Extraction struct {
	Sales     []sale.Sale
	Pages     int
	RowBlocks int
	// Discarded counts row blocks that yielded no usable sale.
	Discarded int
}

// await runs call and returns when it does or when ctx is done, whichever
// comes first. An accessor that ignores ctx can therefore not hold a cycle
// past its timeout, its late result is dropped.
func await[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := call(ctx)
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// failure classifies an accessor error. Running out of the extract timeout
// abandons the cycle, so does an accessor that gave up early because it
// would have run out of it.
func failure(ctx context.Context, page int, err error) error {
	_, bounded := ctx.Deadline()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (bounded && errors.Is(err, context.DeadlineExceeded)) {
		return fmt.Errorf("%w at page %d: %w", ErrCycleAbandoned, page, err)
	}
	return &ExtractionError{Page: page, Err: err}
}

// Extract reads up to MaxPages pages within ExtractTimeout, retrying a failed
// pass ExtractRetries times. It has no side effect besides moving the accessor.
// A pass starts by returning to the first page when an earlier pass left the
// accessor elsewhere.
func (p *Pipeline) Extract(ctx context.Context) (Extraction, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	var err error
	for attempt := 0; attempt <= p.cfg.ExtractRetries; attempt++ {
		if attempt > 0 {
			if ctx.Err() != nil {
				break
			}
			p.tel.ReportWarning(report_pipeline_extract, err, "attempt", attempt+1)
		}

		var out Extraction
		out, err = p.extractOnce(ctx)
		if err == nil {
			span.SetAttributes(
				attribute.Int("pages", out.Pages),
				attribute.Int("row_blocks", out.RowBlocks),
				attribute.Int("sales", len(out.Sales)),
			)
			return out, nil
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return Extraction{}, err
}

func (p *Pipeline) extractOnce(parent context.Context) (Extraction, error) {
	ctx, cancel := context.WithTimeout(parent, p.cfg.ExtractTimeout)
	defer cancel()

	if p.offFirstPage {
		ok, err := await(ctx, p.accessor.FirstPage)
		if err != nil {
			return Extraction{}, failure(ctx, 1, err)
		}
		p.offFirstPage = !ok
	}

	acc := merge.NewAccumulator()
	var out Extraction
	for page := 1; ; page++ {
		blocks, err := await(ctx, p.accessor.RowBlocks)
		if err != nil {
			return Extraction{}, failure(ctx, page, err)
		}
		out.Pages = page
		out.RowBlocks += len(blocks)

		sales, discarded := assemble.AssembleAll(blocks)
		out.Discarded += discarded
		acc.Add(sales...)

		if page >= p.cfg.MaxPages {
			break
		}
		p.offFirstPage = true
		more, err := await(ctx, p.accessor.AdvancePage)
		if err != nil {
			return Extraction{}, failure(ctx, page+1, err)
		}
		if !more {
			p.offFirstPage = page > 1
			break
		}
	}

	if p.offFirstPage {
		ok, err := await(ctx, p.accessor.FirstPage)
		if err != nil && ctx.Err() != nil {
			return Extraction{}, failure(ctx, 1, err)
		}
		if err != nil || !ok {
			p.tel.ReportWarning(report_pipeline_first_page, err, out.Pages)
		} else {
			p.offFirstPage = false
		}
	}

	out.Sales = acc.Sales()
	return out, nil
}
