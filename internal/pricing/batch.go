package pricing

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Result pairs a quote with its validation error.
type Result struct {
	Quote Quote
	Err   error
}

// PriceMany quotes the inputs in parallel with at most workers goroutines. Results
// keep input order; per-item validation errors are reported in Result.Err. The
// returned error is only set when ctx ends before all items were priced.
func PriceMany(ctx context.Context, inputs []QuoteInput, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			q, err := QuoteFor(inputs[i])
			results[i] = Result{Quote: q, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
