package upstream

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// batchLimit bounds how many per-item fetches run concurrently.
const batchLimit = 4

// Batch runs fn for every input with bounded concurrency and a shared
// cancellation context. Results keep input order. The first error cancels the
// remaining fetches and is returned; auth refresh is handled once inside the
// client, not per item.
func Batch[T, R any](ctx context.Context, inputs []T, fn func(ctx context.Context, in T) (R, error)) ([]R, error) {
	results := make([]R, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchLimit)

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			r, err := fn(ctx, in)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
