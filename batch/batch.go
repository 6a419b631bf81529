// Package batch fans work over a bounded set of workers, each owning its
// own fingerprinting engine.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"audio-fingerprint/shazam"
)

// Func processes one input with the engine owned by the calling worker.
type Func[T any] func(ctx context.Context, engine *shazam.AudioFingerprinter, input string) (T, error)

// Run applies fn to every input using at most workers goroutines and
// returns results in input order. The first error cancels the rest.
func Run[T any](ctx context.Context, inputs []string, workers int, fn Func[T]) ([]T, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	results := make([]T, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	jobs := make(chan int)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range inputs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			engine := shazam.NewAudioFingerprinter()
			for i := range jobs {
				res, err := fn(ctx, engine, inputs[i])
				if err != nil {
					return fmt.Errorf("%s: %w", inputs[i], err)
				}
				results[i] = res
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
