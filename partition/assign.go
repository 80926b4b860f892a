package partition

import (
	"context"
	"runtime"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cholmes/geopartition/table"
)

// assignBatchSize is the number of rows one worker claims at a time.
const assignBatchSize = 4096

// planRows computes the partition key for every row in parallel and merges
// the per-worker partial mappings at the end, keeping the hot path free of
// shared locks. The first per-row error aborts the whole plan.
func planRows(ctx context.Context, levels []string, n int, fn func(ref table.RowRef) (Key, error)) (*Mapping, error) {
	if n == 0 {
		return nil, ErrEmptyInput
	}

	workers := runtime.GOMAXPROCS(0)
	if batches := (n + assignBatchSize - 1) / assignBatchSize; workers > batches {
		workers = batches
	}

	partials := make([]map[string]*entry, workers)
	next := make(chan int, workers)
	go func() {
		defer close(next)
		for start := 0; start < n; start += assignBatchSize {
			select {
			case next <- start:
			case <-ctx.Done():
				return
			}
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		local := make(map[string]*entry)
		partials[w] = local
		g.Go(func() error {
			for start := range next {
				end := start + assignBatchSize
				if end > n {
					end = n
				}
				for i := start; i < end; i++ {
					ref := table.RowRef(i)
					key, err := fn(ref)
					if err != nil {
						return &RowError{Ref: ref, Err: err}
					}
					c := key.canon()
					e, ok := local[c]
					if !ok {
						e = &entry{key: key, set: roaring.New()}
						local[c] = e
					}
					e.set.Add(uint32(ref))
				}
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := NewMapping(levels)
	for _, local := range partials {
		m.merge(local)
	}
	return m, nil
}
