package geo

import (
	"context"
	"log/slog"
	"math"

	"github.com/akarper/keydist/pkg/data"
	"golang.org/x/sync/errgroup"
)

// CachedMatrix serves pair durations from the lookup cache and fetches
// only the origins with missing pairs from the underlying provider.
// Fetches run in a bounded pool, one provider call per origin row; each
// goroutine writes only its own row.
type CachedMatrix struct {
	inner   Matrix
	store   data.Store
	workers int
}

func NewCachedMatrix(inner Matrix, store data.Store, workers int) *CachedMatrix {
	if workers < 1 {
		workers = 1
	}
	return &CachedMatrix{inner: inner, store: store, workers: workers}
}

func (m *CachedMatrix) Name() string {
	return m.inner.Name()
}

func (m *CachedMatrix) Durations(ctx context.Context, origins, destinations []string, mode Mode) ([][]float64, error) {
	out := make([][]float64, len(origins))

	var misses []int
	for i, o := range origins {
		row := make([]float64, len(destinations))
		miss := false
		for j, d := range destinations {
			seconds, ok, err := m.store.GetDuration(ctx, m.inner.Name(), string(mode), o, d)
			if err != nil {
				return nil, err
			}
			if !ok {
				row[j] = math.NaN()
				miss = true
				continue
			}
			row[j] = seconds
		}
		out[i] = row
		if miss {
			misses = append(misses, i)
		}
	}

	if len(misses) == 0 {
		slog.Debug("all pairs served from cache", "origins", len(origins), "destinations", len(destinations))
		return out, nil
	}
	slog.Debug("fetching missing rows", "rows", len(misses), "provider", m.inner.Name())

	fetched := make([][]float64, len(misses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for n, i := range misses {
		g.Go(func() error {
			rows, err := m.inner.Durations(gctx, []string{origins[i]}, destinations, mode)
			if err != nil {
				return err
			}
			fetched[n] = rows[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for n, i := range misses {
		for j := range destinations {
			seconds := fetched[n][j]
			out[i][j] = seconds
			if math.IsNaN(seconds) {
				continue // failures are not cached
			}
			if err := m.store.PutDuration(ctx, m.inner.Name(), string(mode), origins[i], destinations[j], seconds); err != nil {
				slog.Warn("failed to cache duration",
					"origin", origins[i], "destination", destinations[j], "error", err)
			}
		}
	}
	return out, nil
}
