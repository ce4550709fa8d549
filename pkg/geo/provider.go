package geo

import "context"

// Matrix computes pairwise commute durations between origins and
// destinations. The result is seconds, indexed [origin][destination].
// Pairs that cannot be resolved or routed are NaN; only transport-level
// failures abort the whole batch.
type Matrix interface {
	Durations(ctx context.Context, origins, destinations []string, mode Mode) ([][]float64, error)
	Name() string
}
