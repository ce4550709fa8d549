package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

const (
	// DataFileName is the default SQLite cache file name.
	DataFileName = "data.db"
)

var errStoreNotInitialized = errors.New("store not initialized")

// Store is the lookup cache for geocode results and pair durations.
// Entries older than the store TTL are treated as misses.
type Store interface {
	GetDuration(ctx context.Context, provider, mode, origin, destination string) (seconds float64, ok bool, err error)
	PutDuration(ctx context.Context, provider, mode, origin, destination string, seconds float64) error
	GetGeocode(ctx context.Context, provider, address string) (lat, lng float64, ok bool, err error)
	PutGeocode(ctx context.Context, provider, address string, lat, lng float64) error
	// Stats returns row counts per cache table.
	Stats(ctx context.Context) (map[string]int64, error)
	// Purge deletes expired entries, or every entry when all is true,
	// and returns the number of rows removed.
	Purge(ctx context.Context, all bool) (int64, error)
	Close() error
}

// Open returns a Store backed by PostgreSQL when dsn is set,
// otherwise by a SQLite file at path.
func Open(path, dsn string, ttl time.Duration) (Store, error) {
	if dsn != "" {
		return OpenPostgres(dsn, ttl)
	}
	return OpenSQLite(path, ttl)
}

// queries holds the dialect-specific SQL for one backend.
type queries struct {
	selectDuration string
	insertDuration string
	selectGeocode  string
	insertGeocode  string

	deleteExpired map[string]string
	deleteAll     map[string]string
	counts        map[string]string
}

type sqlStore struct {
	db  *sql.DB
	ttl time.Duration
	q   queries
}

func (s *sqlStore) cutoff() int64 {
	return time.Now().Add(-s.ttl).Unix()
}

func (s *sqlStore) GetDuration(ctx context.Context, provider, mode, origin, destination string) (float64, bool, error) {
	if s.db == nil {
		return 0, false, errStoreNotInitialized
	}

	row := s.db.QueryRowContext(ctx, s.q.selectDuration, provider, mode, origin, destination, s.cutoff())

	var seconds float64
	if err := row.Scan(&seconds); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "failed to scan duration row")
	}
	return seconds, true, nil
}

func (s *sqlStore) PutDuration(ctx context.Context, provider, mode, origin, destination string, seconds float64) error {
	if s.db == nil {
		return errStoreNotInitialized
	}
	if provider == "" || mode == "" || origin == "" || destination == "" {
		return errors.New("provider, mode, origin, and destination are all required")
	}

	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, s.q.insertDuration,
		provider, mode, origin, destination, seconds, now); err != nil {
		return errors.Wrap(err, "failed to insert duration")
	}
	return nil
}

func (s *sqlStore) GetGeocode(ctx context.Context, provider, address string) (float64, float64, bool, error) {
	if s.db == nil {
		return 0, 0, false, errStoreNotInitialized
	}

	row := s.db.QueryRowContext(ctx, s.q.selectGeocode, provider, address, s.cutoff())

	var lat, lng float64
	if err := row.Scan(&lat, &lng); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, false, nil
		}
		return 0, 0, false, errors.Wrap(err, "failed to scan geocode row")
	}
	return lat, lng, true, nil
}

func (s *sqlStore) PutGeocode(ctx context.Context, provider, address string, lat, lng float64) error {
	if s.db == nil {
		return errStoreNotInitialized
	}
	if provider == "" || address == "" {
		return errors.New("provider and address are required")
	}

	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, s.q.insertGeocode, provider, address, lat, lng, now); err != nil {
		return errors.Wrap(err, "failed to insert geocode")
	}
	return nil
}

func (s *sqlStore) Stats(ctx context.Context) (map[string]int64, error) {
	if s.db == nil {
		return nil, errStoreNotInitialized
	}

	stats := make(map[string]int64)
	for k, q := range s.q.counts {
		var count int64
		if err := s.db.QueryRowContext(ctx, q).Scan(&count); err != nil {
			return nil, errors.Wrapf(err, "error getting %s count", k)
		}
		stats[k] = count
	}
	return stats, nil
}

func (s *sqlStore) Purge(ctx context.Context, all bool) (int64, error) {
	if s.db == nil {
		return 0, errStoreNotInitialized
	}

	var total int64
	if all {
		for k, q := range s.q.deleteAll {
			res, err := s.db.ExecContext(ctx, q)
			if err != nil {
				return total, errors.Wrapf(err, "error purging %s", k)
			}
			if n, err := res.RowsAffected(); err == nil {
				total += n
			}
		}
		return total, nil
	}

	for k, q := range s.q.deleteExpired {
		res, err := s.db.ExecContext(ctx, q, s.cutoff())
		if err != nil {
			return total, errors.Wrapf(err, "error purging expired %s", k)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}

func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
