package data

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

var postgresQueries = queries{
	selectDuration: `SELECT seconds FROM duration
		WHERE provider = $1 AND mode = $2 AND origin = $3 AND destination = $4
		  AND created_at >= $5`,
	insertDuration: `INSERT INTO duration (provider, mode, origin, destination, seconds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, mode, origin, destination)
		DO UPDATE SET seconds = excluded.seconds, created_at = excluded.created_at`,
	selectGeocode: `SELECT lat, lng FROM geocode
		WHERE provider = $1 AND address = $2 AND created_at >= $3`,
	insertGeocode: `INSERT INTO geocode (provider, address, lat, lng, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider, address)
		DO UPDATE SET lat = excluded.lat, lng = excluded.lng, created_at = excluded.created_at`,

	deleteExpired: map[string]string{
		"duration": `DELETE FROM duration WHERE created_at < $1`,
		"geocode":  `DELETE FROM geocode WHERE created_at < $1`,
	},
	deleteAll: map[string]string{
		"duration": `DELETE FROM duration`,
		"geocode":  `DELETE FROM geocode`,
	},
	counts: map[string]string{
		"duration": `SELECT COUNT(*) FROM duration`,
		"geocode":  `SELECT COUNT(*) FROM geocode`,
	},
}

// OpenPostgres opens a shared PostgreSQL cache for the given DSN.
// The schema is applied on every open (idempotent DDL).
func OpenPostgres(dsn string, ttl time.Duration) (Store, error) {
	if dsn == "" {
		return nil, errors.New("cache DSN not specified")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres cache")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping postgres cache")
	}

	b, err := ddlFS.ReadFile("sql/postgres.sql")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to read the schema creation file")
	}
	if _, err := db.Exec(string(b)); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create cache schema")
	}

	return &sqlStore{db: db, ttl: ttl, q: postgresQueries}, nil
}
