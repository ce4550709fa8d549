package data

import (
	"database/sql"
	"embed"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

//go:embed sql/*
var ddlFS embed.FS

var sqliteQueries = queries{
	selectDuration: `SELECT seconds FROM duration
		WHERE provider = ? AND mode = ? AND origin = ? AND destination = ?
		  AND created_at >= ?`,
	insertDuration: `INSERT INTO duration (provider, mode, origin, destination, seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, mode, origin, destination)
		DO UPDATE SET seconds = excluded.seconds, created_at = excluded.created_at`,
	selectGeocode: `SELECT lat, lng FROM geocode
		WHERE provider = ? AND address = ? AND created_at >= ?`,
	insertGeocode: `INSERT INTO geocode (provider, address, lat, lng, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (provider, address)
		DO UPDATE SET lat = excluded.lat, lng = excluded.lng, created_at = excluded.created_at`,

	deleteExpired: map[string]string{
		"duration": `DELETE FROM duration WHERE created_at < ?`,
		"geocode":  `DELETE FROM geocode WHERE created_at < ?`,
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

// OpenSQLite opens (and on first use creates) the SQLite cache at the given path.
func OpenSQLite(path string, ttl time.Duration) (Store, error) {
	if path == "" {
		return nil, errors.New("cache path not specified")
	}

	create := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		create = true
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", path)
	}

	// single writer, avoids lock contention from parallel lookups
	db.SetMaxOpenConns(1)

	if create {
		slog.Debug("creating cache schema", "path", path)
		b, err := ddlFS.ReadFile("sql/sqlite.sql")
		if err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to read the schema creation file")
		}
		if _, err := db.Exec(string(b)); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to create cache schema in: %s", path)
		}
	}

	return &sqlStore{db: db, ttl: ttl, q: sqliteQueries}, nil
}
