// Package postgres reads live telemetry from the gloria schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/couchcryptid/netpen-escape-risk/internal/domain"
)

// missingValue marks fill values written by the importer for absent samples.
const missingValue = -9990

const readingsQuery = `
	SELECT
		piscifactoria_id::text AS site_id,
		variable_nombre,
		valor,
		fecha_tiempo,
		calidad
	FROM gloria.variables_ambientales
	WHERE piscifactoria_id::text = $1
	AND variable_nombre = ANY($2)
	AND fecha_tiempo BETWEEN $3 AND $4
	AND valor IS NOT NULL
	AND valor <> 'NaN'
	AND valor > $5
	ORDER BY fecha_tiempo`

type readingRow struct {
	SiteID    string          `db:"site_id"`
	Name      string          `db:"variable_nombre"`
	Value     sql.NullFloat64 `db:"valor"`
	Timestamp time.Time       `db:"fecha_tiempo"`
	Quality   sql.NullString  `db:"calidad"`
}

// Source serves EnvironmentalReadings from variables_ambientales.
type Source struct {
	db *sqlx.DB
}

// Open prepares a connection pool without dialing. Connections are made on
// first use, so a database that is down at startup is picked up once it
// recovers; call Ping to check it eagerly.
func Open(dsn string) (*Source, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewSource(db), nil
}

// NewSource wraps an existing connection pool.
func NewSource(db *sqlx.DB) *Source {
	return &Source{db: db}
}

// FetchReadings returns the site's readings for the variables within r,
// oldest first. Variables are matched under every name they are stored as.
func (s *Source) FetchReadings(ctx context.Context, siteID string, variables []domain.Variable, r domain.TimeRange) ([]domain.EnvironmentalReading, error) {
	var names []string
	for _, v := range variables {
		names = append(names, v.StoredNames()...)
	}
	if len(names) == 0 {
		return nil, nil
	}

	var rows []readingRow
	err := s.db.SelectContext(ctx, &rows, readingsQuery,
		siteID,
		pq.Array(names),
		r.From.UTC(), r.To.UTC(),
		missingValue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}

	out := make([]domain.EnvironmentalReading, 0, len(rows))
	for _, row := range rows {
		if rd, ok := row.toReading(); ok {
			out = append(out, rd)
		}
	}
	return out, nil
}

// Ping reports whether the database is reachable.
func (s *Source) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Source) Close() error {
	return s.db.Close()
}

func (row readingRow) toReading() (domain.EnvironmentalReading, bool) {
	if !row.Value.Valid || math.IsNaN(row.Value.Float64) || row.Value.Float64 <= missingValue {
		return domain.EnvironmentalReading{}, false
	}
	v, err := domain.ParseVariable(row.Name)
	if err != nil {
		return domain.EnvironmentalReading{}, false
	}
	return domain.EnvironmentalReading{
		SiteID:    row.SiteID,
		Variable:  v,
		Value:     row.Value.Float64,
		Timestamp: row.Timestamp.UTC(),
		Quality:   row.Quality.String,
	}, true
}
