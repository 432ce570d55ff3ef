package movies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSchemaMissing reports that the movies table does not exist yet.
var ErrSchemaMissing = errors.New("movies table missing")

const pgUndefinedTable = "42P01"

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

const selectColumns = `
	SELECT DISTINCT id, title, photo_url, release_year, duration_min,
		summary, genre_id, is_series, trailer_url
	FROM movies`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) ListByTitle(ctx context.Context) ([]Title, error) {
	return s.query(ctx, selectColumns+`
		ORDER BY title ASC
	`)
}

func (s *PostgresStore) ListByGenre(ctx context.Context, genreID int64) ([]Title, error) {
	return s.query(ctx, selectColumns+`
		WHERE genre_id = $1
		ORDER BY title ASC
	`, genreID)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]Title, error) {
	var out []Title

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Title, 0, 32)
		for rows.Next() {
			t, err := scanTitle(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	}
	return err
}

func scanTitle(rows *sql.Rows) (Title, error) {
	var (
		t        Title
		photo    sql.NullString
		year     sql.NullInt64
		duration sql.NullInt64
		summary  sql.NullString
		genreID  sql.NullInt64
		series   sql.NullInt64
		trailer  sql.NullString
	)

	if err := rows.Scan(&t.ID, &t.Title, &photo, &year, &duration, &summary, &genreID, &series, &trailer); err != nil {
		return Title{}, err
	}

	t.PhotoURL = photo.String
	t.ReleaseYear = int(year.Int64)
	t.DurationMin = int(duration.Int64)
	t.Summary = summary.String
	if genreID.Valid {
		t.GenreID = genre(genreID.Int64)
	}
	t.IsSeries = Flag(series.Int64 != 0)
	t.TrailerURL = trailer.String
	return t, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
