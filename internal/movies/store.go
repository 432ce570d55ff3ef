package movies

import (
	"context"
	"errors"
	"strconv"
)

// Title is one row of the movies table.
type Title struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	PhotoURL    string `json:"photo_url"`
	ReleaseYear int    `json:"release_year"`
	DurationMin int    `json:"duration_min"`
	Summary     string `json:"summary,omitempty"`
	GenreID     *int64 `json:"genre_id"`
	IsSeries    Flag   `json:"is_series"`
	TrailerURL  string `json:"trailer_url,omitempty"`
}

// Flag is a boolean column stored and served as 0/1.
type Flag bool

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "1", "true":
		*f = true
	case "0", "false", "null":
		*f = false
	default:
		n, err := strconv.Atoi(string(b))
		if err != nil {
			return errors.New("is_series: expected 0/1")
		}
		*f = n != 0
	}
	return nil
}

type Store interface {
	Ping(ctx context.Context) error
	// ListByTitle returns every distinct row ordered by title ascending.
	ListByTitle(ctx context.Context) ([]Title, error)
	// ListByGenre is ListByTitle restricted to genre_id = genreID.
	ListByGenre(ctx context.Context, genreID int64) ([]Title, error)
}

func genre(id int64) *int64 { return &id }
