package movies

import (
	"context"
	"sort"
	"sync"
)

type MemStore struct {
	mu   sync.RWMutex
	rows []Title
}

func NewMemStore(rows ...Title) *MemStore {
	return &MemStore{rows: append([]Title(nil), rows...)}
}

// NewSeededMemStore is the dev catalog used when no database is configured.
func NewSeededMemStore() *MemStore {
	return NewMemStore(
		Title{ID: 1, Title: "Frozen", PhotoURL: "Frontend/MoviesImagenes/frozen.jpg", ReleaseYear: 2013, DurationMin: 102, Summary: "Anna sets off to find her sister Elsa, whose icy powers have trapped Arendelle in eternal winter.", GenreID: genre(1)},
		Title{ID: 2, Title: "Moana", PhotoURL: "Frontend/MoviesImagenes/moana.jpg", ReleaseYear: 2016, DurationMin: 107, Summary: "A spirited teenager sails across the ocean with the demigod Maui.", GenreID: genre(1)},
		Title{ID: 3, Title: "Coco", PhotoURL: "Frontend/MoviesImagenes/coco.jpg", ReleaseYear: 2017, DurationMin: 105, Summary: "A Pixar journey into the Land of the Dead.", GenreID: genre(2)},
		Title{ID: 4, Title: "Toy Story", PhotoURL: "Frontend/MoviesImagenes/toy_story.jpg", ReleaseYear: 1995, DurationMin: 81, Summary: "Pixar's first feature: Woody and Buzz Lightyear.", GenreID: genre(2)},
		Title{ID: 5, Title: "Black Panther", PhotoURL: "Frontend/MoviesImagenes/black_panther.jpg", ReleaseYear: 2018, DurationMin: 134, Summary: "Marvel Studios: T'Challa returns home to Wakanda.", GenreID: genre(3)},
		Title{ID: 6, Title: "Loki", PhotoURL: "Frontend/MoviesImagenes/loki.jpg", ReleaseYear: 2021, DurationMin: 50, Summary: "Marvel series about the God of Mischief.", GenreID: genre(3), IsSeries: true},
		Title{ID: 7, Title: "The Mandalorian", PhotoURL: "Frontend/MoviesImagenes/mandalorian.jpg", ReleaseYear: 2019, DurationMin: 40, Summary: "A lone bounty hunter in the outer reaches of the Star Wars galaxy.", GenreID: genre(4), IsSeries: true},
		Title{ID: 8, Title: "Rogue One", PhotoURL: "Frontend/MoviesImagenes/rogue_one.jpg", ReleaseYear: 2016, DurationMin: 133, Summary: "A Star Wars story of the rebels who stole the Death Star plans.", GenreID: genre(4)},
		Title{ID: 9, Title: "Free Solo", PhotoURL: "Frontend/MoviesImagenes/free_solo.jpg", ReleaseYear: 2018, DurationMin: 100, Summary: "National Geographic follows Alex Honnold up El Capitan.", GenreID: genre(5)},
	)
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) ListByTitle(ctx context.Context) ([]Title, error) {
	return s.list(func(Title) bool { return true }), nil
}

func (s *MemStore) ListByGenre(ctx context.Context, genreID int64) ([]Title, error) {
	return s.list(func(t Title) bool { return t.GenreID != nil && *t.GenreID == genreID }), nil
}

func (s *MemStore) list(keep func(Title) bool) []Title {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Title, 0, len(s.rows))
	for _, t := range s.rows {
		if keep(t) && !containsRow(out, t) {
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// containsRow mirrors SELECT DISTINCT: rows equal in every column collapse.
func containsRow(rows []Title, t Title) bool {
	for _, r := range rows {
		if sameRow(r, t) {
			return true
		}
	}
	return false
}

func sameRow(a, b Title) bool {
	ga, gb := a.GenreID, b.GenreID
	a.GenreID, b.GenreID = nil, nil
	if a != b {
		return false
	}
	if ga == nil || gb == nil {
		return ga == gb
	}
	return *ga == *gb
}
