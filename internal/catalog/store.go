package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Fetcher is satisfied by *Client.
type Fetcher interface {
	FetchMovies(ctx context.Context, genreID string) ([]Title, error)
}

// Snapshot is one fetched catalog, immutable once returned.
type Snapshot struct {
	GenreID  string
	Titles   []Title
	LoadedAt time.Time
}

func (s Snapshot) Query(filterTag, sortKey, searchTerm string) []Title {
	return Query(s.Titles, filterTag, sortKey, searchTerm)
}

func (s Snapshot) FindByTitle(title string) (Title, bool) {
	for _, t := range s.Titles {
		if t.Title == title {
			return t, true
		}
	}
	return Title{}, false
}

func (s Snapshot) FindByID(id int64) (Title, bool) {
	for _, t := range s.Titles {
		if t.ID == id {
			return t, true
		}
	}
	return Title{}, false
}

// Store keeps the last fetched snapshot. A load replaces it wholesale; a
// failed load leaves the previous snapshot in place.
type Store struct {
	fetcher Fetcher
	log     *zap.Logger
	now     func() time.Time

	mu   sync.RWMutex
	snap Snapshot
}

func NewStore(f Fetcher, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{fetcher: f, log: log, now: time.Now}
}

func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	return s.LoadGenre(ctx, "")
}

func (s *Store) LoadGenre(ctx context.Context, genreID string) (Snapshot, error) {
	titles, err := s.fetcher.FetchMovies(ctx, genreID)
	if err != nil {
		s.log.Error("catalog load failed", zap.Error(err), zap.String("genre_id", genreID))
		return Snapshot{}, err
	}

	snap := Snapshot{GenreID: genreID, Titles: titles, LoadedAt: s.now()}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.log.Debug("catalog loaded", zap.Int("titles", len(titles)), zap.String("genre_id", genreID))
	return snap, nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) Len() int {
	return len(s.Snapshot().Titles)
}

func (s *Store) Query(filterTag, sortKey, searchTerm string) []Title {
	return s.Snapshot().Query(filterTag, sortKey, searchTerm)
}

func (s *Store) FindByTitle(title string) (Title, bool) {
	return s.Snapshot().FindByTitle(title)
}

func (s *Store) FindByID(id int64) (Title, bool) {
	return s.Snapshot().FindByID(id)
}
