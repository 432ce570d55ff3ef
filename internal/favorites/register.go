package favorites

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"StreamCatalog/internal/catalog"
	"StreamCatalog/pkg/kit"
)

type State string

const (
	StateAdded   State = "added"
	StateRemoved State = "removed"
)

func (s State) Favorite() bool { return s == StateAdded }

// Notifier pushes a favorite change to every rendered control.
type Notifier interface {
	NotifyAll(title string, favorite bool) int
}

// RecordProvider supplies the full record stored when a title is added.
type RecordProvider interface {
	Record(ctx context.Context, title string) (catalog.Title, error)
}

type ProviderFunc func(ctx context.Context, title string) (catalog.Title, error)

func (f ProviderFunc) Record(ctx context.Context, title string) (catalog.Title, error) {
	return f(ctx, title)
}

// StaticRecord provides a record already at hand, such as the attributes of
// the control that was clicked.
func StaticRecord(t catalog.Title) RecordProvider {
	return ProviderFunc(func(_ context.Context, title string) (catalog.Title, error) {
		if t.Title == "" {
			t.Title = title
		}
		return t, nil
	})
}

var ErrNoProvider = errors.New("favorites: no record provider")

type Options struct {
	Notifier    Notifier
	ImagePrefix string
	Log         *zap.Logger
	Metrics     *kit.Metrics
	Service     string
}

// Register is the persisted set of favorite titles. Mutations are serialized
// in-process and always re-read storage before writing, so a write from
// another process is picked up rather than overwritten.
type Register struct {
	storage     Storage
	notifier    Notifier
	imagePrefix string
	log         *zap.Logger
	metrics     *kit.Metrics
	service     string

	mu sync.Mutex
}

func NewRegister(s Storage, opts Options) *Register {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.ImagePrefix == "" {
		opts.ImagePrefix = "MoviesImagenes"
	}
	if opts.Service == "" {
		opts.Service = "web"
	}
	return &Register{
		storage:     s,
		notifier:    opts.Notifier,
		imagePrefix: opts.ImagePrefix,
		log:         opts.Log,
		metrics:     opts.Metrics,
		service:     opts.Service,
	}
}

// load reads the stored entries. A storage failure is returned; data that
// does not decode is logged and treated as an empty collection.
func (r *Register) load(ctx context.Context) ([]Entry, error) {
	data, err := r.storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}

	entries, unknown, err := decodeEntries(data)
	if err != nil {
		r.log.Warn("favorites data unreadable, starting empty", zap.Error(err))
		return nil, nil
	}
	if unknown > 0 {
		r.log.Warn("favorites entries not understood, kept as is", zap.Int("unknown", unknown))
	}
	return entries, nil
}

// read is load for rendering: on failure nothing is a favorite.
func (r *Register) read(ctx context.Context) []Entry {
	entries, err := r.load(ctx)
	if err != nil {
		r.log.Warn("favorites load failed", zap.Error(err))
		return nil
	}
	return entries
}

func (r *Register) save(ctx context.Context, entries []Entry) error {
	data, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	return r.storage.Save(ctx, data)
}

func (r *Register) IsFavorite(ctx context.Context, title string) bool {
	return indexOf(r.read(ctx), title) >= 0
}

// Set is a point-in-time view of favorite titles for rendering many controls.
type Set map[string]struct{}

func (s Set) Has(title string) bool {
	_, ok := s[title]
	return ok
}

func (r *Register) Set(ctx context.Context) Set {
	entries := r.read(ctx)
	out := make(Set, len(entries))
	for _, e := range entries {
		if e.IsUnknown() {
			continue
		}
		out[e.Title()] = struct{}{}
	}
	return out
}

func (r *Register) Entries(ctx context.Context) []Entry {
	entries := r.read(ctx)
	if entries == nil {
		entries = []Entry{}
	}
	return entries
}

// Toggle removes title when present and adds it otherwise. Adding asks p for
// the full record. When p fails nothing is stored, and controls are told the
// stored state, which is StateRemoved unless another toggle added it
// meanwhile. When storage cannot be read nothing is written or notified.
func (r *Register) Toggle(ctx context.Context, title string, p RecordProvider) (State, error) {
	state, err := r.toggle(ctx, title, p)
	outcome := string(state)
	if err != nil {
		outcome = "error"
	}
	r.metrics.Event(r.service, "favorite_toggle", outcome)
	return state, err
}

// Every write and its notification happen under r.mu, so controls see
// changes in the order they were stored.
func (r *Register) toggle(ctx context.Context, title string, p RecordProvider) (State, error) {
	r.mu.Lock()
	entries, err := r.load(ctx)
	if err != nil {
		r.mu.Unlock()
		r.log.Error("favorite toggle aborted", zap.Error(err), zap.String("title", title))
		return StateRemoved, err
	}
	if i := indexOf(entries, title); i >= 0 {
		defer r.mu.Unlock()
		entries = append(entries[:i:i], entries[i+1:]...)
		if err := r.save(ctx, entries); err != nil {
			r.log.Error("favorites save failed", zap.Error(err), zap.String("title", title))
			r.NotifyAll(title, StateAdded)
			return StateAdded, err
		}
		r.log.Info("favorite removed", zap.String("title", title))
		r.NotifyAll(title, StateRemoved)
		return StateRemoved, nil
	}
	r.mu.Unlock()

	// The provider may hit the network; don't hold the lock across it.
	rec, recErr := r.record(ctx, title, p)

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err = r.load(ctx)
	if err != nil {
		r.log.Error("favorite toggle aborted", zap.Error(err), zap.String("title", title))
		return StateRemoved, err
	}
	present := indexOf(entries, title) >= 0

	if recErr != nil {
		r.log.Warn("favorite add abandoned", zap.Error(recErr), zap.String("title", title))
		state := StateRemoved
		if present {
			state = StateAdded
		}
		r.NotifyAll(title, state)
		return state, recErr
	}
	if present {
		r.NotifyAll(title, StateAdded)
		return StateAdded, nil
	}

	entries = append(entries, Entry{Record: &rec})
	if err := r.save(ctx, entries); err != nil {
		r.log.Error("favorites save failed", zap.Error(err), zap.String("title", title))
		r.NotifyAll(title, StateRemoved)
		return StateRemoved, err
	}
	r.log.Info("favorite added", zap.String("title", title))
	r.NotifyAll(title, StateAdded)
	return StateAdded, nil
}

func (r *Register) record(ctx context.Context, title string, p RecordProvider) (catalog.Title, error) {
	if p == nil {
		return catalog.Title{}, ErrNoProvider
	}
	rec, err := p.Record(ctx, title)
	if err != nil {
		return catalog.Title{}, err
	}
	rec.Title = title
	rec.PhotoURL = rec.LocalPhotoURL(r.imagePrefix)
	return rec, nil
}

// NotifyAll reports how many controls were updated.
func (r *Register) NotifyAll(title string, state State) int {
	if r.notifier == nil {
		return 0
	}
	return r.notifier.NotifyAll(title, state.Favorite())
}

// Remove deletes title, legacy string entries included. It reports whether
// anything was removed. Entries it does not understand are written back as
// they were read.
func (r *Register) Remove(ctx context.Context, title string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil {
		r.log.Error("favorite remove aborted", zap.Error(err), zap.String("title", title))
		return false, err
	}
	i := indexOf(entries, title)
	if i < 0 {
		return false, nil
	}
	entries = append(entries[:i:i], entries[i+1:]...)
	if err := r.save(ctx, entries); err != nil {
		r.log.Error("favorites save failed", zap.Error(err), zap.String("title", title))
		return false, err
	}
	r.metrics.Event(r.service, "favorite_remove", "ok")
	r.NotifyAll(title, StateRemoved)
	return true, nil
}

const (
	SortTitleAsc  = "title_asc"
	SortTitleDesc = "title_desc"
	SortYearDesc  = "year_desc"
	SortYearAsc   = "year_asc"
)

type ListQuery struct {
	Search string
	// Genre is a numeric genre id; empty means every genre.
	Genre string
	Sort  string
}

// List returns the stored records for the favorites page. Legacy and unknown
// entries carry no record and are left out.
func (r *Register) List(ctx context.Context, q ListQuery) []catalog.Title {
	term := strings.ToLower(strings.TrimSpace(q.Search))

	genre := strings.TrimSpace(q.Genre)
	var genreID int64
	filterGenre := genre != ""
	validGenre := true
	if filterGenre {
		n, err := strconv.ParseInt(genre, 10, 64)
		genreID, validGenre = n, err == nil
	}

	out := []catalog.Title{}
	for _, e := range r.read(ctx) {
		if e.Record == nil {
			continue
		}
		t := *e.Record
		if term != "" && !strings.Contains(strings.ToLower(t.Title), term) {
			continue
		}
		if filterGenre && (!validGenre || t.GenreID == nil || *t.GenreID != genreID) {
			continue
		}
		out = append(out, t)
	}

	sortList(out, q.Sort)
	return out
}

func sortList(titles []catalog.Title, key string) {
	if key == "" {
		key = SortTitleAsc
	}
	var less func(a, b catalog.Title) bool
	switch key {
	case SortTitleAsc:
		less = func(a, b catalog.Title) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case SortTitleDesc:
		less = func(a, b catalog.Title) bool { return strings.ToLower(a.Title) > strings.ToLower(b.Title) }
	case SortYearDesc:
		less = func(a, b catalog.Title) bool { return a.ReleaseYear > b.ReleaseYear }
	case SortYearAsc:
		less = func(a, b catalog.Title) bool { return a.ReleaseYear < b.ReleaseYear }
	default:
		return
	}
	sort.SliceStable(titles, func(i, j int) bool { return less(titles[i], titles[j]) })
}
