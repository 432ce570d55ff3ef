package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"StreamCatalog/internal/catalog"
	"StreamCatalog/internal/controls"
	"StreamCatalog/internal/favorites"
	"StreamCatalog/pkg/kit"
)

const (
	errCatalogUnavailable = "catalog_unavailable"
	msgCatalogUnavailable = "Error loading the catalog."

	errInvalidRequest = "invalid_request"
	errNotFound       = "not_found"
	errStorage        = "storage_error"
	errInternal       = "internal_error"

	defaultCarouselSize = 6
	maxToggleBody       = 64 << 10
)

// Server renders the browsing pages as JSON view models and owns the
// favorite toggle flow.
type Server struct {
	Catalog   *catalog.Store
	Lookup    favorites.RecordProvider
	Favorites *favorites.Register
	Hub       *controls.Hub

	Log     *zap.Logger
	Metrics *kit.Metrics
	Service string

	ImagePrefix   string
	CarouselSize  int
	ToggleLimiter *kit.IPRateLimiter

	validate *validator.Validate
}

type toggleRequest struct {
	Title  string         `json:"title" validate:"required,max=500"`
	Record *catalog.Title `json:"record"`
}

func (s *Server) Routes() http.Handler {
	s.validate = validator.New(validator.WithRequiredStructEnabled())

	r := chi.NewRouter()

	r.Get("/api/browse", s.browse)
	r.Get("/api/home", s.home)
	r.Get("/api/titles/{id}", s.detail)

	r.Route("/api/favorites", func(rr chi.Router) {
		rr.Get("/", s.favoritesPage)
		if s.ToggleLimiter != nil {
			rr.With(s.ToggleLimiter.Middleware).Post("/toggle", s.toggle)
		} else {
			rr.Post("/toggle", s.toggle)
		}
		rr.Delete("/{title}", s.removeFavorite)
	})

	r.Get("/api/scopes/{scope}", s.scopeViews)
	r.Delete("/api/scopes/{scope}", s.unbindScope)

	if s.Hub != nil {
		r.Get("/ws", s.Hub.ServeWS)
	}

	return r
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) service() string {
	if s.Service == "" {
		return "web"
	}
	return s.Service
}

func (s *Server) imagePrefix() string {
	if s.ImagePrefix == "" {
		return "MoviesImagenes"
	}
	return s.ImagePrefix
}

func (s *Server) browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	snap, ok := s.load(w, r, q.Get("genre"))
	if !ok {
		return
	}

	titles := snap.Query(q.Get("category"), q.Get("sort"), q.Get("search"))
	if isTrue(q.Get("series")) {
		titles = onlySeries(titles)
	}

	favs := s.Favorites.Set(r.Context())
	b := newBinding()
	cards := b.cards(titles, controls.ContextGrid, favs, s.imagePrefix(), false)
	scope := s.bind(b)

	view := BrowseView{OK: true, Scope: scope, Count: len(cards), Cards: cards}
	if len(cards) == 0 {
		view.Message = msgNoMatches
	}
	kit.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	snap, ok := s.load(w, r, "")
	if !ok {
		return
	}

	size := s.CarouselSize
	if size <= 0 {
		size = defaultCarouselSize
	}

	favs := s.Favorites.Set(r.Context())
	prefix := s.imagePrefix()
	b := newBinding()

	grid := b.cards(snap.Query(q.Get("category"), q.Get("sort"), q.Get("search")), controls.ContextGrid, favs, prefix, false)
	continueWatching := b.cards(window(snap.Titles, 0, size), controls.ContextCarousel, favs, prefix, true)
	newReleases := b.cards(window(snap.Titles, size, 2*size), controls.ContextCarousel, favs, prefix, false)

	view := HomeView{
		OK:    true,
		Scope: s.bind(b),
		Grid:  grid,
		Carousels: []Carousel{
			{Name: "continue_watching", Cards: continueWatching},
			{Name: "new_releases", Cards: newReleases},
		},
	}
	if len(grid) == 0 {
		view.Message = msgNoMatches
	}
	kit.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusNotFound, errNotFound, msgTitleNotFound, nil)
		return
	}

	snap, ok := s.load(w, r, "")
	if !ok {
		return
	}

	t, found := snap.FindByID(id)
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, errNotFound, msgTitleNotFound, nil)
		return
	}

	btn := controls.NewButton(t.Title, controls.ContextDetail, s.Favorites.IsFavorite(r.Context(), t.Title))
	b := newBinding()
	b.add(btn)

	kit.WriteJSON(w, http.StatusOK, DetailView{
		OK:          true,
		Scope:       s.bind(b),
		ID:          t.ID,
		Title:       strings.ToUpper(t.Title),
		PageTitle:   t.Title + " | Disney+",
		ReleaseYear: t.ReleaseYear,
		Duration:    duration(t.DurationMin),
		Genre:       GenreLabel(t.GenreID),
		Summary:     Summary(t),
		Image:       t.LocalPhotoURL(s.imagePrefix()),
		TrailerURL:  t.TrailerURL,
		IsSeries:    t.IsSeries,
		Favorite:    btn.View(),
		Record:      t,
	})
}

func (s *Server) favoritesPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	list := s.Favorites.List(r.Context(), favorites.ListQuery{
		Search: q.Get("search"),
		Genre:  q.Get("genre"),
		Sort:   q.Get("sort"),
	})

	favs := make(favorites.Set, len(list))
	for _, t := range list {
		favs[t.Title] = struct{}{}
	}

	b := newBinding()
	// Stored photo paths are already local.
	cards := b.cards(list, controls.ContextFavorites, favs, "", false)

	view := FavoritesView{OK: true, Scope: s.bind(b), Count: len(cards), Cards: cards}
	if len(cards) == 0 {
		view.Message = msgNoFavorites
	}
	kit.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxToggleBody)).Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, errInvalidRequest, "invalid json", nil)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validate.Struct(req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, errInvalidRequest, "title is required", nil)
		return
	}

	provider := s.Lookup
	if req.Record != nil {
		provider = favorites.StaticRecord(*req.Record)
	}

	state, err := s.Favorites.Toggle(r.Context(), req.Title, provider)
	view := ToggleView{Title: req.Title, State: string(state), Favorite: state.Favorite()}
	if err != nil {
		s.toggleError(w, r, err, view)
		return
	}

	kit.WriteJSON(w, http.StatusOK, view)
}

func (s *Server) toggleError(w http.ResponseWriter, r *http.Request, err error, view ToggleView) {
	var lookupErr *catalog.LookupError
	switch {
	case errors.Is(err, catalog.ErrNetwork):
		kit.WriteError(w, r, http.StatusBadGateway, errCatalogUnavailable, msgCatalogUnavailable, view)
	case errors.As(err, &lookupErr):
		kit.WriteError(w, r, http.StatusNotFound, errNotFound, msgTitleNotFound, view)
	case errors.Is(err, favorites.ErrNoProvider):
		kit.WriteError(w, r, http.StatusServiceUnavailable, errCatalogUnavailable, msgCatalogUnavailable, view)
	default:
		s.logger().Error("favorite toggle failed", zap.Error(err), zap.String("title", view.Title))
		kit.WriteError(w, r, http.StatusInternalServerError, errStorage, "", view)
	}
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	title := chi.URLParam(r, "title")
	// chi matches on RawPath when the path carries escaped slashes, so the
	// param is still encoded only in that case.
	if r.URL.RawPath != "" {
		if t, err := url.PathUnescape(title); err == nil {
			title = t
		}
	}

	removed, err := s.Favorites.Remove(r.Context(), title)
	if err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, errStorage, "", nil)
		return
	}
	if !removed {
		kit.WriteError(w, r, http.StatusNotFound, errNotFound, "", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, ToggleView{Title: title, State: string(favorites.StateRemoved)})
}

func (s *Server) scopeViews(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")
	if s.Hub == nil {
		kit.WriteError(w, r, http.StatusNotFound, errNotFound, "", nil)
		return
	}
	views, ok := s.Hub.Views(scope)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, errNotFound, "", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, ScopeView{OK: true, Scope: scope, Controls: views})
}

func (s *Server) unbindScope(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil || !s.Hub.Unbind(chi.URLParam(r, "scope")) {
		kit.WriteError(w, r, http.StatusNotFound, errNotFound, "", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the catalog and writes the error block on failure.
func (s *Server) load(w http.ResponseWriter, r *http.Request, genreID string) (catalog.Snapshot, bool) {
	snap, err := s.Catalog.LoadGenre(r.Context(), strings.TrimSpace(genreID))
	if err != nil {
		s.Metrics.Event(s.service(), "catalog_load", "error")
		s.catalogError(w, r, err)
		return catalog.Snapshot{}, false
	}
	s.Metrics.Event(s.service(), "catalog_load", "ok")
	return snap, true
}

func (s *Server) catalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNetwork):
		kit.WriteError(w, r, http.StatusBadGateway, errCatalogUnavailable, msgCatalogUnavailable, nil)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		s.logger().Error("catalog load failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, errInternal, "", nil)
	}
}

func (s *Server) bind(b *binding) string {
	scope := uuid.NewString()
	if s.Hub != nil {
		s.Hub.Bind(scope, b.controls...)
	}
	return scope
}

// binding collects the buttons rendered for one page.
type binding struct {
	controls []controls.Control
}

func newBinding() *binding { return &binding{} }

func (b *binding) add(btn *controls.Button) {
	b.controls = append(b.controls, btn)
}

func (b *binding) cards(titles []catalog.Title, ctx controls.Context, favs favorites.Set, prefix string, overlay bool) []Card {
	out := make([]Card, 0, len(titles))
	for _, t := range titles {
		btn := controls.NewButton(t.Title, ctx, favs.Has(t.Title))
		b.add(btn)

		image := t.PhotoURL
		if prefix != "" {
			image = t.LocalPhotoURL(prefix)
		}

		out = append(out, Card{
			ID:          t.ID,
			Title:       t.Title,
			Image:       image,
			ReleaseYear: t.ReleaseYear,
			Duration:    duration(t.DurationMin),
			IsSeries:    t.IsSeries,
			GenreID:     t.GenreID,
			DetailURL:   detailURL(t.ID),
			PlayOverlay: overlay,
			Favorite:    btn.View(),
			Record:      t,
		})
	}
	return out
}

func window(titles []catalog.Title, from, to int) []catalog.Title {
	if from >= len(titles) {
		return nil
	}
	if to > len(titles) {
		to = len(titles)
	}
	return titles[from:to]
}

func onlySeries(titles []catalog.Title) []catalog.Title {
	out := make([]catalog.Title, 0, len(titles))
	for _, t := range titles {
		if t.IsSeries {
			out = append(out, t)
		}
	}
	return out
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
