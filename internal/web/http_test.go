package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"StreamCatalog/internal/catalog"
	"StreamCatalog/internal/controls"
	"StreamCatalog/internal/favorites"
	"StreamCatalog/internal/movies"
	"StreamCatalog/internal/web"
	"StreamCatalog/pkg/kit"
)

type testEnv struct {
	web     *httptest.Server
	backend *httptest.Server
	hub     *controls.Hub
	storage *favorites.MemStorage
}

func newBackendTS(t *testing.T, store movies.Store) *httptest.Server {
	t.Helper()

	s := &movies.Server{Store: store, Log: zap.NewNop()}
	ts := httptest.NewServer(movies.NewHandler(s, movies.HTTPDeps{Log: zap.NewNop(), Service: "catalog"}))
	t.Cleanup(ts.Close)
	return ts
}

func newEnv(t *testing.T, store movies.Store, tweak func(*web.Server)) *testEnv {
	t.Helper()

	backend := newBackendTS(t, store)
	return newEnvFor(t, backend, controls.HubOptions{}, tweak)
}

func newEnvFor(t *testing.T, backend *httptest.Server, hubOpts controls.HubOptions, tweak func(*web.Server)) *testEnv {
	t.Helper()

	client := catalog.NewClient(backend.URL, catalog.ClientOptions{Timeout: 2 * time.Second})
	hub := controls.NewHub(hubOpts)
	storage := favorites.NewMemStorage(nil)
	register := favorites.NewRegister(storage, favorites.Options{Notifier: hub})

	s := &web.Server{
		Catalog:   catalog.NewStore(client, nil),
		Lookup:    favorites.ProviderFunc(catalog.NewTitleLookup(client).LookupTitle),
		Favorites: register,
		Hub:       hub,
		Log:       zap.NewNop(),
	}
	if tweak != nil {
		tweak(s)
	}

	h, err := web.NewHandler(s, web.Deps{CatalogURL: backend.URL}, web.HTTPDeps{Log: zap.NewNop(), Service: "web"})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return &testEnv{web: ts, backend: backend, hub: hub, storage: storage}
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode: %v body=%s", err, string(raw))
		}
	}
	return resp
}

func titles(cards []web.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Title)
	}
	return out
}

func TestBrowse_FilterSortSearch(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), nil)

	var view web.BrowseView
	resp := doJSON(t, http.MethodGet, env.web.URL+"/api/browse", nil, &view)
	if resp.StatusCode != http.StatusOK || !view.OK || view.Count != 9 || view.Scope == "" {
		t.Fatalf("status=%d view=%+v", resp.StatusCode, view)
	}
	first := view.Cards[0]
	if first.Image != "MoviesImagenes/black_panther.jpg" || first.Favorite.Icon != controls.IconNotFavorite {
		t.Fatalf("card=%+v", first)
	}
	if n := len(env.hub.Controls(view.Scope)); n != 9 {
		t.Fatalf("bound controls=%d", n)
	}

	view = web.BrowseView{}
	doJSON(t, http.MethodGet, env.web.URL+"/api/browse?category=Marvel&sort=newest", nil, &view)
	if got := strings.Join(titles(view.Cards), ","); got != "Loki,Black Panther" {
		t.Fatalf("marvel=%s", got)
	}

	view = web.BrowseView{}
	doJSON(t, http.MethodGet, env.web.URL+"/api/browse?genre=1&sort=oldest", nil, &view)
	if got := strings.Join(titles(view.Cards), ","); got != "Frozen,Moana" {
		t.Fatalf("genre=%s", got)
	}

	view = web.BrowseView{}
	doJSON(t, http.MethodGet, env.web.URL+"/api/browse?series=true", nil, &view)
	if got := strings.Join(titles(view.Cards), ","); got != "Loki,The Mandalorian" {
		t.Fatalf("series=%s", got)
	}

	view = web.BrowseView{}
	doJSON(t, http.MethodGet, env.web.URL+"/api/browse?search=zzz", nil, &view)
	if view.Count != 0 || view.Message != "No matching movies found." {
		t.Fatalf("empty view=%+v", view)
	}
}

func TestHome_Carousels(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), nil)

	var view web.HomeView
	resp := doJSON(t, http.MethodGet, env.web.URL+"/api/home", nil, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if len(view.Grid) != 9 || len(view.Carousels) != 2 {
		t.Fatalf("grid=%d carousels=%d", len(view.Grid), len(view.Carousels))
	}

	cw, nr := view.Carousels[0], view.Carousels[1]
	if cw.Name != "continue_watching" || len(cw.Cards) != 6 || !cw.Cards[0].PlayOverlay {
		t.Fatalf("continue watching=%+v", cw)
	}
	if nr.Name != "new_releases" || len(nr.Cards) != 3 || nr.Cards[0].PlayOverlay {
		t.Fatalf("new releases=%+v", nr)
	}
	if nr.Cards[0].Title != "Rogue One" {
		t.Fatalf("new releases start=%s", nr.Cards[0].Title)
	}
	if n := len(env.hub.Controls(view.Scope)); n != 18 {
		t.Fatalf("bound controls=%d", n)
	}
}

func TestDetail(t *testing.T) {
	store := movies.NewMemStore(
		movies.Title{ID: 3, Title: "Coco", PhotoURL: "Frontend/MoviesImagenes/coco.jpg", ReleaseYear: 2017, DurationMin: 105, Summary: "Land of the Dead.", GenreID: ptr(2), TrailerURL: "https://example.test/coco"},
		movies.Title{ID: 11, Title: "Mystery", ReleaseYear: 2020, GenreID: ptr(42)},
	)
	env := newEnv(t, store, nil)

	var view web.DetailView
	resp := doJSON(t, http.MethodGet, env.web.URL+"/api/titles/3", nil, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if view.Title != "COCO" || view.PageTitle != "Coco | Disney+" || view.Genre != "Animation, Comedy" ||
		view.Image != "MoviesImagenes/coco.jpg" || view.Duration != "105m" || view.TrailerURL == "" {
		t.Fatalf("view=%+v", view)
	}
	if view.Favorite.Context != controls.ContextDetail {
		t.Fatalf("button=%+v", view.Favorite)
	}

	view = web.DetailView{}
	doJSON(t, http.MethodGet, env.web.URL+"/api/titles/11", nil, &view)
	if view.Genre != "Movie" || view.Summary != "Experience the magic of Mystery." {
		t.Fatalf("fallbacks=%+v", view)
	}

	for _, path := range []string{"/api/titles/99", "/api/titles/abc"} {
		var e kit.ErrorResponse
		resp := doJSON(t, http.MethodGet, env.web.URL+path, nil, &e)
		if resp.StatusCode != http.StatusNotFound || e.Error != "not_found" {
			t.Fatalf("%s status=%d body=%+v", path, resp.StatusCode, e)
		}
	}
}

func TestToggle_FlowUpdatesControlsAndFavoritesPage(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), nil)

	var browse web.BrowseView
	doJSON(t, http.MethodGet, env.web.URL+"/api/browse", nil, &browse)

	var coco web.Card
	for _, c := range browse.Cards {
		if c.Title == "Coco" {
			coco = c
		}
	}

	// The card's own attributes are the record.
	var tv web.ToggleView
	resp := doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle",
		map[string]any{"title": "Coco", "record": coco.Record}, &tv)
	if resp.StatusCode != http.StatusOK || tv.State != "added" || !tv.Favorite {
		t.Fatalf("status=%d toggle=%+v", resp.StatusCode, tv)
	}

	for _, c := range env.hub.Controls(browse.Scope) {
		b := c.(*controls.Button)
		if b.Favorite() != (b.Title() == "Coco") {
			t.Fatalf("control %s favorite=%v", b.Title(), b.Favorite())
		}
	}

	// No record: the catalog lookup supplies it.
	resp = doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle", map[string]any{"title": "Loki"}, &tv)
	if resp.StatusCode != http.StatusOK || tv.State != "added" {
		t.Fatalf("status=%d toggle=%+v", resp.StatusCode, tv)
	}

	var fav web.FavoritesView
	doJSON(t, http.MethodGet, env.web.URL+"/api/favorites?sort=year_desc", nil, &fav)
	if got := strings.Join(titles(fav.Cards), ","); got != "Loki,Coco" {
		t.Fatalf("favorites=%s", got)
	}
	if fav.Cards[0].Image != "MoviesImagenes/loki.jpg" || !fav.Cards[0].Favorite.Favorite {
		t.Fatalf("card=%+v", fav.Cards[0])
	}

	fav = web.FavoritesView{}
	doJSON(t, http.MethodGet, env.web.URL+"/api/favorites?genre=2", nil, &fav)
	if got := strings.Join(titles(fav.Cards), ","); got != "Coco" {
		t.Fatalf("favorites genre=%s", got)
	}

	// Favoriting Coco again removes it.
	resp = doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle", map[string]any{"title": "Coco"}, &tv)
	if resp.StatusCode != http.StatusOK || tv.State != "removed" || tv.Favorite {
		t.Fatalf("status=%d toggle=%+v", resp.StatusCode, tv)
	}

	resp = doJSON(t, http.MethodDelete, env.web.URL+"/api/favorites/Loki", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status=%d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodDelete, env.web.URL+"/api/favorites/Loki", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status=%d", resp.StatusCode)
	}

	fav = web.FavoritesView{}
	doJSON(t, http.MethodGet, env.web.URL+"/api/favorites", nil, &fav)
	if fav.Count != 0 || fav.Message != "No favorites added yet." {
		t.Fatalf("favorites=%+v", fav)
	}
}

func TestToggle_Errors(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), nil)

	var e kit.ErrorResponse
	resp := doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle", map[string]any{"title": "  "}, &e)
	if resp.StatusCode != http.StatusBadRequest || e.Error != "invalid_request" {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, e)
	}

	e = kit.ErrorResponse{}
	resp = doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle", map[string]any{"title": "Bambi"}, &e)
	if resp.StatusCode != http.StatusNotFound || e.Error != "not_found" {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, e)
	}
	if string(env.storage.Bytes()) != "" {
		t.Fatalf("storage written: %s", env.storage.Bytes())
	}

	env.backend.Close()

	e = kit.ErrorResponse{}
	resp = doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle", map[string]any{"title": "Coco"}, &e)
	if resp.StatusCode != http.StatusBadGateway || e.Error != "catalog_unavailable" {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, e)
	}
}

func TestToggle_RateLimited(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), func(s *web.Server) {
		s.ToggleLimiter = kit.NewIPRateLimiter(1, time.Minute)
	})

	body := map[string]any{"title": "Coco", "record": map[string]any{"title": "Coco"}}
	if resp := doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle", body, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("first status=%d", resp.StatusCode)
	}

	var e kit.ErrorResponse
	resp := doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle", body, &e)
	if resp.StatusCode != http.StatusTooManyRequests || e.Error != "rate_limited" {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, e)
	}
}

func TestCatalogDown_ErrorBlock(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), nil)
	env.backend.Close()

	for _, path := range []string{"/api/browse", "/api/home", "/api/titles/1", "/api/movies"} {
		var e kit.ErrorResponse
		resp := doJSON(t, http.MethodGet, env.web.URL+path, nil, &e)
		if resp.StatusCode != http.StatusBadGateway {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
		if e.OK || e.Error != "catalog_unavailable" || e.Message != "Error loading the catalog." {
			t.Fatalf("%s body=%+v", path, e)
		}
	}

	if resp := doJSON(t, http.MethodGet, env.web.URL+"/readyz", nil, nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}

	// The favorites page needs no catalog.
	if resp := doJSON(t, http.MethodGet, env.web.URL+"/api/favorites", nil, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("favorites status=%d", resp.StatusCode)
	}
}

func TestMoviesProxyAndHealth(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), nil)

	var body struct {
		OK     bool             `json:"ok"`
		Movies []map[string]any `json:"movies"`
	}
	resp := doJSON(t, http.MethodGet, env.web.URL+"/api/movies/3", nil, &body)
	if resp.StatusCode != http.StatusOK || !body.OK || len(body.Movies) != 2 {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, body)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		if resp := doJSON(t, http.MethodGet, env.web.URL+path, nil, nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d", path, resp.StatusCode)
		}
	}
}

func TestUnbindScope(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), nil)

	var view web.BrowseView
	doJSON(t, http.MethodGet, env.web.URL+"/api/browse", nil, &view)

	if resp := doJSON(t, http.MethodDelete, env.web.URL+"/api/scopes/"+view.Scope, nil, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if resp := doJSON(t, http.MethodDelete, env.web.URL+"/api/scopes/"+view.Scope, nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second status=%d", resp.StatusCode)
	}
	if env.hub.ScopeCount() != 0 {
		t.Fatalf("scopes=%d", env.hub.ScopeCount())
	}
}

func TestRenders_ScopesStayBounded(t *testing.T) {
	backend := newBackendTS(t, movies.NewSeededMemStore())
	env := newEnvFor(t, backend, controls.HubOptions{MaxScopes: 8}, nil)

	var last web.BrowseView
	for i := 0; i < 200; i++ {
		last = web.BrowseView{}
		if resp := doJSON(t, http.MethodGet, env.web.URL+"/api/browse", nil, &last); resp.StatusCode != http.StatusOK {
			t.Fatalf("status=%d", resp.StatusCode)
		}
	}
	if n := env.hub.ScopeCount(); n != 8 {
		t.Fatalf("scopes=%d", n)
	}

	var sv web.ScopeView
	if resp := doJSON(t, http.MethodGet, env.web.URL+"/api/scopes/"+last.Scope, nil, &sv); resp.StatusCode != http.StatusOK {
		t.Fatalf("latest scope status=%d", resp.StatusCode)
	}
}

func TestScopeViews_ReflectToggles(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), nil)

	var browse web.BrowseView
	doJSON(t, http.MethodGet, env.web.URL+"/api/browse", nil, &browse)

	var tv web.ToggleView
	resp := doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle",
		map[string]any{"title": "Coco", "record": map[string]any{"title": "Coco"}}, &tv)
	if resp.StatusCode != http.StatusOK || tv.State != "added" {
		t.Fatalf("status=%d toggle=%+v", resp.StatusCode, tv)
	}

	var sv web.ScopeView
	resp = doJSON(t, http.MethodGet, env.web.URL+"/api/scopes/"+browse.Scope, nil, &sv)
	if resp.StatusCode != http.StatusOK || !sv.OK || sv.Scope != browse.Scope || len(sv.Controls) != len(browse.Cards) {
		t.Fatalf("status=%d view=%+v", resp.StatusCode, sv)
	}
	for _, v := range sv.Controls {
		if v.Favorite != (v.Title == "Coco") {
			t.Fatalf("control=%+v", v)
		}
		if v.Favorite && v.Icon != controls.IconFavorite {
			t.Fatalf("control=%+v", v)
		}
	}

	var e kit.ErrorResponse
	resp = doJSON(t, http.MethodGet, env.web.URL+"/api/scopes/missing", nil, &e)
	if resp.StatusCode != http.StatusNotFound || e.Error != "not_found" {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, e)
	}
}

func TestRemoveFavorite_EscapedTitles(t *testing.T) {
	env := newEnv(t, movies.NewSeededMemStore(), nil)

	for _, title := range []string{"A%41", "AC/DC"} {
		resp := doJSON(t, http.MethodPost, env.web.URL+"/api/favorites/toggle",
			map[string]any{"title": title, "record": map[string]any{"title": title}}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s toggle status=%d", title, resp.StatusCode)
		}
	}

	cases := []struct {
		path  string
		title string
	}{
		{"/api/favorites/A%2541", "A%41"},
		{"/api/favorites/AC%2FDC", "AC/DC"},
	}
	for _, tc := range cases {
		var tv web.ToggleView
		resp := doJSON(t, http.MethodDelete, env.web.URL+tc.path, nil, &tv)
		if resp.StatusCode != http.StatusOK || tv.Title != tc.title || tv.State != "removed" {
			t.Fatalf("%s status=%d view=%+v", tc.path, resp.StatusCode, tv)
		}
	}

	if strings.TrimSpace(string(env.storage.Bytes())) != "[]" {
		t.Fatalf("storage=%s", env.storage.Bytes())
	}
}

func ptr(v int64) *int64 { return &v }
