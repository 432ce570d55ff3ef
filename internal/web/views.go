package web

import (
	"strconv"

	"StreamCatalog/internal/catalog"
	"StreamCatalog/internal/controls"
)

const (
	msgNoMatches     = "No matching movies found."
	msgNoFavorites   = "No favorites added yet."
	msgTitleNotFound = "Movie not found"
)

var genreLabels = map[int64]string{
	1: "Animation, Family",
	2: "Animation, Comedy",
	3: "Action, Sci-Fi",
	4: "Sci-Fi, Adventure",
	5: "Documentary",
}

func GenreLabel(genreID *int64) string {
	if genreID != nil {
		if l, ok := genreLabels[*genreID]; ok {
			return l
		}
	}
	return "Movie"
}

func Summary(t catalog.Title) string {
	if t.Summary != "" {
		return t.Summary
	}
	return "Experience the magic of " + t.Title + "."
}

// Card is one title in a grid, carousel or the favorites page.
type Card struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Image       string              `json:"image"`
	ReleaseYear int                 `json:"release_year"`
	Duration    string              `json:"duration,omitempty"`
	IsSeries    bool                `json:"is_series"`
	GenreID     *int64              `json:"genre_id"`
	DetailURL   string              `json:"detail_url"`
	PlayOverlay bool                `json:"play_overlay,omitempty"`
	Favorite    controls.ButtonView `json:"favorite"`
	// Record is what the card's favorite button sends back on toggle.
	Record catalog.Title `json:"record"`
}

type Carousel struct {
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
}

type BrowseView struct {
	OK      bool   `json:"ok"`
	Scope   string `json:"scope"`
	Count   int    `json:"count"`
	Cards   []Card `json:"cards"`
	Message string `json:"message,omitempty"`
}

type HomeView struct {
	OK        bool       `json:"ok"`
	Scope     string     `json:"scope"`
	Grid      []Card     `json:"grid"`
	Carousels []Carousel `json:"carousels"`
	Message   string     `json:"message,omitempty"`
}

type DetailView struct {
	OK          bool                `json:"ok"`
	Scope       string              `json:"scope"`
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	PageTitle   string              `json:"page_title"`
	ReleaseYear int                 `json:"release_year"`
	Duration    string              `json:"duration"`
	Genre       string              `json:"genre"`
	Summary     string              `json:"summary"`
	Image       string              `json:"image"`
	TrailerURL  string              `json:"trailer_url,omitempty"`
	IsSeries    bool                `json:"is_series"`
	Favorite    controls.ButtonView `json:"favorite"`
	Record      catalog.Title       `json:"record"`
}

type FavoritesView struct {
	OK      bool   `json:"ok"`
	Scope   string `json:"scope"`
	Count   int    `json:"count"`
	Cards   []Card `json:"cards"`
	Message string `json:"message,omitempty"`
}

// ScopeView is the current state of the buttons a page rendered.
type ScopeView struct {
	OK       bool                  `json:"ok"`
	Scope    string                `json:"scope"`
	Controls []controls.ButtonView `json:"controls"`
}

type ToggleView struct {
	Title    string `json:"title"`
	State    string `json:"state"`
	Favorite bool   `json:"favorite"`
}

func duration(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	return strconv.Itoa(minutes) + "m"
}

func detailURL(id int64) string {
	return "/api/titles/" + strconv.FormatInt(id, 10)
}
