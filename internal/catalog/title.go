package catalog

import (
	"bytes"
	"path"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Title is a catalog record as the browsing side sees it.
type Title struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	PhotoURL    string `json:"photo_url"`
	ReleaseYear int    `json:"release_year"`
	DurationMin int    `json:"duration_min"`
	Summary     string `json:"summary,omitempty"`
	GenreID     *int64 `json:"genre_id"`
	IsSeries    bool   `json:"is_series"`
	TrailerURL  string `json:"trailer_url,omitempty"`
}

type wireTitle struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	PhotoURL    string          `json:"photo_url"`
	ReleaseYear json.RawMessage `json:"release_year"`
	DurationMin json.RawMessage `json:"duration_min"`
	Summary     string          `json:"summary"`
	GenreID     json.RawMessage `json:"genre_id"`
	IsSeries    json.RawMessage `json:"is_series"`
	TrailerURL  string          `json:"trailer_url"`
}

// UnmarshalJSON accepts numbers or numeric strings for the integer fields;
// anything else decodes to 0 (a missing genre stays nil).
func (t *Title) UnmarshalJSON(b []byte) error {
	var w wireTitle
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*t = Title{
		ID:          lenientInt(w.ID),
		Title:       w.Title,
		PhotoURL:    w.PhotoURL,
		ReleaseYear: int(lenientInt(w.ReleaseYear)),
		DurationMin: int(lenientInt(w.DurationMin)),
		Summary:     w.Summary,
		IsSeries:    lenientInt(w.IsSeries) != 0 || string(bytes.TrimSpace(w.IsSeries)) == "true",
		TrailerURL:  w.TrailerURL,
	}
	if raw := bytes.TrimSpace(w.GenreID); len(raw) > 0 && string(raw) != "null" {
		g := lenientInt(raw)
		t.GenreID = &g
	}
	return nil
}

type outTitle struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	PhotoURL    string `json:"photo_url"`
	ReleaseYear int    `json:"release_year"`
	DurationMin int    `json:"duration_min"`
	Summary     string `json:"summary,omitempty"`
	GenreID     *int64 `json:"genre_id"`
	IsSeries    int    `json:"is_series"`
	TrailerURL  string `json:"trailer_url,omitempty"`
}

// MarshalJSON writes the server's shape back out (is_series as 0/1).
func (t Title) MarshalJSON() ([]byte, error) {
	out := outTitle{
		ID:          t.ID,
		Title:       t.Title,
		PhotoURL:    t.PhotoURL,
		ReleaseYear: t.ReleaseYear,
		DurationMin: t.DurationMin,
		Summary:     t.Summary,
		GenreID:     t.GenreID,
		TrailerURL:  t.TrailerURL,
	}
	if t.IsSeries {
		out.IsSeries = 1
	}
	return json.Marshal(out)
}

func lenientInt(raw json.RawMessage) int64 {
	s := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// PhotoFile is the last path segment of the server-relative photo path.
func (t Title) PhotoFile() string {
	if t.PhotoURL == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(t.PhotoURL, "\\", "/"))
}

// LocalPhotoURL rewrites the photo to prefix/<file>, the form the pages
// load images from. Empty photo paths yield prefix + "/".
func (t Title) LocalPhotoURL(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/" + t.PhotoFile()
}
