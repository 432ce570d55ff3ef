package catalog

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// TitleLookup resolves a title to its full record with a fresh catalog
// fetch. Concurrent lookups share one in-flight fetch.
type TitleLookup struct {
	fetcher Fetcher
	group   singleflight.Group
}

func NewTitleLookup(f Fetcher) *TitleLookup {
	return &TitleLookup{fetcher: f}
}

// LookupTitle returns a *FetchError when the catalog cannot be fetched and a
// *LookupError when the title is absent from it.
func (l *TitleLookup) LookupTitle(ctx context.Context, title string) (Title, error) {
	v, err, _ := l.group.Do("all", func() (any, error) {
		return l.fetcher.FetchMovies(context.WithoutCancel(ctx), "")
	})
	if err != nil {
		return Title{}, err
	}

	snap := Snapshot{Titles: v.([]Title)}
	t, ok := snap.FindByTitle(title)
	if !ok {
		return Title{}, &LookupError{Title: title}
	}
	return t, nil
}
