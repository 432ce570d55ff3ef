package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches every failed catalog fetch: transport errors,
	// non-2xx responses, ok:false bodies and an open breaker.
	ErrNetwork = errors.New("catalog fetch failed")

	ErrUnavailable = errors.New("catalog unavailable")
	ErrBadStatus   = errors.New("catalog bad status")
	ErrUpstream    = errors.New("catalog upstream error")
	ErrBreakerOpen = errors.New("catalog circuit open")

	ErrLookup = errors.New("title not found in catalog")
)

type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrNetwork, e.Err} }

type LookupError struct {
	Title string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %q: %v", e.Title, ErrLookup)
}

func (e *LookupError) Unwrap() error { return ErrLookup }
