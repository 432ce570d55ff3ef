package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultFetchTimeout    = 5 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerOpenFor  = 30 * time.Second
	maxCatalogBody         = 16 << 20
)

type ClientOptions struct {
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
	Log             *zap.Logger
}

type Client struct {
	BaseURL string
	Client  *http.Client

	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]Title]
	log     *zap.Logger
}

type moviesResponse struct {
	OK     bool    `json:"ok"`
	Movies []Title `json:"movies"`
	Error  string  `json:"error"`
}

func NewClient(baseURL string, opts ClientOptions) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFetchTimeout
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = defaultBreakerFailures
	}
	if opts.BreakerOpenFor <= 0 {
		opts.BreakerOpenFor = defaultBreakerOpenFor
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	c := &Client{
		BaseURL: baseURL,
		Client:  &http.Client{},
		timeout: opts.Timeout,
		log:     opts.Log,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]Title](gobreaker.Settings{
		Name:    "catalog",
		Timeout: opts.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		// A caller abandoning the request says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return c
}

// FetchMovies loads /api/movies, or /api/movies/{genreID} when genreID is set.
// Every failure is a *FetchError matching ErrNetwork.
func (c *Client) FetchMovies(ctx context.Context, genreID string) ([]Title, error) {
	target := c.BaseURL + "/api/movies"
	if genreID != "" {
		target += "/" + url.PathEscape(genreID)
	}

	titles, err := c.breaker.Execute(func() ([]Title, error) {
		return c.fetch(ctx, target)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = ErrBreakerOpen
		}
		return nil, &FetchError{URL: target, Err: err}
	}
	return titles, nil
}

func (c *Client) fetch(ctx context.Context, target string) ([]Title, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	var body moviesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	if !body.OK {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, body.Error)
	}
	if body.Movies == nil {
		body.Movies = []Title{}
	}
	return body.Movies, nil
}

// BreakerState reports the circuit state for readiness output.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}
