package controls

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	MessageTypeFavorite = "favorite"
	// MessageTypeScope is sent by a tab to tie a rendered scope to its
	// connection; the scope goes away when the tab disconnects.
	MessageTypeScope = "scope"
)

const (
	DefaultScopeTTL  = 30 * time.Minute
	DefaultMaxScopes = 1024
)

// Message is pushed to every connected tab when a favorite changes.
type Message struct {
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	State    string `json:"state,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Favorite bool   `json:"favorite"`
}

// Viewer is implemented by controls that can render their current state.
type Viewer interface {
	View() ButtonView
}

type scope struct {
	controls []Control
	boundAt  time.Time
	owner    *Client
}

// Hub holds the controls of each rendered page (its scope) and the open
// websocket clients. Scopes expire after ScopeTTL without a re-bind, and at
// most MaxScopes are kept, oldest evicted first.
type Hub struct {
	log       *zap.Logger
	upgrader  websocket.Upgrader
	ttl       time.Duration
	maxScopes int
	now       func() time.Time

	mu      sync.RWMutex
	scopes  map[string]*scope
	clients map[*Client]struct{}
}

type HubOptions struct {
	Log *zap.Logger
	// AllowedOrigins for websocket upgrades; "*" allows any. Empty keeps the
	// same-origin check.
	AllowedOrigins []string
	ScopeTTL       time.Duration
	MaxScopes      int
}

func NewHub(opts HubOptions) *Hub {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.ScopeTTL <= 0 {
		opts.ScopeTTL = DefaultScopeTTL
	}
	if opts.MaxScopes <= 0 {
		opts.MaxScopes = DefaultMaxScopes
	}
	h := &Hub{
		log:       opts.Log,
		ttl:       opts.ScopeTTL,
		maxScopes: opts.MaxScopes,
		now:       time.Now,
		scopes:    make(map[string]*scope),
		clients:   make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
	}
	if len(opts.AllowedOrigins) > 0 {
		allowed := append([]string(nil), opts.AllowedOrigins...)
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, a := range allowed {
				if a == "*" || a == origin {
					return true
				}
			}
			h.log.Warn("websocket origin rejected", zap.String("origin", origin))
			return false
		}
	}
	return h
}

// Bind replaces the controls registered under id. Pages re-bind after
// every render.
func (h *Hub) Bind(id string, controls ...Control) {
	cs := append([]Control(nil), controls...)

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	sc := &scope{controls: cs, boundAt: now}
	if old, ok := h.scopes[id]; ok {
		sc.owner = old.owner
	}
	h.scopes[id] = sc
	h.pruneLocked(now)
}

func (h *Hub) Unbind(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.scopes[id]
	delete(h.scopes, id)
	return ok
}

// pruneLocked drops expired scopes, then the oldest ones over the cap.
func (h *Hub) pruneLocked(now time.Time) {
	for id, sc := range h.scopes {
		if now.Sub(sc.boundAt) > h.ttl {
			delete(h.scopes, id)
		}
	}

	over := len(h.scopes) - h.maxScopes
	if over <= 0 {
		return
	}

	ids := make([]string, 0, len(h.scopes))
	for id := range h.scopes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return h.scopes[ids[i]].boundAt.Before(h.scopes[ids[j]].boundAt)
	})
	for _, id := range ids[:over] {
		delete(h.scopes, id)
	}
	h.log.Debug("scopes evicted", zap.Int("evicted", over))
}

func (h *Hub) live(id string) (*scope, bool) {
	sc, ok := h.scopes[id]
	if !ok || h.now().Sub(sc.boundAt) > h.ttl {
		return nil, false
	}
	return sc, true
}

func (h *Hub) Controls(id string) []Control {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sc, ok := h.live(id)
	if !ok {
		return nil
	}
	return append([]Control(nil), sc.controls...)
}

// Views renders the current state of every viewable control in scope id.
func (h *Hub) Views(id string) ([]ButtonView, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sc, ok := h.live(id)
	if !ok {
		return nil, false
	}
	out := make([]ButtonView, 0, len(sc.controls))
	for _, c := range sc.controls {
		if v, ok := c.(Viewer); ok {
			out = append(out, v.View())
		}
	}
	return out, true
}

func (h *Hub) ScopeCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes)
}

// NotifyAll sets the favorite state on every bound control for title and
// pushes the change to connected tabs. It returns the number of controls
// updated.
func (h *Hub) NotifyAll(title string, favorite bool) int {
	h.mu.Lock()
	h.pruneLocked(h.now())
	n := 0
	for _, sc := range h.scopes {
		for _, c := range sc.controls {
			if c.Title() == title {
				c.SetFavorite(favorite)
				n++
			}
		}
	}
	h.mu.Unlock()

	state := "removed"
	if favorite {
		state = "added"
	}
	h.broadcast(Message{Type: MessageTypeFavorite, Title: title, State: state, Favorite: favorite})
	return n
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("websocket message encode failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].seq < clients[j].seq })

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Slow or gone; drop it.
			h.dropLocked(c)
			h.log.Warn("websocket client dropped", zap.String("client_id", c.id))
		}
	}
}

// attach ties scope id to c so it is unbound when c disconnects.
func (h *Hub) attach(c *Client, id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	sc, ok := h.live(id)
	if !ok {
		return false
	}
	sc.owner = c
	return true
}

// dropLocked removes c and every scope it owns.
func (h *Hub) dropLocked(c *Client) int {
	if _, ok := h.clients[c]; !ok {
		return 0
	}
	delete(h.clients, c)
	close(c.send)

	n := 0
	for id, sc := range h.scopes {
		if sc.owner == c {
			delete(h.scopes, id)
			n++
		}
	}
	return n
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("websocket client connected", zap.String("client_id", c.id), zap.Int("total_clients", n))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	released := h.dropLocked(c)
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("websocket client disconnected",
		zap.String("client_id", c.id),
		zap.Int("total_clients", n),
		zap.Int("scopes_released", released),
	)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every websocket client. It fits kit.RunHTTPServer's
// cleanup signature.
func (h *Hub) Close(context.Context) error {
	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.mu.Unlock()
	h.log.Info("websocket hub stopped", zap.Int("clients_closed", n))
	return nil
}

// ServeWS upgrades the request and attaches the tab to the hub. Any
// ?scope= values are tied to the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	scopes := r.URL.Query()["scope"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn)
	h.register(c)
	for _, id := range scopes {
		h.attach(c, id)
	}
	c.start()
}
