package kit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UnmatchedRoute labels requests no route served, so arbitrary paths share
// one metrics series.
const UnmatchedRoute = "unmatched"

// RouteLabel returns the chi pattern that served r, such as
// /api/titles/{id}. Call it after the handler has run.
func RouteLabel(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return UnmatchedRoute
	}
	if p := rc.RoutePattern(); p != "" && p != "/*" {
		return p
	}
	return UnmatchedRoute
}
