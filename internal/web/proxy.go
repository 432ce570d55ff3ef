package web

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"StreamCatalog/pkg/kit"
)

// NewReverseProxy forwards to target unchanged. When the backend cannot be
// reached the client gets the same 502 body the pages render.
func NewReverseProxy(target string, log *zap.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("catalog proxy failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusBadGateway, errCatalogUnavailable, msgCatalogUnavailable, nil)
	}
	return p, nil
}
