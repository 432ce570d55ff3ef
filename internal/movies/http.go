package movies

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"StreamCatalog/pkg/kit"
)

const errDatabase = "database_error"

type Server struct {
	Store Store
	Log   *zap.Logger
	// World is echoed by /health.
	World string
}

type listResponse struct {
	OK     bool    `json:"ok"`
	Movies []Title `json:"movies"`
}

type healthResponse struct {
	OK    bool   `json:"ok"`
	World string `json:"world"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.health)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not_ready", "", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api/movies", func(rr chi.Router) {
		rr.Get("/", s.list)
		rr.Get("/{genreId}", s.listGenre)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	world := s.World
	if world == "" {
		world = "Disney"
	}
	kit.WriteJSON(w, http.StatusOK, healthResponse{OK: true, World: world})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	titles, err := s.Store.ListByTitle(r.Context())
	if err != nil {
		s.logger().Error("list movies failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, errDatabase, "", nil)
		return
	}
	writeTitles(w, titles)
}

func (s *Server) listGenre(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "genreId")

	// genre_id is an integer column: a non-numeric id equals no row.
	genreID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeTitles(w, nil)
		return
	}

	titles, err := s.Store.ListByGenre(r.Context(), genreID)
	if err != nil {
		s.logger().Error("list movies by genre failed", zap.Error(err), zap.String("genre_id", raw))
		kit.WriteError(w, r, http.StatusInternalServerError, errDatabase, "", nil)
		return
	}
	writeTitles(w, titles)
}

func writeTitles(w http.ResponseWriter, titles []Title) {
	if titles == nil {
		titles = []Title{}
	}
	kit.WriteJSON(w, http.StatusOK, listResponse{OK: true, Movies: titles})
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
