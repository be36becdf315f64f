// Package api exposes identification, taxon search, region lookup and
// history over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/history"
	"github.com/sells-group/fieldguide/internal/identify"
	"github.com/sells-group/fieldguide/internal/model"
)

// Identifier runs one identification.
type Identifier interface {
	Identify(ctx context.Context, req identify.Request) (*model.IdentificationResult, error)
}

// TaxonSearcher finds taxa by free text.
type TaxonSearcher interface {
	SearchTaxaByText(ctx context.Context, query string, perPage int) ([]model.Taxon, error)
}

// Config tunes the HTTP surface.
type Config struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// Server holds the handler dependencies.
type Server struct {
	identifier Identifier
	taxa       TaxonSearcher
	history    history.Store
	cfg        Config
}

// NewServer creates a Server. A nil history store disables the history routes.
func NewServer(id Identifier, taxa TaxonSearcher, h history.Store, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return &Server{identifier: id, taxa: taxa, history: h, cfg: cfg}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Post("/identify", s.handleIdentify)
		r.Get("/taxa", s.handleTaxa)
		r.Get("/region", s.handleRegion)
		if s.history != nil {
			r.Get("/history", s.handleListHistory)
			r.Delete("/history", s.handleClearHistory)
		}
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
