// Package httpapi exposes an item store over HTTP.
//
// Routes:
//
//	GET    /api/item/{id}          one item, 404 when absent
//	GET    /api/all_items          every item
//	POST   /api/item               create an empty item (201)
//	PUT    /api/item/{id}          upsert (202)
//	DELETE /api/item/{id}          delete, returning the removed item
//	GET    /api-docs/openapi.json  API description
//	GET    /healthz                liveness of the store
//	GET    /{path...}              static files
//
// Every request runs on its own goroutine, so a handler blocked on the
// store's connection pool or its retry loop holds up only that request.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes HTTP requests to an ItemStore.
type Server struct {
	store     types.ItemStore
	staticDir string
	logger    *slog.Logger
	mux       *http.ServeMux
	handler   http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStaticDir sets the directory served for non-API paths. An empty dir
// disables static serving.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// New builds a Server over store.
func New(store types.ItemStore, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.handler = s.withRequestID(s.accessLog(s.mux))
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/item/{id}", s.getItem)
	s.mux.HandleFunc("GET /api/all_items", s.getAllItems)
	s.mux.HandleFunc("POST /api/item", s.createItem)
	s.mux.HandleFunc("PUT /api/item/{id}", s.updateItem)
	s.mux.HandleFunc("DELETE /api/item/{id}", s.deleteItem)
	s.mux.HandleFunc("GET /api-docs/openapi.json", s.openAPI)
	s.mux.HandleFunc("GET /healthz", s.health)
	s.mux.HandleFunc("GET /{path...}", s.static)
}

// ServeHTTP implements http.Handler with request ids and access logging
// applied to every route.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
