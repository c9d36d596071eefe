// Package api assembles the HTTP handler tree served by the server loop.
//
//	chi mux ── [RealIP] ─ RequestID ─ Logging ─ InFlight
//	  ├── GET /healthz
//	  ├── GET <metrics path>          (unless disabled)
//	  └── /*  ──▶ records router ──▶ record handlers ──▶ storage
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aanand-mishra/records-api/internal/http/handlers/record"
	"github.com/aanand-mishra/records-api/internal/http/middleware"
	"github.com/aanand-mishra/records-api/internal/http/router"
	"github.com/aanand-mishra/records-api/internal/metrics"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/utils/response"
)

// Options are the optional collaborators of New.
type Options struct {
	// Logger is the base logger; request loggers derive from it.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics, when non-nil, observes every dispatch and is served at
	// MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable it only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// Routes builds the records route table on top of storage.
//
// Route table:
//
//	POST   /records        → create a new record
//	GET    /records        → list all records
//	GET    /records/{id}   → get one record by id
//	PUT    /records/{id}   → update a record (partial or full)
//	DELETE /records/{id}   → delete a record
func Routes(storage storage.Storage, opts ...router.Option) *router.Router {
	rt := router.New(opts...)

	rt.HandleFunc(http.MethodPost, "/records", record.New(storage))
	rt.HandleFunc(http.MethodGet, "/records", record.GetList(storage))
	rt.HandleFunc(http.MethodGet, "/records/{id}", record.GetByID(storage))
	rt.HandleFunc(http.MethodPut, "/records/{id}", record.Update(storage))
	rt.HandleFunc(http.MethodDelete, "/records/{id}", record.Delete(storage))

	return rt
}

// New returns the complete handler for the server loop.
func New(storage storage.Storage, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var routerOpts []router.Option
	if opts.Metrics != nil {
		routerOpts = append(routerOpts, router.WithObserver(opts.Metrics))
	}

	mux := chi.NewRouter()
	if opts.TrustProxy {
		mux.Use(chimw.RealIP)
	}
	mux.Use(middleware.RequestID(log))
	mux.Use(middleware.Logging)
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.InFlight)
	}

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": response.StatusOK})
	})

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Method(http.MethodGet, path, opts.Metrics.Handler())
	}

	// chi answers methods it does not know with its own 405, so the records
	// router also takes over both chi fallbacks.
	rt := Routes(storage, routerOpts...)
	mux.Handle("/*", rt)
	mux.NotFound(rt.ServeHTTP)
	mux.MethodNotAllowed(rt.ServeHTTP)

	return mux
}
