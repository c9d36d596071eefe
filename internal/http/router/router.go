// Package router dispatches requests to the record handlers.
//
// The route table is a closed list of (method, pattern) pairs registered
// at startup on an http.ServeMux. A "{name}" segment matches any non-empty
// value and is exposed to the handler through r.PathValue(name). Patterns
// in the table never overlap, so at most one route matches a request.
//
// Every request moves through three states:
//
//	Idle ──match──▶ Dispatched ──handler returns or panics──▶ Completed
//	  └────────────no match (404)─────────────────────────────▲
//
// There are no retries. A panicking handler is recovered here and turned
// into a 500, so each request gets exactly one response.
package router

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"runtime/debug"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aanand-mishra/records-api/internal/http/middleware"
	"github.com/aanand-mishra/records-api/internal/utils/response"
)

// State is the lifecycle position of one request inside the router.
type State int

const (
	StateIdle State = iota
	StateDispatched
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatched:
		return "dispatched"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// UnmatchedRoute is the route label reported for requests no pattern
// matched.
const UnmatchedRoute = "unmatched"

// fallback catches everything the table does not. ServeMux prefers any
// method-qualified pattern over it, and because it accepts every method the
// mux never answers 405 on its own.
const fallback = "/"

// Observer is told about every completed dispatch.
type Observer interface {
	ObserveDispatch(method, route string, status int, elapsed time.Duration)
}

// Option configures a Router.
type Option func(*Router)

// WithObserver reports each completed dispatch to o.
func WithObserver(o Observer) Option {
	return func(rt *Router) { rt.observer = o }
}

// Router is an http.Handler over a fixed route table. Register every
// route before serving.
type Router struct {
	mux      *http.ServeMux
	observer Observer
}

// New returns a Router whose table holds only the 404 fallback.
func New(opts ...Option) *Router {
	rt := &Router{mux: http.NewServeMux()}
	rt.mux.HandleFunc(fallback, notFound)
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Handle registers h for method and pattern, e.g. ("GET", "/records/{id}").
// It panics if the pair is already registered.
func (rt *Router) Handle(method, pattern string, h http.Handler) {
	rt.mux.Handle(method+" "+pattern, h)
}

// HandleFunc is Handle for plain functions.
func (rt *Router) HandleFunc(method, pattern string, h http.HandlerFunc) {
	rt.Handle(method, pattern, h)
}

// ServeHTTP runs one request from Idle to Completed.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	log := middleware.Logger(r.Context())
	state := StateIdle
	route := UnmatchedRoute

	defer func() {
		if rec := recover(); rec != nil {
			// net/http uses this sentinel to abort a response on purpose.
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Error("handler panicked",
				slog.String("route", route),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			// Once the status line is out all we can do is stop writing.
			if ww.Status() == 0 {
				response.WriteJSON(ww, http.StatusInternalServerError, response.InternalError())
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		log.Debug("dispatch finished",
			slog.String("route", route),
			slog.String("from", state.String()),
			slog.String("state", StateCompleted.String()),
			slog.Int("status", status),
		)

		if rt.observer != nil {
			rt.observer.ObserveDispatch(r.Method, route, status, time.Since(start))
		}
	}()

	// ServeMux redirects unclean paths instead of routing them.
	if !isClean(r.URL.Path) {
		notFound(ww, r)
		return
	}

	h, pattern := rt.mux.Handler(r)
	if _, p, found := strings.Cut(pattern, " "); found {
		route = p
		state = StateDispatched
	}
	if state == StateIdle {
		h.ServeHTTP(ww, r)
		return
	}

	// Serve through the mux so the handler sees the path values.
	rt.mux.ServeHTTP(ww, r)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusNotFound,
		response.NotFound(fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)))
}

// isClean reports whether p is already in the canonical form ServeMux
// routes on.
func isClean(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	c := path.Clean(p)
	if strings.HasSuffix(p, "/") && c != "/" {
		c += "/"
	}
	return c == p
}
