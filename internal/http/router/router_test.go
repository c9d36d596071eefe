package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/records-api/internal/utils/response"
)

type dispatchCall struct {
	method, route string
	status        int
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (o *recordingObserver) ObserveDispatch(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, dispatchCall{method, route, status})
}

func named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{"handler": name, "id": r.PathValue("id")})
	}
}

func newTestRouter(obs Observer) *Router {
	rt := New(WithObserver(obs))
	rt.HandleFunc(http.MethodPost, "/records", named("create"))
	rt.HandleFunc(http.MethodGet, "/records", named("list"))
	rt.HandleFunc(http.MethodGet, "/records/{id}", named("read"))
	rt.HandleFunc(http.MethodPut, "/records/{id}", named("update"))
	rt.HandleFunc(http.MethodDelete, "/records/{id}", named("delete"))
	rt.HandleFunc(http.MethodGet, "/boom", func(w http.ResponseWriter, r *http.Request) { panic("kaboom") })
	rt.HandleFunc(http.MethodGet, "/late-boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("after header")
	})
	return rt
}

func TestServeHTTPRouting(t *testing.T) {
	rt := newTestRouter(nil)

	tests := []struct {
		method, path string
		wantHandler  string
		wantID       string
	}{
		{http.MethodPost, "/records", "create", ""},
		{http.MethodGet, "/records", "list", ""},
		{http.MethodGet, "/records/7", "read", "7"},
		{http.MethodPut, "/records/abc", "update", "abc"},
		{http.MethodDelete, "/records/7", "delete", "7"},
		{http.MethodPatch, "/records/7", "", ""},
		{http.MethodDelete, "/records", "", ""},
		{http.MethodGet, "/records/", "", ""},
		{http.MethodGet, "/records/7/extra", "", ""},
		{http.MethodGet, "/records//", "", ""},
		{http.MethodGet, "/records/../records/7", "", ""},
		{http.MethodGet, "/people/7", "", ""},
		{"X-CUSTOM", "/records", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Method = tt.method
			req.URL.Path = tt.path

			rec := httptest.NewRecorder()
			rt.ServeHTTP(rec, req)

			if tt.wantHandler == "" {
				require.Equal(t, http.StatusNotFound, rec.Code)
				var body response.Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, response.KindNotFound, body.Kind)
				return
			}

			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantHandler, body["handler"])
			assert.Equal(t, tt.wantID, body["id"])
		})
	}
}

func TestHandleDuplicatePanics(t *testing.T) {
	rt := New()
	rt.HandleFunc(http.MethodGet, "/records/{id}", named("read"))

	assert.Panics(t, func() {
		rt.HandleFunc(http.MethodGet, "/records/{id}", named("again"))
	})
}

func TestServeHTTPDispatchesAndObserves(t *testing.T) {
	obs := &recordingObserver{}
	rt := newTestRouter(obs)

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records/42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "read", body["handler"])
	assert.Equal(t, "42", body["id"])

	assert.Equal(t, []dispatchCall{{http.MethodGet, "/records/{id}", http.StatusOK}}, obs.calls)
}

func TestServeHTTPNoMatchIs404(t *testing.T) {
	obs := &recordingObserver{}
	rt := newTestRouter(obs)

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/records/1", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, response.KindNotFound, body.Kind)
	assert.Equal(t, "no route for PATCH /records/1", body.Message)

	assert.Equal(t, []dispatchCall{{http.MethodPatch, UnmatchedRoute, http.StatusNotFound}}, obs.calls)
}

func TestServeHTTPRecoversPanic(t *testing.T) {
	obs := &recordingObserver{}
	rt := newTestRouter(obs)

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		rt.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, response.InternalError(), body)
	assert.NotContains(t, rec.Body.String(), "kaboom")

	assert.Equal(t, []dispatchCall{{http.MethodGet, "/boom", http.StatusInternalServerError}}, obs.calls)
}

func TestServeHTTPPanicAfterHeaderKeepsStatus(t *testing.T) {
	rt := newTestRouter(nil)

	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/late-boom", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestServeHTTPAbortHandlerPropagates(t *testing.T) {
	rt := New()
	rt.HandleFunc(http.MethodGet, "/abort", func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		rt.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "dispatched", StateDispatched.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "State(9)", State(9).String())
}
