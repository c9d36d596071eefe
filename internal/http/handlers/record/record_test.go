package record

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/records-api/internal/http/router"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/storage/memory"
	"github.com/aanand-mishra/records-api/internal/types"
	"github.com/aanand-mishra/records-api/internal/utils/response"
)

func newRouter(s storage.Storage) *router.Router {
	rt := router.New()
	rt.HandleFunc(http.MethodPost, "/records", New(s))
	rt.HandleFunc(http.MethodGet, "/records", GetList(s))
	rt.HandleFunc(http.MethodGet, "/records/{id}", GetByID(s))
	rt.HandleFunc(http.MethodPut, "/records/{id}", Update(s))
	rt.HandleFunc(http.MethodDelete, "/records/{id}", Delete(s))
	return rt
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestRecordLifecycle(t *testing.T) {
	h := newRouter(memory.New())

	rec := do(t, h, http.MethodPost, "/records", `{"age":65,"gender":"Other","nationality":"Indian"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/records/1", rec.Header().Get("Location"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	created := decode[types.Record](t, rec)
	assert.Equal(t, types.Record{ID: 1, Fields: types.Fields{Age: 65, Gender: types.GenderOther, Nationality: "Indian"}}, created)

	rec = do(t, h, http.MethodGet, "/records/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[types.Record](t, rec))

	rec = do(t, h, http.MethodPut, "/records/1", `{"age":98}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.Record{ID: 1, Fields: types.Fields{Age: 98, Gender: types.GenderOther, Nationality: "Indian"}},
		decode[types.Record](t, rec))

	rec = do(t, h, http.MethodGet, "/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]types.Record](t, rec), 1)

	rec = do(t, h, http.MethodDelete, "/records/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "deleted"}, decode[map[string]string](t, rec))

	rec = do(t, h, http.MethodGet, "/records/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, response.KindNotFound, decode[response.Response](t, rec).Kind)

	rec = do(t, h, http.MethodDelete, "/records/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEmptyIsArray(t *testing.T) {
	rec := do(t, newRouter(memory.New()), http.MethodGet, "/records", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		wantStatus  int
		wantKind    string
		wantMessage string
	}{
		{
			name: "create empty body", method: http.MethodPost, path: "/records",
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
			wantMessage: "request body is empty",
		},
		{
			name: "create malformed json", method: http.MethodPost, path: "/records", body: `{"age":`,
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
		},
		{
			name: "create missing fields", method: http.MethodPost, path: "/records", body: `{"age":3}`,
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
			wantMessage: "field gender is required, field nationality is required",
		},
		{
			name: "create negative age", method: http.MethodPost, path: "/records",
			body:       `{"age":-1,"gender":"Male","nationality":"Indian"}`,
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
			wantMessage: "field age must be greater than or equal to 0",
		},
		{
			name: "create unknown gender", method: http.MethodPost, path: "/records",
			body:       `{"age":1,"gender":"robot","nationality":"Indian"}`,
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
			wantMessage: "field gender must be one of [Male Female Other]",
		},
		{
			name: "create blank nationality", method: http.MethodPost, path: "/records",
			body:       `{"age":1,"gender":"Male","nationality":"   "}`,
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
			wantMessage: "field nationality must not be blank",
		},
		{
			name: "create trailing data", method: http.MethodPost, path: "/records",
			body:       `{"age":1,"gender":"Male","nationality":"Irish"}{"age":2}`,
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
			wantMessage: "request body must contain a single JSON value",
		},
		{
			name: "create trailing garbage", method: http.MethodPost, path: "/records",
			body:       `{"age":1,"gender":"Male","nationality":"Irish"} trailing`,
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
			wantMessage: "request body must contain a single JSON value",
		},
		{
			name: "create wrong type", method: http.MethodPost, path: "/records",
			body:       `{"age":"old","gender":"Male","nationality":"Indian"}`,
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
		},
		{
			name: "read non-integer id", method: http.MethodGet, path: "/records/abc",
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
			wantMessage: "invalid id: must be an integer",
		},
		{
			name: "read unknown id", method: http.MethodGet, path: "/records/404",
			wantStatus: http.StatusNotFound, wantKind: response.KindNotFound,
		},
		{
			name: "update unknown id", method: http.MethodPut, path: "/records/404", body: `{"age":1}`,
			wantStatus: http.StatusNotFound, wantKind: response.KindNotFound,
		},
		{
			name: "update empty body", method: http.MethodPut, path: "/records/1",
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
			wantMessage: "request body is empty",
		},
		{
			name: "delete non-integer id", method: http.MethodDelete, path: "/records/1.5",
			wantStatus: http.StatusBadRequest, wantKind: response.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.New()
			h := newRouter(s)

			rec := do(t, h, tt.method, tt.path, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code)

			body := decode[response.Response](t, rec)
			assert.Equal(t, response.StatusError, body.Status)
			assert.Equal(t, tt.wantKind, body.Kind)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, body.Message)
			}

			records, err := s.GetRecords(context.Background())
			require.NoError(t, err)
			assert.Empty(t, records, "client errors must not store anything")
		})
	}
}

func TestUpdateInvalidLeavesRecord(t *testing.T) {
	s := memory.New()
	h := newRouter(s)

	require.Equal(t, http.StatusCreated,
		do(t, h, http.MethodPost, "/records", `{"age":65,"gender":"Other","nationality":"Indian"}`).Code)

	rec := do(t, h, http.MethodPut, "/records/1", `{"nationality":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "field nationality is required", decode[response.Response](t, rec).Message)

	got, err := s.GetRecordByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Indian", got.Nationality)
}

func TestBodyTooLarge(t *testing.T) {
	big := `{"nationality":"` + strings.Repeat("x", MaxBodyBytes) + `"}`

	rec := do(t, newRouter(memory.New()), http.MethodPost, "/records", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// brokenStorage fails every call with an infrastructure error.
type brokenStorage struct{}

var errDiskOnFire = errors.New("disk on fire")

func (brokenStorage) CreateRecord(context.Context, types.Fields) (int64, error) {
	return 0, errDiskOnFire
}

func (brokenStorage) GetRecordByID(context.Context, int64) (types.Record, error) {
	return types.Record{}, errDiskOnFire
}

func (brokenStorage) GetRecords(context.Context) ([]types.Record, error) {
	return nil, errDiskOnFire
}

func (brokenStorage) UpdateRecordByID(context.Context, int64, types.Patch) (types.Record, error) {
	return types.Record{}, errDiskOnFire
}

func (brokenStorage) DeleteRecordByID(context.Context, int64) error {
	return errDiskOnFire
}

func TestInternalErrorsAreHidden(t *testing.T) {
	h := newRouter(brokenStorage{})

	requests := []struct{ method, path, body string }{
		{http.MethodPost, "/records", `{"age":1,"gender":"Male","nationality":"Indian"}`},
		{http.MethodGet, "/records", ""},
		{http.MethodGet, "/records/1", ""},
		{http.MethodPut, "/records/1", `{"age":2}`},
		{http.MethodDelete, "/records/1", ""},
	}

	for _, req := range requests {
		t.Run(req.method+" "+req.path, func(t *testing.T) {
			rec := do(t, h, req.method, req.path, req.body)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, response.InternalError(), decode[response.Response](t, rec))
		})
	}
}
