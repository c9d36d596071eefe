// Package record contains all HTTP handlers related to the Record resource.
//
// Each handler is built by a factory that receives its dependencies and
// returns the func(http.ResponseWriter, *http.Request) the router needs:
//
//	rt.HandleFunc("POST", "/records", record.New(storage))
//	//                                ^^^^^^^^^^^^^^^^^^^
//	//               New(storage) is called ONCE at startup.
//	//               The returned handler runs on EVERY request.
//
// Handlers never hold on to records between requests; the store owns them.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/records-api/internal/http/middleware"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"
	"github.com/aanand-mishra/records-api/internal/utils/response"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// createRequest is the body of POST /records. Pointers let "required"
// tell a missing age apart from an age of 0.
type createRequest struct {
	Age         *int          `json:"age"         validate:"required"`
	Gender      *types.Gender `json:"gender"      validate:"required"`
	Nationality *string       `json:"nationality" validate:"required"`
}

func (c createRequest) fields() types.Fields {
	return types.Fields{Age: *c.Age, Gender: *c.Gender, Nationality: *c.Nationality}
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /records
// Creates a new record from the JSON request body.
//
// Request body (JSON):
//
//	{ "age": 65, "gender": "Other", "nationality": "Indian" }
//
// Success response (201 Created, Location: /records/1):
//
//	{ "id": 1, "age": 65, "gender": "Other", "nationality": "Indian" }
//
// Error responses:
//
//	400 Bad Request  — empty body, malformed JSON, missing or invalid field
//	500 Internal     — storage failure
//
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context())
		log.Info("creating a record")

		var req createRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		if err := types.Validate(req); err != nil {
			writeError(w, r, err)
			return
		}

		fields := req.fields()
		lastID, err := storage.CreateRecord(r.Context(), fields)
		if err != nil {
			writeError(w, r, err)
			return
		}

		log.Info("record created", slog.Int64("id", lastID))

		w.Header().Set("Location", fmt.Sprintf("/records/%d", lastID))
		response.WriteJSON(w, http.StatusCreated, types.Record{ID: lastID, Fields: fields})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /records/{id}
//
// Success response (200 OK):
//
//	{ "id": 1, "age": 65, "gender": "Other", "nationality": "Indian" }
//
// Error responses:
//
//	400 Bad Request  — id is not a valid integer
//	404 Not Found    — no record with that id
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		middleware.Logger(r.Context()).Info("getting a record", slog.Int64("id", id))

		record, err := storage.GetRecordByID(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, record)
	}
}

// GetList handles GET /records and returns every record ordered by id.
// An empty store yields [] rather than null.
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.Logger(r.Context()).Info("getting all records")

		records, err := storage.GetRecords(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, records)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /records/{id}
// Replaces the fields present in the body and keeps the rest, so
//
//	{ "age": 98 }
//
// only changes the age. Sending all three fields is a full replace.
//
// Success response (200 OK) — the record as stored after the update.
//
// Error responses:
//
//	400 Bad Request  — invalid id, empty body, or the merged record is invalid
//	404 Not Found    — no record with that id
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		log := middleware.Logger(r.Context())
		log.Info("updating a record", slog.Int64("id", id))

		var patch types.Patch
		if err := decodeBody(w, r, &patch); err != nil {
			writeError(w, r, err)
			return
		}

		updated, err := storage.UpdateRecordByID(r.Context(), id, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}

		log.Info("record updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /records/{id}
// Permanently removes a record. Its id is never handed out again.
//
// Success response (200 OK):
//
//	{ "status": "deleted" }
//
// Error responses:
//
//	400 Bad Request  — invalid id
//	404 Not Found    — no record with that id (including one already deleted)
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		log := middleware.Logger(r.Context())
		log.Info("deleting a record", slog.Int64("id", id))

		if err := storage.DeleteRecordByID(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}

		log.Info("record deleted", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// pathID parses the {id} path value.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, types.NewValidationError(errors.New("invalid id: must be an integer"))
	}
	return id, nil
}

// decodeBody reads a JSON body into v. Every failure is a client error.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	err := dec.Decode(v)

	if errors.Is(err, io.EOF) {
		// io.EOF means the body was completely empty — nothing to decode.
		return types.NewValidationError(errors.New("request body is empty"))
	}
	if err != nil {
		return types.NewValidationError(fmt.Errorf("invalid request body: %w", err))
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return types.NewValidationError(errors.New("request body must contain a single JSON value"))
	}
	return nil
}

// writeError maps an error to its response. Validation and not-found
// errors are the caller's fault and go back verbatim; anything else is
// logged in full and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *types.ValidationError

	switch {
	case errors.As(err, &vErr):
		if len(vErr.Fields) > 0 {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(vErr.Fields))
			return
		}
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(response.KindValidation, vErr))

	case errors.Is(err, storage.ErrNotFound):
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(response.KindNotFound, err))

	default:
		middleware.Logger(r.Context()).Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		response.WriteJSON(w, http.StatusInternalServerError, response.InternalError())
	}
}
