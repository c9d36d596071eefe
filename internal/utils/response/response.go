// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client.
// Rather than repeating the same three lines (set header, set status,
// encode JSON) in every handler, we centralise them here.
//
// Consistent response shapes also make life easier for API consumers —
// they always know what error responses look like.
package response

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/records-api/internal/types"
)

// Response is the standard envelope returned for error cases.
//
// Success responses may return any JSON shape (a record, a list, …).
// Error responses always look like:
//
//	{ "status": "error", "kind": "not_found", "message": "no record found with id 7" }
type Response struct {
	Status  string `json:"status"`  // "ok" or "error"
	Kind    string `json:"kind"`    // one of the Kind* constants
	Message string `json:"message"` // human-readable error detail
}

// Status string constants — use these instead of raw string literals so
// a typo is caught by the compiler rather than silently sending "eroor".
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Error kinds. Each maps to exactly one HTTP status.
const (
	KindValidation = "validation" // 400
	KindNotFound   = "not_found"  // 404
	KindInternal   = "internal"   // 500
)

// InternalMessage is the only detail a client ever sees for a 500. The
// real error is logged server side.
const InternalMessage = "internal server error"

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError builds an error envelope of the given kind from err.
func GeneralError(kind string, err error) Response {
	return Response{
		Status:  StatusError,
		Kind:    kind,
		Message: err.Error(),
	}
}

// ValidationError converts validator field errors into a single
// human-readable Response, e.g.
//
//	{ "status": "error", "kind": "validation", "message": "field age is required, field nationality is required" }
func ValidationError(errs validator.ValidationErrors) Response {
	return Response{
		Status:  StatusError,
		Kind:    KindValidation,
		Message: strings.Join(types.FieldMessages(errs), ", "),
	}
}

// NotFound is the envelope for a route or record that does not exist.
func NotFound(message string) Response {
	return Response{Status: StatusError, Kind: KindNotFound, Message: message}
}

// InternalError is the envelope for every unexpected failure.
func InternalError() Response {
	return Response{Status: StatusError, Kind: KindInternal, Message: InternalMessage}
}
