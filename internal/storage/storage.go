// Package storage defines the Storage interface — a contract that any
// record backend must satisfy to work with this application.
//
// Handlers (HTTP layer) depend only on this interface. Switching backends
// means implementing it for the new store and changing one line in the
// serve command; tests can pass any implementation.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/records-api/internal/types"
)

// ErrNotFound is returned (wrapped, with the id) when a record does not
// exist or has already been deleted.
var ErrNotFound = errors.New("record not found")

// Storage is the record store contract.
//
// Every implementation must be safe for concurrent use. Operations are
// atomic with respect to each other, ids are allocated monotonically and
// never reused, and a mutation that has started runs to completion even if
// ctx is cancelled part-way through.
//
// Every method first checks ctx: if it is already done the call returns an
// error wrapping ctx.Err() and changes nothing. Backends that talk to a
// database may also return driver errors, which callers treat as internal.
type Storage interface {
	// CreateRecord validates fields, inserts a new record and returns its
	// id. Invalid fields fail with *types.ValidationError.
	CreateRecord(ctx context.Context, fields types.Fields) (int64, error)

	// GetRecordByID returns the record or an error wrapping ErrNotFound.
	GetRecordByID(ctx context.Context, id int64) (types.Record, error)

	// GetRecords returns every record ordered by id.
	// Returns an empty slice (not nil) if there are none.
	GetRecords(ctx context.Context) ([]types.Record, error)

	// UpdateRecordByID applies patch to an existing record and returns the
	// new state. Fails with ErrNotFound or *types.ValidationError.
	UpdateRecordByID(ctx context.Context, id int64, patch types.Patch) (types.Record, error)

	// DeleteRecordByID removes a record permanently.
	DeleteRecordByID(ctx context.Context, id int64) error
}
