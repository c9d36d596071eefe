// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface.
//
// The schema lives in migrations/ and is applied with goose on every
// startup, so an existing database file is upgraded in place. Queries go
// through sqlx, which scans rows straight into tagged structs.
//
// The blank import below registers the "sqlite3" driver with
// database/sql; we never call anything from it directly.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

var _ storage.Storage = (*SQLite)(nil)

// SQLite is the concrete implementation of storage.Storage.
//
// The pool is limited to one open connection. SQLite allows a single
// writer anyway, and with one connection every statement and transaction
// is serialized, which gives the same-id ordering the Storage contract
// asks for.
type SQLite struct {
	Db *sqlx.DB
}

// dbRecord is a row of the records table.
type dbRecord struct {
	ID          int64  `db:"id"`
	Age         int    `db:"age"`
	Gender      string `db:"gender"`
	Nationality string `db:"nationality"`
}

func (r dbRecord) toRecord() types.Record {
	return types.Record{
		ID: r.ID,
		Fields: types.Fields{
			Age:         r.Age,
			Gender:      types.Gender(r.Gender),
			Nationality: r.Nationality,
		},
	}
}

const selectColumns = "SELECT id, age, gender, nationality FROM records"

// New opens (creating if needed) the database file at path, applies all
// pending migrations and returns a ready-to-use *SQLite.
func New(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}

	return &SQLite{Db: db}, nil
}

func migrate(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLite) Close() error {
	if err := s.Db.Close(); err != nil {
		return fmt.Errorf("sqlite.Close: %w", err)
	}
	return nil
}

// CreateRecord inserts a new row. AUTOINCREMENT guarantees the rowid is
// never reused, even after the highest row has been deleted.
//
// Once the insert starts it is detached from ctx cancellation: a client
// hanging up must not leave the caller unsure whether the row exists.
func (s *SQLite) CreateRecord(ctx context.Context, fields types.Fields) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("CreateRecord: %w", err)
	}
	if err := fields.Validate(); err != nil {
		return 0, err
	}

	result, err := s.Db.ExecContext(context.WithoutCancel(ctx),
		"INSERT INTO records (age, gender, nationality) VALUES (?, ?, ?)",
		fields.Age, string(fields.Gender), fields.Nationality,
	)
	if err != nil {
		return 0, fmt.Errorf("CreateRecord: exec: %w", err)
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateRecord: last insert id: %w", err)
	}

	return lastID, nil
}

// GetRecordByID fetches exactly one row matched by primary key.
func (s *SQLite) GetRecordByID(ctx context.Context, id int64) (types.Record, error) {
	var row dbRecord

	err := s.Db.GetContext(ctx, &row, selectColumns+" WHERE id = ? LIMIT 1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Record{}, fmt.Errorf("no record found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Record{}, fmt.Errorf("GetRecordByID: select: %w", err)
	}

	return row.toRecord(), nil
}

// GetRecords returns all rows ordered by id.
func (s *SQLite) GetRecords(ctx context.Context) ([]types.Record, error) {
	var rows []dbRecord

	if err := s.Db.SelectContext(ctx, &rows, selectColumns+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("GetRecords: select: %w", err)
	}

	// Pre-allocate an empty (non-nil) slice so the JSON is [] and not null.
	records := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}

	return records, nil
}

// UpdateRecordByID reads, merges, validates and writes inside a single
// transaction.
func (s *SQLite) UpdateRecordByID(ctx context.Context, id int64, patch types.Patch) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return types.Record{}, fmt.Errorf("UpdateRecordByID: %w", err)
	}
	ctx = context.WithoutCancel(ctx)

	tx, err := s.Db.BeginTxx(ctx, nil)
	if err != nil {
		return types.Record{}, fmt.Errorf("UpdateRecordByID: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row dbRecord
	if err := tx.GetContext(ctx, &row, selectColumns+" WHERE id = ? LIMIT 1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Record{}, fmt.Errorf("no record found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.Record{}, fmt.Errorf("UpdateRecordByID: select: %w", err)
	}

	updated := patch.Apply(row.toRecord().Fields)
	if err := updated.Validate(); err != nil {
		return types.Record{}, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE records SET age = ?, gender = ?, nationality = ? WHERE id = ?",
		updated.Age, string(updated.Gender), updated.Nationality, id,
	)
	if err != nil {
		return types.Record{}, fmt.Errorf("UpdateRecordByID: exec: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Record{}, fmt.Errorf("UpdateRecordByID: commit: %w", err)
	}

	return types.Record{ID: id, Fields: updated}, nil
}

// DeleteRecordByID removes a row by primary key.
func (s *SQLite) DeleteRecordByID(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("DeleteRecordByID: %w", err)
	}

	result, err := s.Db.ExecContext(context.WithoutCancel(ctx), "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteRecordByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteRecordByID: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no record found with id %d: %w", id, storage.ErrNotFound)
	}

	return nil
}
