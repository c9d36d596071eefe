// Package memory provides the default in-process implementation of
// storage.Storage: a map guarded by a single RWMutex.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"
)

var _ storage.Storage = (*Memory)(nil)

// Memory keeps records in a map keyed by id.
//
// lastID only ever grows, so a deleted id is never handed out again and a
// reader holding a stale id gets ErrNotFound instead of somebody else's
// record.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]types.Fields
	lastID  int64
}

// New returns an empty store. The first id allocated is 1.
func New() *Memory {
	return &Memory{records: make(map[int64]types.Fields)}
}

// CreateRecord validates fields and inserts them under a fresh id.
func (m *Memory) CreateRecord(ctx context.Context, fields types.Fields) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("CreateRecord: %w", err)
	}
	if err := fields.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	m.records[m.lastID] = fields

	return m.lastID, nil
}

// GetRecordByID returns a copy of the stored record.
func (m *Memory) GetRecordByID(ctx context.Context, id int64) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return types.Record{}, fmt.Errorf("GetRecordByID: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	fields, ok := m.records[id]
	if !ok {
		return types.Record{}, fmt.Errorf("no record found with id %d: %w", id, storage.ErrNotFound)
	}

	return types.Record{ID: id, Fields: fields}, nil
}

// GetRecords returns all records ordered by id.
func (m *Memory) GetRecords(ctx context.Context) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("GetRecords: %w", err)
	}

	m.mu.RLock()
	records := make([]types.Record, 0, len(m.records))
	for id, fields := range m.records {
		records = append(records, types.Record{ID: id, Fields: fields})
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	return records, nil
}

// UpdateRecordByID applies patch under the write lock. Lookup, merge,
// validation and replace happen in one critical section, so concurrent
// writers to the same id are serialized and the last one wins.
func (m *Memory) UpdateRecordByID(ctx context.Context, id int64, patch types.Patch) (types.Record, error) {
	if err := ctx.Err(); err != nil {
		return types.Record{}, fmt.Errorf("UpdateRecordByID: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[id]
	if !ok {
		return types.Record{}, fmt.Errorf("no record found with id %d: %w", id, storage.ErrNotFound)
	}

	updated := patch.Apply(current)
	if err := updated.Validate(); err != nil {
		return types.Record{}, err
	}
	m.records[id] = updated

	return types.Record{ID: id, Fields: updated}, nil
}

// DeleteRecordByID removes the record. The id is not released.
func (m *Memory) DeleteRecordByID(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("DeleteRecordByID: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("no record found with id %d: %w", id, storage.ErrNotFound)
	}
	delete(m.records, id)

	return nil
}
