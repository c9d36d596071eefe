// Package storagetest is a conformance suite for storage.Storage
// implementations. Every backend runs the same tests from its own
// package:
//
//	func TestConformance(t *testing.T) {
//		storagetest.Run(t, func(t *testing.T) storage.Storage { return memory.New() })
//	}
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) storage.Storage

// Run executes every conformance test against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Storage)
	}{
		{"create then read", testCreateThenRead},
		{"scenario lifecycle", testScenarioLifecycle},
		{"create rejects invalid fields", testCreateInvalid},
		{"unknown ids are not found", testUnknownIDs},
		{"delete twice", testDeleteTwice},
		{"ids are not reused", testIDsNotReused},
		{"update rejects invalid merge", testUpdateInvalid},
		{"list ordered by id", testListOrdered},
		{"concurrent creates get unique ids", testConcurrentCreates},
		{"concurrent updates to one id", testConcurrentUpdates},
		{"cancelled context changes nothing", testCancelledContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func indian() types.Fields {
	return types.Fields{Age: 65, Gender: types.GenderOther, Nationality: "Indian"}
}

func requireNotFound(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func requireValidation(t *testing.T, err error) {
	t.Helper()
	var vErr *types.ValidationError
	require.Error(t, err)
	assert.True(t, errors.As(err, &vErr), "expected *types.ValidationError, got %T: %v", err, err)
}

func testCreateThenRead(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	inputs := []types.Fields{
		indian(),
		{Age: 0, Gender: types.GenderFemale, Nationality: "Kenyan"},
		{Age: 120, Gender: types.GenderMale, Nationality: "Peruvian"},
	}

	for _, in := range inputs {
		id, err := s.CreateRecord(ctx, in)
		require.NoError(t, err)

		got, err := s.GetRecordByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, types.Record{ID: id, Fields: in}, got)
	}
}

func testScenarioLifecycle(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	id, err := s.CreateRecord(ctx, indian())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	got, err := s.GetRecordByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, indian(), got.Fields)

	age := 98
	updated, err := s.UpdateRecordByID(ctx, 1, types.Patch{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, types.Record{
		ID:     1,
		Fields: types.Fields{Age: 98, Gender: types.GenderOther, Nationality: "Indian"},
	}, updated)

	got, err = s.GetRecordByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	require.NoError(t, s.DeleteRecordByID(ctx, 1))

	_, err = s.GetRecordByID(ctx, 1)
	requireNotFound(t, err)
}

func testCreateInvalid(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.CreateRecord(ctx, types.Fields{Age: -1, Gender: types.GenderOther, Nationality: "Indian"})
	requireValidation(t, err)

	_, err = s.CreateRecord(ctx, types.Fields{Age: 1, Gender: types.GenderOther})
	requireValidation(t, err)

	records, err := s.GetRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records, "rejected creates must not store anything")
}

func testUnknownIDs(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	age := 1

	for _, id := range []int64{0, 1, 42, -7} {
		_, err := s.GetRecordByID(ctx, id)
		requireNotFound(t, err)

		_, err = s.UpdateRecordByID(ctx, id, types.Patch{Age: &age})
		requireNotFound(t, err)

		requireNotFound(t, s.DeleteRecordByID(ctx, id))
	}
}

func testDeleteTwice(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	id, err := s.CreateRecord(ctx, indian())
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecordByID(ctx, id))
	requireNotFound(t, s.DeleteRecordByID(ctx, id))

	age := 3
	_, err = s.UpdateRecordByID(ctx, id, types.Patch{Age: &age})
	requireNotFound(t, err)
}

func testIDsNotReused(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	first, err := s.CreateRecord(ctx, indian())
	require.NoError(t, err)
	second, err := s.CreateRecord(ctx, indian())
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecordByID(ctx, second))

	third, err := s.CreateRecord(ctx, indian())
	require.NoError(t, err)
	assert.Greater(t, second, first)
	assert.Greater(t, third, second)

	_, err = s.GetRecordByID(ctx, second)
	requireNotFound(t, err)
}

func testUpdateInvalid(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	id, err := s.CreateRecord(ctx, indian())
	require.NoError(t, err)

	age := -5
	_, err = s.UpdateRecordByID(ctx, id, types.Patch{Age: &age})
	requireValidation(t, err)

	empty := ""
	_, err = s.UpdateRecordByID(ctx, id, types.Patch{Nationality: &empty})
	requireValidation(t, err)

	got, err := s.GetRecordByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, indian(), got.Fields, "a rejected update must leave the record untouched")
}

func testListOrdered(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	records, err := s.GetRecords(ctx)
	require.NoError(t, err)
	require.NotNil(t, records)
	assert.Empty(t, records)

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := s.CreateRecord(ctx, types.Fields{Age: i, Gender: types.GenderMale, Nationality: "Chilean"})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, s.DeleteRecordByID(ctx, ids[2]))

	records, err = s.GetRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 4)
	for i := 1; i < len(records); i++ {
		assert.Less(t, records[i-1].ID, records[i].ID)
	}
}

func testConcurrentCreates(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	const workers, perWorker = 8, 25

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool)
		errs []error
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := s.CreateRecord(ctx, indian())
				mu.Lock()
				if err != nil {
					errs = append(errs, err)
				} else {
					if seen[id] {
						errs = append(errs, errors.New("duplicate id"))
					}
					seen[id] = true
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, seen, workers*perWorker)
}

func testConcurrentUpdates(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	id, err := s.CreateRecord(ctx, indian())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(age int) {
			defer wg.Done()
			_, err := s.UpdateRecordByID(ctx, id, types.Patch{Age: &age})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.GetRecordByID(ctx, id)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Age, 1)
	assert.LessOrEqual(t, got.Age, 20)
	assert.Equal(t, types.GenderOther, got.Gender, "untouched fields survive concurrent patches")
	assert.Equal(t, "Indian", got.Nationality)
}

func testCancelledContext(t *testing.T, s storage.Storage) {
	id, err := s.CreateRecord(context.Background(), indian())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.CreateRecord(ctx, indian())
	assert.ErrorIs(t, err, context.Canceled)

	age := 1
	_, err = s.UpdateRecordByID(ctx, id, types.Patch{Age: &age})
	assert.ErrorIs(t, err, context.Canceled)

	err = s.DeleteRecordByID(ctx, id)
	assert.ErrorIs(t, err, context.Canceled)

	all, err := s.GetRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, types.Record{ID: id, Fields: indian()}, all[0])
}
