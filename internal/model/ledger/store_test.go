package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/customerr"
)

type fakeBlobStore struct {
	blobs  map[string][]byte
	failed bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (s *fakeBlobStore) Get(key string) ([]byte, error) {
	return s.blobs[key], nil
}

func (s *fakeBlobStore) Set(key string, value []byte) error {
	if s.failed {
		return errors.New("disk full")
	}
	s.blobs[key] = value
	return nil
}

func testRecord(id string, amount int64, synced bool) expense.Record {
	return expense.Record{
		ID:        id,
		Amount:    decimal.NewFromInt(amount),
		Mode:      expense.UPI,
		Merchant:  "Unknown",
		Category:  "Misc",
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Synced:    synced,
	}
}

func Test_OnAppend_ShouldPersistBeforeReturning(t *testing.T) {
	blobs := newFakeBlobStore()
	store, err := NewStore(blobs, "default")
	require.NoError(t, err)

	require.NoError(t, store.Append(testRecord("a", 100, false)))

	raw, ok := blobs.blobs["baremin_v1_default"]
	require.True(t, ok)
	var persisted state
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Len(t, persisted.Expenses, 1)
	assert.Equal(t, "a", persisted.Expenses[0].ID)
}

func Test_OnAppend_ShouldRejectNonPositiveAmount(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)

	err = store.Append(testRecord("a", 0, false))

	assert.True(t, customerr.IsInvalidRecord(err))
	assert.Empty(t, store.List())
}

func Test_OnAppend_ShouldRejectDuplicateID(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)

	require.NoError(t, store.Append(testRecord("a", 100, false)))
	err = store.Append(testRecord("a", 200, false))

	assert.True(t, customerr.IsInvalidRecord(err))
	assert.Len(t, store.List(), 1)
}

func Test_OnFailedPersist_ShouldKeepMemoryConsistent(t *testing.T) {
	blobs := newFakeBlobStore()
	store, err := NewStore(blobs, "default")
	require.NoError(t, err)

	blobs.failed = true
	err = store.Append(testRecord("a", 100, false))

	assert.Error(t, err)
	assert.Empty(t, store.List())
}

func Test_OnReload_ShouldRestorePersistedState(t *testing.T) {
	blobs := newFakeBlobStore()
	store, err := NewStore(blobs, "default")
	require.NoError(t, err)
	require.NoError(t, store.Append(testRecord("a", 100, false)))
	require.NoError(t, store.Append(testRecord("b", 200, false)))

	reloaded, err := NewStore(blobs, "default")
	require.NoError(t, err)

	recs := reloaded.List()
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
}

func Test_OnRemoveSyncedRecord_ShouldKeepTombstone(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	rec := testRecord("a", 100, true)
	rec.Owner = "user-1"
	require.NoError(t, store.Append(rec))

	removed, found, err := store.Remove("a")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", removed.ID)
	assert.Empty(t, store.List())
	require.Len(t, store.Tombstones(), 1)
	assert.Equal(t, "user-1", store.Tombstones()[0].Owner)
}

func Test_OnRemoveUnsyncedRecord_ShouldNotKeepTombstone(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	require.NoError(t, store.Append(testRecord("a", 100, false)))

	_, found, err := store.Remove("a")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, store.Tombstones())
}

func Test_OnRemoveMissingRecord_ShouldReportNotFound(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)

	_, found, err := store.Remove("nope")

	require.NoError(t, err)
	assert.False(t, found)
}

func Test_OnUpdateMode_ShouldMakeRecordPendingAgain(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	require.NoError(t, store.Append(testRecord("a", 100, true)))

	require.NoError(t, store.UpdateMode("a", expense.Cash))

	recs := store.List()
	assert.Equal(t, expense.Cash, recs[0].Mode)
	assert.False(t, recs[0].Synced)
	assert.Len(t, store.Pending(), 1)
}

func Test_OnUpdateModeOfSyncedRecord_ShouldMarkItDirty(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	require.NoError(t, store.Append(testRecord("a", 100, true)))

	require.NoError(t, store.UpdateMode("a", expense.Cash))
	require.NoError(t, store.UpdateMode("a", expense.Card))

	assert.Equal(t, []string{"a"}, store.Dirty())
}

func Test_OnUpdateModeOfUnsyncedRecord_ShouldNotMarkItDirty(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	require.NoError(t, store.Append(testRecord("a", 100, false)))

	require.NoError(t, store.UpdateMode("a", expense.Cash))

	assert.Empty(t, store.Dirty())
}

func Test_OnMarkSynced_ShouldClearDirtyFlag(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	require.NoError(t, store.Append(testRecord("a", 100, true)))
	require.NoError(t, store.UpdateMode("a", expense.Cash))

	require.NoError(t, store.MarkSynced("a", testRecord("a", 100, false)))

	assert.Empty(t, store.Dirty())
}

func Test_OnRemoveOfDirtyRecord_ShouldKeepTombstone(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	rec := testRecord("a", 100, true)
	rec.Owner = "user-1"
	require.NoError(t, store.Append(rec))
	require.NoError(t, store.UpdateMode("a", expense.Cash))

	_, found, err := store.Remove("a")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, store.Dirty())
	require.Len(t, store.Tombstones(), 1)
	assert.Equal(t, "a", store.Tombstones()[0].ID)
}

func Test_OnMarkSynced_ShouldAdoptCanonicalRecord(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	require.NoError(t, store.Append(testRecord("a", 100, false)))

	canonical := testRecord("a", 100, false)
	canonical.Owner = "user-1"
	require.NoError(t, store.MarkSynced("a", canonical))

	recs := store.List()
	assert.True(t, recs[0].Synced)
	assert.Equal(t, "user-1", recs[0].Owner)
	assert.Empty(t, store.Pending())
}

func Test_OnPending_ShouldReturnOnlyUnsyncedRecords(t *testing.T) {
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	synced := testRecord("a", 100, true)
	synced.Owner = "user-1"
	require.NoError(t, store.Append(synced))
	require.NoError(t, store.Append(testRecord("b", 200, false)))

	pending := store.Pending()

	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)
}
