package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/ledger"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/sync"
)

type memBlobStore struct {
	blobs map[string][]byte
}

func (s *memBlobStore) Get(key string) ([]byte, error) {
	return s.blobs[key], nil
}

func (s *memBlobStore) Set(key string, value []byte) error {
	s.blobs[key] = value
	return nil
}

// fakeRemote acts as the whole remote store: a per-owner record table with
// the same insert/list/delete contract the REST client exposes.
type fakeRemote struct {
	records map[string][]expense.Record
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string][]expense.Record)}
}

func (r *fakeRemote) ListByOwner(_ context.Context, identity string) ([]expense.Record, error) {
	out := make([]expense.Record, len(r.records[identity]))
	copy(out, r.records[identity])
	return out, nil
}

func (r *fakeRemote) Insert(_ context.Context, identity string, rec expense.Record) (expense.Record, error) {
	rec.Owner = identity
	rec.Synced = false
	for i, existing := range r.records[identity] {
		if existing.ID == rec.ID {
			r.records[identity][i] = rec
			return rec, nil
		}
	}
	r.records[identity] = append(r.records[identity], rec)
	return rec, nil
}

func (r *fakeRemote) Delete(_ context.Context, identity string, id string) error {
	kept := make([]expense.Record, 0, len(r.records[identity]))
	for _, rec := range r.records[identity] {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	r.records[identity] = kept
	return nil
}

func newEngine(t *testing.T, remote *fakeRemote) (*ledger.Store, *sync.Orchestrator) {
	t.Helper()
	store, err := ledger.NewStore(&memBlobStore{blobs: make(map[string][]byte)}, "default")
	require.NoError(t, err)
	orch := sync.NewOrchestrator(
		sync.NewPuller(store, remote),
		sync.NewPusher(store, remote),
		nil,
	)
	return store, orch
}

func entry(id string, amount int64) expense.Record {
	return expense.Record{
		ID:        id,
		Amount:    decimal.NewFromInt(amount),
		Mode:      expense.UPI,
		Merchant:  "Unknown",
		Category:  "Misc",
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func Test_OnFullCycle_ShouldPushLocalRecordAndFlagItSynced(t *testing.T) {
	remote := newFakeRemote()
	store, orch := newEngine(t, remote)
	require.NoError(t, store.Append(entry("a", 100)))

	require.NoError(t, orch.Trigger(context.Background(), "user-1"))

	recs := store.List()
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Synced)
	assert.Equal(t, "user-1", recs[0].Owner)
	assert.Empty(t, store.Pending())
	assert.Len(t, remote.records["user-1"], 1)
}

func Test_OnPullWithSameID_ShouldAdoptRemoteCopy(t *testing.T) {
	// a reinstalled app holds an unsynced copy of a record that already
	// made it to the remote store earlier
	remote := newFakeRemote()
	store, orch := newEngine(t, remote)

	remoteCopy := entry("a", 100)
	remoteCopy.Owner = "user-1"
	remote.records["user-1"] = []expense.Record{remoteCopy}

	localCopy := entry("a", 75)
	require.NoError(t, store.Append(localCopy))

	require.NoError(t, orch.Trigger(context.Background(), "user-1"))

	recs := store.List()
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Synced)
	assert.True(t, decimal.NewFromInt(100).Equal(recs[0].Amount))
}

func Test_OnDeleteOfSyncedRecord_ShouldPropagateAndNotResurrect(t *testing.T) {
	remote := newFakeRemote()
	store, orch := newEngine(t, remote)
	require.NoError(t, store.Append(entry("a", 100)))
	require.NoError(t, orch.Trigger(context.Background(), "user-1"))

	_, found, err := store.Remove("a")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, store.Tombstones(), 1)

	require.NoError(t, orch.Trigger(context.Background(), "user-1"))

	assert.Empty(t, store.List())
	assert.Empty(t, store.Tombstones())
	assert.Empty(t, remote.records["user-1"])
}

func Test_OnModeEditOfSyncedRecord_ShouldPropagateInsteadOfReverting(t *testing.T) {
	remote := newFakeRemote()
	store, orch := newEngine(t, remote)
	require.NoError(t, store.Append(entry("a", 100)))
	require.NoError(t, orch.Trigger(context.Background(), "user-1"))
	require.True(t, store.List()[0].Synced)

	require.NoError(t, store.UpdateMode("a", expense.Cash))
	require.NoError(t, orch.Trigger(context.Background(), "user-1"))

	recs := store.List()
	require.Len(t, recs, 1)
	assert.Equal(t, expense.Cash, recs[0].Mode)
	assert.True(t, recs[0].Synced)
	assert.Empty(t, store.Dirty())
	require.Len(t, remote.records["user-1"], 1)
	assert.Equal(t, expense.Cash, remote.records["user-1"][0].Mode)
}

func Test_OnOfflineEditsThenSync_ShouldConverge(t *testing.T) {
	remote := newFakeRemote()
	store, orch := newEngine(t, remote)

	other := entry("other-device", 300)
	other.Owner = "user-1"
	remote.records["user-1"] = []expense.Record{other}

	require.NoError(t, store.Append(entry("local-1", 100)))
	require.NoError(t, store.Append(entry("local-2", 200)))

	require.NoError(t, orch.Trigger(context.Background(), "user-1"))

	assert.Len(t, store.List(), 3)
	assert.Empty(t, store.Pending())
	assert.Len(t, remote.records["user-1"], 3)
}
