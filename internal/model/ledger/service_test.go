package ledger

import (
	"context"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/customerr"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/sync"
)

type fakeOrchestrator struct {
	mu       stdsync.Mutex
	triggers []string
	state    sync.State
}

func (o *fakeOrchestrator) Trigger(_ context.Context, identity string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.triggers = append(o.triggers, identity)
	return nil
}

func (o *fakeOrchestrator) Status() sync.State {
	return o.state
}

func (o *fakeOrchestrator) triggerCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.triggers)
}

func newTestService(t *testing.T) (*Service, *fakeOrchestrator) {
	t.Helper()
	store, err := NewStore(newFakeBlobStore(), "default")
	require.NoError(t, err)
	orch := &fakeOrchestrator{}
	return NewService(store, orch), orch
}

func Test_OnAddExpense_ShouldAppearUnsyncedWithoutNetworkCall(t *testing.T) {
	service, orch := newTestService(t)

	rec, err := service.AddExpense(context.Background(), expense.Fields{
		Amount:   decimal.NewFromInt(100),
		Mode:     expense.UPI,
		Merchant: "Zepto",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Synced)
	assert.True(t, rec.Quick)

	recs := service.CurrentRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, rec.ID, recs[0].ID)
	assert.False(t, recs[0].Synced)

	// no identity, so no sync trigger may fire
	assert.Zero(t, orch.triggerCount())
}

func Test_OnAddExpense_ShouldRejectNonPositiveAmount(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.AddExpense(context.Background(), expense.Fields{
		Amount: decimal.Zero,
		Mode:   expense.Cash,
	})

	assert.True(t, customerr.IsInvalidRecord(err))
	assert.Empty(t, service.CurrentRecords())
}

func Test_OnAddExpenseWithIdentity_ShouldTriggerSync(t *testing.T) {
	service, orch := newTestService(t)
	service.SetIdentity(context.Background(), "user-1")

	_, err := service.AddExpense(context.Background(), expense.Fields{
		Amount:   decimal.NewFromInt(50),
		Mode:     expense.Card,
		Merchant: "Gym",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return orch.triggerCount() >= 2 // identity established + record added
	}, time.Second, 10*time.Millisecond)
}

func Test_OnTriggerSyncWithoutIdentity_ShouldStayLocalOnly(t *testing.T) {
	service, orch := newTestService(t)

	assert.NoError(t, service.TriggerSync(context.Background()))
	assert.Zero(t, orch.triggerCount())
}

func Test_OnDeleteSyncedExpense_ShouldTriggerSync(t *testing.T) {
	service, orch := newTestService(t)
	rec := testRecord("a", 100, true)
	rec.Owner = "user-1"
	require.NoError(t, service.store.Append(rec))
	service.SetIdentity(context.Background(), "user-1")

	found, err := service.DeleteExpense(context.Background(), "a")

	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, service.CurrentRecords())
	assert.Eventually(t, func() bool {
		return orch.triggerCount() >= 2
	}, time.Second, 10*time.Millisecond)
}

func Test_OnDeleteEditedSyncedExpense_ShouldStillTriggerSync(t *testing.T) {
	service, orch := newTestService(t)
	rec := testRecord("a", 100, true)
	rec.Owner = "user-1"
	require.NoError(t, service.store.Append(rec))
	require.NoError(t, service.store.UpdateMode("a", expense.Cash))
	service.SetIdentity(context.Background(), "user-1")

	found, err := service.DeleteExpense(context.Background(), "a")

	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, service.store.Tombstones(), 1)
	assert.Eventually(t, func() bool {
		return orch.triggerCount() >= 2
	}, time.Second, 10*time.Millisecond)
}

func Test_OnCurrentRecords_ShouldOrderNewestFirst(t *testing.T) {
	service, _ := newTestService(t)
	older := testRecord("a", 10, false)
	newer := testRecord("b", 20, false)
	newer.Timestamp = older.Timestamp.Add(time.Hour)
	require.NoError(t, service.store.Append(older))
	require.NoError(t, service.store.Append(newer))

	recs := service.CurrentRecords()

	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, "a", recs[1].ID)
}

func Test_OnExportCSV_ShouldWriteHeaderAndRows(t *testing.T) {
	service, _ := newTestService(t)
	require.NoError(t, service.store.Append(testRecord("a", 120, false)))

	var sb strings.Builder
	require.NoError(t, service.ExportCSV(&sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,timestamp,amount,mode,merchant,category,note,quick", lines[0])
	assert.Contains(t, lines[1], "a,")
	assert.Contains(t, lines[1], "120")
}

func Test_OnClearIdentity_ShouldStopSyncTriggers(t *testing.T) {
	service, orch := newTestService(t)
	service.SetIdentity(context.Background(), "user-1")
	assert.Eventually(t, func() bool {
		return orch.triggerCount() == 1
	}, time.Second, 10*time.Millisecond)

	service.ClearIdentity()
	_, err := service.AddExpense(context.Background(), expense.Fields{
		Amount: decimal.NewFromInt(10),
		Mode:   expense.Cash,
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, orch.triggerCount())
}
