package ledger

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	stdsync "sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/sync"
)

type orchestrator interface {
	Trigger(ctx context.Context, identity string) error
	Status() sync.State
}

// Service is the boundary the presentation layer talks to. It owns the
// current identity; while no identity is set the ledger operates local-only
// and never attempts network I/O.
type Service struct {
	store *Store
	orch  orchestrator

	mu       stdsync.Mutex
	identity string
}

func NewService(store *Store, orch orchestrator) *Service {
	return &Service{store: store, orch: orch}
}

// AddExpense validates and stores a record locally, then kicks off a
// background sync when an identity is present. The record is visible in
// CurrentRecords before any network call happens.
func (s *Service) AddExpense(ctx context.Context, f expense.Fields) (expense.Record, error) {
	rec, err := expense.New(f)
	if err != nil {
		return expense.Record{}, err
	}
	if err = s.store.Append(rec); err != nil {
		return expense.Record{}, errors.Wrap(err, "add expense")
	}

	s.triggerIfIdentified(ctx)
	return rec, nil
}

// DeleteExpense removes the record locally right away. Propagation to the
// remote store rides the tombstone set through the next sync cycle.
func (s *Service) DeleteExpense(ctx context.Context, id string) (bool, error) {
	_, found, err := s.store.Remove(id)
	if err != nil {
		return false, errors.Wrap(err, "delete expense")
	}
	if found && s.pendingTombstone(id) {
		s.triggerIfIdentified(ctx)
	}
	return found, nil
}

// pendingTombstone reports whether the delete left a tombstone behind, which
// is the case for synced records and for synced records carrying an unpushed
// edit.
func (s *Service) pendingTombstone(id string) bool {
	for _, t := range s.store.Tombstones() {
		if t.ID == id {
			return true
		}
	}
	return false
}

// EditMode changes the payment channel of a record, typically a cash
// correction. The edit makes the record pending again.
func (s *Service) EditMode(ctx context.Context, id string, mode expense.Mode) error {
	if err := s.store.UpdateMode(id, mode); err != nil {
		return errors.Wrap(err, "edit mode")
	}
	s.triggerIfIdentified(ctx)
	return nil
}

// CurrentRecords returns the set ordered for display: newest first, ties by
// id for determinism.
func (s *Service) CurrentRecords() []expense.Record {
	recs := s.store.List()
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].Timestamp.After(recs[j].Timestamp)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs
}

// TriggerSync runs a sync cycle now. Without an identity it is a no-op.
func (s *Service) TriggerSync(ctx context.Context) error {
	identity := s.Identity()
	if identity == "" {
		logger.Info("sync requested without identity, staying local-only")
		return nil
	}
	return s.orch.Trigger(ctx, identity)
}

func (s *Service) SyncStatus() sync.State {
	return s.orch.Status()
}

// SetIdentity records the authenticated principal and immediately attempts
// to reconcile with its remote records.
func (s *Service) SetIdentity(ctx context.Context, identity string) {
	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()

	if identity != "" {
		s.triggerAsync(ctx, identity)
	}
}

func (s *Service) ClearIdentity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = ""
}

func (s *Service) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// ExportCSV writes the full record set, newest first.
func (s *Service) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "timestamp", "amount", "mode", "merchant", "category", "note", "quick"}); err != nil {
		return errors.Wrap(err, "export csv")
	}
	for _, rec := range s.CurrentRecords() {
		row := []string{
			rec.ID,
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Amount.String(),
			string(rec.Mode),
			rec.Merchant,
			rec.Category,
			rec.Note,
			strconv.FormatBool(rec.Quick),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "export csv")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "export csv")
}

func (s *Service) triggerIfIdentified(ctx context.Context) {
	if identity := s.Identity(); identity != "" {
		s.triggerAsync(ctx, identity)
	}
}

// triggerAsync fires a sync cycle without holding up the user operation.
// The orchestrator coalesces overlapping triggers.
func (s *Service) triggerAsync(_ context.Context, identity string) {
	go func() {
		if err := s.orch.Trigger(context.Background(), identity); err != nil {
			logger.Warn("background sync failed", zap.Error(err))
		}
	}()
}
