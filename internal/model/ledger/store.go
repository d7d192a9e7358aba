package ledger

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/customerr"
)

const storageKeyPrefix = "baremin_v1_"

type blobStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// state is the full per-profile blob. It is serialized as one unit on every
// mutation so local storage is never ahead of or behind memory.
type state struct {
	Expenses   []expense.Record    `json:"expenses"`
	Tombstones []expense.Tombstone `json:"tombstones,omitempty"`
	Dirty      []string            `json:"dirty,omitempty"`
}

// Store is the single owner of the local record set. All reads and writes
// go through one mutex; every mutation is persisted to the blob store before
// the call returns.
type Store struct {
	mu    sync.Mutex
	blobs blobStore
	key   string
	state state
}

func NewStore(blobs blobStore, profile string) (*Store, error) {
	s := &Store{
		blobs: blobs,
		key:   storageKeyPrefix + profile,
	}

	raw, err := blobs.Get(s.key)
	if err != nil {
		return nil, errors.Wrap(err, "load profile blob")
	}
	if raw != nil {
		if err = json.Unmarshal(raw, &s.state); err != nil {
			return nil, errors.Wrap(err, "decode profile blob")
		}
	}
	return s, nil
}

// Append adds a record to the end of the set. It rejects non-positive
// amounts and reused ids before touching storage.
func (s *Store) Append(rec expense.Record) error {
	if !rec.Amount.IsPositive() {
		return &customerr.InvalidRecordError{Err: "amount must be positive"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.state.Expenses {
		if existing.ID == rec.ID {
			return &customerr.InvalidRecordError{Err: "record id already exists"}
		}
	}

	next := s.state
	next.Expenses = append(copyRecords(s.state.Expenses), rec)
	return s.commit(next)
}

// Remove deletes a record immediately. When the record had a confirmed
// remote counterpart a tombstone is kept so the remote delete can be
// retried across sync cycles.
func (s *Store) Remove(id string) (expense.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return expense.Record{}, false, nil
	}
	removed := s.state.Expenses[idx]

	next := s.state
	next.Expenses = append(copyRecords(s.state.Expenses[:idx]), s.state.Expenses[idx+1:]...)
	next.Tombstones = copyTombstones(s.state.Tombstones)
	next.Dirty = removeID(s.state.Dirty, id)
	// a dirty record lost its Synced flag on edit but still has a remote
	// counterpart, so it needs a tombstone just like a synced one
	if removed.Synced || s.isDirty(id) {
		next.Tombstones = append(next.Tombstones, expense.Tombstone{
			ID:        removed.ID,
			Owner:     removed.Owner,
			DeletedAt: time.Now().UTC(),
		})
	}

	if err := s.commit(next); err != nil {
		return expense.Record{}, false, err
	}
	return removed, true, nil
}

// UpdateMode is the only in-place edit the ledger supports. The edited
// record drops back to the pending set. When the record already had a remote
// counterpart its id also enters the dirty set, which shields the local copy
// from pulls until the push lands; without the shield the remote copy would
// win the next merge and revert the edit.
func (s *Store) UpdateMode(id string, mode expense.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return &customerr.InvalidRecordError{Err: "no such record"}
	}

	next := s.state
	next.Expenses = copyRecords(s.state.Expenses)
	next.Dirty = copyIDs(s.state.Dirty)
	if next.Expenses[idx].Synced && !s.isDirty(id) {
		next.Dirty = append(next.Dirty, id)
	}
	next.Expenses[idx].Mode = mode
	next.Expenses[idx].Synced = false
	return s.commit(next)
}

// List returns the record set in insertion order.
func (s *Store) List() []expense.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyRecords(s.state.Expenses)
}

// Pending returns the records not yet confirmed on the remote store.
func (s *Store) Pending() []expense.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]expense.Record, 0)
	for _, rec := range s.state.Expenses {
		if !rec.Synced {
			pending = append(pending, rec)
		}
	}
	return pending
}

func (s *Store) Tombstones() []expense.Tombstone {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTombstones(s.state.Tombstones)
}

// Dirty returns the ids of synced records carrying a local edit that has not
// reached the remote store yet.
func (s *Store) Dirty() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyIDs(s.state.Dirty)
}

// MarkSynced replaces the record found under id with the canonical copy the
// remote store returned and flags it synced. The canonical copy may carry a
// remote-assigned id; the local record adopts it.
func (s *Store) MarkSynced(id string, canonical expense.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return &customerr.InvalidRecordError{Err: "no such record"}
	}

	canonical.Synced = true
	next := s.state
	next.Expenses = copyRecords(s.state.Expenses)
	next.Expenses[idx] = canonical
	next.Dirty = removeID(s.state.Dirty, id)
	return s.commit(next)
}

func (s *Store) RemoveTombstone(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.Tombstones = make([]expense.Tombstone, 0, len(s.state.Tombstones))
	for _, t := range s.state.Tombstones {
		if t.ID != id {
			next.Tombstones = append(next.Tombstones, t)
		}
	}
	return s.commit(next)
}

// SetAll replaces the record set with a merge result.
func (s *Store) SetAll(recs []expense.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.Expenses = copyRecords(recs)
	return s.commit(next)
}

func (s *Store) isDirty(id string) bool {
	for _, dirty := range s.state.Dirty {
		if dirty == id {
			return true
		}
	}
	return false
}

func (s *Store) indexOf(id string) int {
	for i, rec := range s.state.Expenses {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

// commit persists the candidate state and only then makes it visible.
func (s *Store) commit(next state) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, "encode profile blob")
	}
	if err = s.blobs.Set(s.key, raw); err != nil {
		return errors.Wrap(err, "persist profile blob")
	}
	s.state = next
	return nil
}

func copyRecords(recs []expense.Record) []expense.Record {
	out := make([]expense.Record, len(recs))
	copy(out, recs)
	return out
}

func copyTombstones(ts []expense.Tombstone) []expense.Tombstone {
	out := make([]expense.Tombstone, len(ts))
	copy(out, ts)
	return out
}

func copyIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
