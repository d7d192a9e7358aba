package sync

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/zap"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"
)

type pushStore interface {
	Pending() []expense.Record
	MarkSynced(id string, canonical expense.Record) error
	Tombstones() []expense.Tombstone
	RemoveTombstone(id string) error
}

type remoteWriter interface {
	Insert(ctx context.Context, identity string, rec expense.Record) (expense.Record, error)
	Delete(ctx context.Context, identity string, id string) error
}

type PushFailure struct {
	ID     string
	Reason string
}

type PushResult struct {
	Succeeded []string
	Failed    []PushFailure
	Deleted   []string
}

// Touched reports whether the cycle changed anything on the remote store
// and a reconcile pull is worth doing.
func (r PushResult) Touched() bool {
	return len(r.Succeeded) > 0 || len(r.Deleted) > 0
}

// Pusher drains the pending set to the remote store.
type Pusher struct {
	store  pushStore
	remote remoteWriter
}

func NewPusher(store pushStore, remote remoteWriter) *Pusher {
	return &Pusher{store: store, remote: remote}
}

// PushPending pushes every pending tombstone and record exactly once. A
// failed item is logged, left pending and retried on the next triggering
// event; it never aborts the batch. Synced flags are written back record by
// record so a mid-loop failure leaves already-confirmed records flagged.
func (a *Pusher) PushPending(ctx context.Context, identity string) PushResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pushPending")
	defer span.Finish()

	var res PushResult

	for _, tomb := range a.store.Tombstones() {
		if err := a.remote.Delete(ctx, identity, tomb.ID); err != nil {
			logger.Warn("remote delete failed, tombstone kept",
				zap.String("id", tomb.ID), zap.Error(err))
			res.Failed = append(res.Failed, PushFailure{ID: tomb.ID, Reason: err.Error()})
			continue
		}
		if err := a.store.RemoveTombstone(tomb.ID); err != nil {
			logger.Error("failed to drop tombstone", zap.String("id", tomb.ID), zap.Error(err))
			continue
		}
		res.Deleted = append(res.Deleted, tomb.ID)
	}

	for _, rec := range a.store.Pending() {
		canonical, err := a.pushOne(ctx, identity, rec)
		if err != nil {
			logger.Warn("push failed, record stays pending",
				zap.String("id", rec.ID), zap.Error(err))
			res.Failed = append(res.Failed, PushFailure{ID: rec.ID, Reason: err.Error()})
			continue
		}
		if err = a.store.MarkSynced(rec.ID, canonical); err != nil {
			logger.Error("failed to flag record synced", zap.String("id", rec.ID), zap.Error(err))
			res.Failed = append(res.Failed, PushFailure{ID: rec.ID, Reason: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, rec.ID)
	}

	observePush(len(res.Succeeded), len(res.Failed))
	if len(res.Failed) > 0 {
		ext.Error.Set(span, true)
	}
	return res
}

func (a *Pusher) pushOne(ctx context.Context, identity string, rec expense.Record) (expense.Record, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pushRecord")
	defer span.Finish()
	span.SetTag("record", rec.ID)

	rec.Owner = identity
	canonical, err := a.remote.Insert(ctx, identity, rec)
	if err != nil {
		ext.Error.Set(span, true)
		return expense.Record{}, err
	}
	if canonical.ID == "" {
		// remote stores that do not echo the record back keep the client id
		canonical = rec
	}
	if canonical.Owner == "" {
		canonical.Owner = identity
	}
	return canonical, nil
}
