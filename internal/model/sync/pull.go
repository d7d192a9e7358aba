package sync

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"
)

type pullStore interface {
	List() []expense.Record
	SetAll(recs []expense.Record) error
	Tombstones() []expense.Tombstone
	Dirty() []string
}

type remoteLister interface {
	ListByOwner(ctx context.Context, identity string) ([]expense.Record, error)
}

// Puller brings the local set up to date with the remote one. It is not
// safe to run concurrently for the same identity; the orchestrator
// serializes invocations.
type Puller struct {
	store  pullStore
	remote remoteLister
}

func NewPuller(store pullStore, remote remoteLister) *Puller {
	return &Puller{store: store, remote: remote}
}

// Pull fetches the full remote set, merges it with the local one and
// persists the result as the new local set.
func (p *Puller) Pull(ctx context.Context, identity string) ([]expense.Record, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pull")
	defer span.Finish()

	remote, err := p.remote.ListByOwner(ctx, identity)
	if err != nil {
		ext.Error.Set(span, true)
		return nil, errors.Wrap(err, "pull")
	}

	remote = dropShielded(remote, p.store.Tombstones(), p.store.Dirty())
	merged := Merge(p.store.List(), remote)
	if err = p.store.SetAll(merged); err != nil {
		ext.Error.Set(span, true)
		return nil, errors.Wrap(err, "pull")
	}

	logger.Info("pulled remote records",
		zap.Int("remote", len(remote)),
		zap.Int("merged", len(merged)),
	)
	return merged, nil
}
