package sync

import (
	"context"
	"encoding/json"
	stdsync "sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/customerr"
)

// State is the orchestrator's externally visible condition.
type State int

const (
	StateIdle State = iota
	StateSyncing
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSyncing:
		return "Syncing"
	case StateBlocked:
		return "Blocked"
	}
	return "Unknown"
}

const reasonRemoteUnavailable = "RemoteUnavailable"

type puller interface {
	Pull(ctx context.Context, identity string) ([]expense.Record, error)
}

type pusher interface {
	PushPending(ctx context.Context, identity string) PushResult
}

type eventProducer interface {
	ProduceMessage(message []byte) error
}

// Orchestrator is the only unit authorized to initiate network sync. It
// coalesces triggers so at most one cycle is in flight per identity, and it
// never retries on its own: a Blocked state clears only when the next
// triggering event arrives.
type Orchestrator struct {
	mu     stdsync.Mutex
	state  State
	reason string

	puller puller
	pusher pusher
	events eventProducer

	group singleflight.Group
}

// NewOrchestrator wires the agents together. events may be nil when no
// audit topic is configured.
func NewOrchestrator(puller puller, pusher pusher, events eventProducer) *Orchestrator {
	return &Orchestrator{
		state:  StateIdle,
		puller: puller,
		pusher: pusher,
		events: events,
	}
}

func (o *Orchestrator) Status() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) BlockedReason() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reason
}

// Trigger runs one pull+push cycle for the identity. A trigger arriving
// while a cycle for the same identity is in flight joins that cycle instead
// of starting another one. An empty identity means local-only mode and is a
// no-op.
func (o *Orchestrator) Trigger(ctx context.Context, identity string) error {
	if identity == "" {
		return nil
	}

	_, err, shared := o.group.Do(identity, func() (interface{}, error) {
		return nil, o.runCycle(ctx, identity)
	})
	if shared {
		logger.Info("sync trigger coalesced into in-flight cycle")
	}
	return err
}

func (o *Orchestrator) runCycle(ctx context.Context, identity string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncCycle")
	defer span.Finish()

	o.setState(StateSyncing, "")
	start := time.Now()

	merged, err := o.puller.Pull(ctx, identity)
	if err != nil {
		o.settle(err)
		ext.Error.Set(span, true)
		observeCycle(time.Since(start), "failed")
		return errors.Wrap(err, "sync cycle")
	}

	res := o.pusher.PushPending(ctx, identity)
	if res.Touched() {
		// reconcile remote-side transformations of what was just pushed
		if merged, err = o.puller.Pull(ctx, identity); err != nil {
			o.settle(err)
			ext.Error.Set(span, true)
			observeCycle(time.Since(start), "failed")
			return errors.Wrap(err, "sync cycle")
		}
	}

	o.setState(StateIdle, "")
	observeCycle(time.Since(start), "ok")
	o.publishEvent(identity, merged, res, time.Since(start))

	logger.Info("sync cycle complete",
		zap.Int("records", len(merged)),
		zap.Int("pushed", len(res.Succeeded)),
		zap.Int("failed", len(res.Failed)),
		zap.Int("deleted", len(res.Deleted)),
	)
	return nil
}

// settle decides the post-failure state: transport trouble blocks until the
// next trigger, anything else returns to Idle and is surfaced to the caller.
func (o *Orchestrator) settle(err error) {
	if customerr.IsRemoteUnavailable(err) {
		o.setState(StateBlocked, reasonRemoteUnavailable)
		return
	}
	o.setState(StateIdle, "")
}

func (o *Orchestrator) setState(state State, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = state
	o.reason = reason
}

type syncEvent struct {
	Identity   string    `json:"identity"`
	Records    int       `json:"records"`
	Pushed     int       `json:"pushed"`
	Failed     int       `json:"failed"`
	Deleted    int       `json:"deleted"`
	DurationMS int64     `json:"durationMs"`
	At         time.Time `json:"at"`
}

func (o *Orchestrator) publishEvent(identity string, merged []expense.Record, res PushResult, elapsed time.Duration) {
	if o.events == nil {
		return
	}

	payload, err := json.Marshal(syncEvent{
		Identity:   identity,
		Records:    len(merged),
		Pushed:     len(res.Succeeded),
		Failed:     len(res.Failed),
		Deleted:    len(res.Deleted),
		DurationMS: elapsed.Milliseconds(),
		At:         time.Now().UTC(),
	})
	if err != nil {
		logger.Error("cannot marshal sync event", zap.Error(err))
		return
	}
	if err = o.events.ProduceMessage(payload); err != nil {
		logger.Error("cannot publish sync event", zap.Error(err))
	}
}
