// Package sync merges the partner's realtime task feed into the local store.
//
// The flow is strictly one-directional: remote change events are applied to
// the local store under last-write-wins, and nothing is ever pushed back up
// the subscription. Subscription failures are absorbed here; the engine
// logs, returns to Stopped, and the rest of the application keeps working
// against local data.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/tandemhq/tandem/internal/schema"
	"github.com/tandemhq/tandem/internal/store"
)

// State is the engine's subscription lifecycle position.
type State string

const (
	StateStopped    State = "STOPPED"
	StateStarting   State = "STARTING"
	StateSubscribed State = "SUBSCRIBED"
)

// Event types on the partner task channel.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Event is one change notification from the realtime channel. Record holds
// the new row for inserts and updates; OldRecord holds the prior row for
// deletes.
type Event struct {
	Type      string         `json:"type"`
	Record    map[string]any `json:"record,omitempty"`
	OldRecord map[string]any `json:"old_record,omitempty"`
}

// Conn is one open subscription to a realtime channel.
type Conn interface {
	// Recv blocks until the next event, a transport error, or ctx
	// cancellation.
	Recv(ctx context.Context) (*Event, error)
	Close() error
}

// Dialer opens a subscription to a named channel.
type Dialer interface {
	Dial(ctx context.Context, channel string) (Conn, error)
}

// Engine subscribes to one partner's task channel and applies its events to
// the local store.
type Engine struct {
	store  *store.Store
	dialer Dialer
	logger *log.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Engine in the Stopped state. A nil logger means a default
// stderr logger.
func New(s *store.Store, dialer Dialer, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{
		store:  s,
		dialer: dialer,
		logger: logger,
		state:  StateStopped,
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start subscribes to the partner's task channel in the background and
// returns immediately. Any prior subscription is stopped and drained first,
// so the engine holds at most one subscription at a time. Dial failures
// never surface to the caller; they are logged and the engine returns to
// Stopped.
func (e *Engine) Start(partnerID string) {
	e.Stop()

	e.mu.Lock()
	e.state = StateStarting
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(ctx, partnerID)
}

// Stop tears down the subscription and waits for the apply loop to drain.
// Safe to call repeatedly and while stopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// ChannelName returns the realtime channel carrying one partner's tasks.
func ChannelName(partnerID string) string {
	return fmt.Sprintf("partner-tasks-%s", partnerID)
}

func (e *Engine) run(ctx context.Context, partnerID string) {
	defer e.wg.Done()
	defer e.setState(StateStopped)

	channel := ChannelName(partnerID)
	conn, err := e.dialer.Dial(ctx, channel)
	if err != nil {
		e.logger.Printf("subscribe to %s failed: %v", channel, err)
		return
	}
	defer conn.Close()

	e.setState(StateSubscribed)
	e.logger.Printf("subscribed to %s", channel)

	for {
		ev, err := conn.Recv(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
				e.logger.Printf("subscription to %s dropped: %v", channel, err)
			}
			return
		}
		if err := e.apply(ctx, partnerID, ev); err != nil {
			e.logger.Printf("failed to apply %s event: %v", ev.Type, err)
		}
	}
}

// apply merges one remote event into the local store. Events are applied
// in arrival order and each row overwrites wholesale; timestamps carry no
// conflict-resolution weight. Events for any owner other than the
// subscribed partner are discarded without effect, as are records that
// fail to decode.
func (e *Engine) apply(ctx context.Context, partnerID string, ev *Event) error {
	switch ev.Type {
	case EventInsert, EventUpdate:
		task, err := schema.TaskFromRecord(ev.Record)
		if err != nil {
			e.logger.Printf("discarding malformed record: %v", err)
			return nil
		}
		if task.OwnerID != partnerID {
			return nil
		}
		return e.store.UpsertTask(ctx, task)

	case EventDelete:
		rec := ev.OldRecord
		if rec == nil {
			rec = ev.Record
		}
		id, _ := rec["id"].(string)
		if id == "" {
			e.logger.Printf("discarding delete event without id")
			return nil
		}

		existing, err := e.store.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil || existing.OwnerID != partnerID {
			return nil
		}
		_, err = e.store.DeleteTask(ctx, id)
		return err

	default:
		e.logger.Printf("discarding event with unknown type %q", ev.Type)
		return nil
	}
}
