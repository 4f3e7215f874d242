package store

import "sync"

// Table identifies a table for change subscriptions.
type Table string

const (
	TableTask         Table = "task"
	TableWeek         Table = "week"
	TableGoal         Table = "goal"
	TableGoalProgress Table = "goal_progress"
	TablePartnership  Table = "partnership"
	TableInvite       Table = "invite"
	TablePartnerGoal  Table = "partner_goal"
)

// Notifier fans out table-scoped change signals to subscribers.
//
// A subscription carries no payload: a signal means "the table changed,
// re-run your query". Channels are buffered with capacity one so rapid
// writes coalesce instead of blocking writers; subscribers always observe
// the latest state when they get around to re-querying.
type Notifier struct {
	mu     sync.Mutex
	subs   map[Table]map[uint64]chan struct{}
	nextID uint64
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[Table]map[uint64]chan struct{}),
	}
}

// Subscribe registers a change listener for the table. The cancel function
// removes the subscription and closes the channel; it is safe to call more
// than once.
func (n *Notifier) Subscribe(table Table) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	id := n.nextID
	n.nextID++

	if n.subs[table] == nil {
		n.subs[table] = make(map[uint64]chan struct{})
	}
	n.subs[table][id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[table][id]; ok {
			delete(n.subs[table], id)
			close(ch)
		}
	}

	return ch, cancel
}

// Notify signals all subscribers of the table. Never blocks: a subscriber
// with a pending signal keeps exactly one.
func (n *Notifier) Notify(table Table) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs[table] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
