package git

import "context"

// pendingNotifications holds the events an operation raises while the
// repository lock is held. Observers run synchronously and may read the
// repository, so nothing is published until the lock is released.
type pendingNotifications struct {
	repo   *Repository
	events []pendingEvent
	branch bool
}

type pendingEvent struct {
	eventType string
	data      map[string]any
}

func (n *pendingNotifications) publish(eventType string, data map[string]any) {
	n.events = append(n.events, pendingEvent{eventType: eventType, data: data})
}

// refreshBranch re-reads the current branch on flush.
func (n *pendingNotifications) refreshBranch() {
	n.branch = true
}

// flush must be called without the repository lock.
func (n *pendingNotifications) flush(ctx context.Context) {
	events := n.events
	n.events = nil
	for _, ev := range events {
		n.repo.publishEvent(ev.eventType, ev.data)
	}

	if n.branch {
		n.branch = false
		n.repo.UpdateCurrentBranch(ctx)
	}
}
