package watcher

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of changes. Every Add pushes the deadline back;
// once the burst has been quiet for delay, ready is signalled and Take
// returns everything accumulated so far.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending Kind
	timer   *time.Timer
	stopped bool

	ready chan struct{}
}

func newDebouncer(delay time.Duration) *debouncer {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	return &debouncer{
		delay: delay,
		ready: make(chan struct{}, 1),
	}
}

func (d *debouncer) Add(k Kind) {
	if k == KindNone {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending |= k
	if d.timer == nil {
		d.timer = time.AfterFunc(d.delay, d.signal)
		return
	}
	d.timer.Reset(d.delay)
}

// Ready is signalled when a quiet period ends.
func (d *debouncer) Ready() <-chan struct{} {
	return d.ready
}

// Take returns and clears the accumulated kinds.
func (d *debouncer) Take() Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := d.pending
	d.pending = KindNone
	return k
}

func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *debouncer) signal() {
	select {
	case d.ready <- struct{}{}:
	default:
		// already signalled; Take will pick up everything
	}
}
