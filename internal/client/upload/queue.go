package upload

import "sync"

// eventQueue delivers events in push order on out without ever blocking
// the pusher. out is closed after the last event has been received.
type eventQueue struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	signal chan struct{}
	quit   chan struct{}
	out    chan Event
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		signal: make(chan struct{}, 1),
		quit:   make(chan struct{}),
		out:    make(chan Event),
	}
	go q.run()
	return q
}

// push appends ev; last marks the final event. Pushes after the final
// event are dropped.
func (q *eventQueue) push(ev Event, last bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, ev)
	if last {
		q.closed = true
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run() {
	for {
		q.mu.Lock()
		items, closed := q.items, q.closed
		q.items = nil
		q.mu.Unlock()

		for _, ev := range items {
			select {
			case q.out <- ev:
			case <-q.quit:
				return
			}
		}
		if len(items) > 0 {
			continue
		}
		if closed {
			close(q.out)
			return
		}
		<-q.signal
	}
}

// stop abandons undelivered events and releases the delivery goroutine
// without closing out. Only call it when nobody holds out.
func (q *eventQueue) stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	select {
	case <-q.quit:
	default:
		close(q.quit)
	}
}
