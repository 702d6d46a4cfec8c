package gpio

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/blinkd/internal/metrics"
)

const defaultQueueLimit = 64

// eventQueue buffers edge events between the producer (kernel event reader
// or simulator) and the dispatcher. A push signals the chip-wide wake channel.
type eventQueue struct {
	mu     sync.Mutex
	offset int
	events []Event
	limit  int
	wake   chan<- struct{}
}

func newEventQueue(offset, limit int, wake chan<- struct{}) *eventQueue {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	return &eventQueue{offset: offset, limit: limit, wake: wake}
}

// push appends e. A push into a full queue is counted as a drop and returns
// false.
func (q *eventQueue) push(e Event) bool {
	q.mu.Lock()
	if len(q.events) >= q.limit {
		q.mu.Unlock()
		metrics.EventDropped(q.offset)
		return false
	}
	q.events = append(q.events, e)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *eventQueue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]
	q.events[0] = Event{}
	q.events = q.events[1:]
	return e, true
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// waitReady implements Chip.Poll over any set of queue-backed lines sharing
// one wake channel.
func waitReady(ctx context.Context, wake <-chan struct{}, lines []EdgeLine, timeout time.Duration) ([]bool, error) {
	ready := make([]bool, len(lines))
	if scanReady(lines, ready) {
		return ready, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			scanReady(lines, ready)
			return ready, nil
		case <-wake:
			if scanReady(lines, ready) {
				return ready, nil
			}
		}
	}
}

func scanReady(lines []EdgeLine, ready []bool) bool {
	anyReady := false
	for i, l := range lines {
		ready[i] = l.Pending() > 0
		anyReady = anyReady || ready[i]
	}
	return anyReady
}
