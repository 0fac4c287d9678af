// Package notify holds the short-lived, user-facing messages produced by
// session operations. Messages expire on their own after a fixed delay and
// are never persisted.
package notify

import (
	"sync"
	"time"
)

type Type string

const (
	Info    Type = "info"
	Success Type = "success"
	Warning Type = "warning"
	Error   Type = "error"
)

// DefaultTTL is how long a notification stays queued unless dismissed.
const DefaultTTL = 3000 * time.Millisecond

type Notification struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Type    Type   `json:"type"`
}

type Queue struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	items  []Notification
	timers map[int64]*time.Timer
	lastID int64
	closed bool
}

func NewQueue(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{
		ttl:    ttl,
		now:    time.Now,
		timers: make(map[int64]*time.Timer),
	}
}

// Add queues a message and schedules its expiry. Ids are creation
// timestamps in milliseconds, bumped when needed so they strictly ascend.
// A closed queue drops the message and returns 0.
func (q *Queue) Add(message string, typ Type) int64 {
	if typ == "" {
		typ = Info
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0
	}

	id := q.now().UnixMilli()
	if id <= q.lastID {
		id = q.lastID + 1
	}
	q.lastID = id

	q.items = append(q.items, Notification{ID: id, Message: message, Type: typ})
	q.timers[id] = time.AfterFunc(q.ttl, func() { q.Remove(id) })
	return id
}

// Remove dismisses id. Removing an unknown or already expired id is a no-op.
func (q *Queue) Remove(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i := range q.items {
		if q.items[i].ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return
		}
	}
}

// List returns the queued notifications, oldest first.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Notification(nil), q.items...)
}

// Close stops pending expiry timers. Queued messages stay until removed and
// later Adds are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.closed = true
}
