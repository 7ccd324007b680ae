package sse

import (
	"strconv"
	"sync"
)

// defaultReplayLogSize covers a few minutes of storefront traffic; a
// client that reconnects later than that starts from live events only.
const defaultReplayLogSize = 1000

// ReplayLog is the bounded history behind Last-Event-ID reconnects: the
// hub appends every published notification, and a returning client asks
// for everything after the last ID it saw.
type ReplayLog struct {
	mu       sync.RWMutex
	capacity int
	events   []SSEEvent
	head     int
	count    int
}

func NewReplayLog(capacity int) *ReplayLog {
	if capacity <= 0 {
		capacity = defaultReplayLogSize
	}

	return &ReplayLog{
		capacity: capacity,
		events:   make([]SSEEvent, capacity),
	}
}

// Push appends an event, evicting the oldest once the log is full.
func (l *ReplayLog) Push(event SSEEvent) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count < l.capacity {
		l.events[(l.head+l.count)%l.capacity] = event
		l.count++
		return
	}

	l.events[l.head] = event
	l.head = (l.head + 1) % l.capacity
}

// Since returns the events published after lastID, oldest first. Event
// IDs are monotonic sequence numbers; a blank or unparsable lastID
// replays the whole log.
func (l *ReplayLog) Since(lastID string) []SSEEvent {
	if l == nil {
		return nil
	}

	l.mu.RLock()
	ordered := make([]SSEEvent, 0, l.count)
	for i := 0; i < l.count; i++ {
		ordered = append(ordered, l.events[(l.head+i)%l.capacity])
	}
	l.mu.RUnlock()

	lastSeq, err := strconv.ParseInt(lastID, 10, 64)
	if lastID == "" || err != nil {
		return ordered
	}

	// IDs are assigned in publish order, so everything from the first
	// newer event onward qualifies.
	for i, event := range ordered {
		seq, err := strconv.ParseInt(event.ID, 10, 64)
		if err != nil {
			continue
		}
		if seq > lastSeq {
			return ordered[i:]
		}
	}
	return nil
}
