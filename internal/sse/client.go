package sse

import (
	"sync"
	"sync/atomic"
	"time"
)

// clientQueueSize bounds each client's pending notifications. Winner
// announcements arrive as a burst of one event per winner, so the queue
// is sized well above the largest draw the storefront runs.
const clientQueueSize = 256

type SSEClient struct {
	UserID      string
	Role        string
	ConnectedAt time.Time
	Ch          chan SSEEvent
	Done        chan struct{}

	fullStreak atomic.Int32
	closeOnce  sync.Once
}

func NewClient(userID, role string) *SSEClient {
	return &SSEClient{
		UserID:      userID,
		Role:        role,
		ConnectedAt: time.Now().UTC(),
		Ch:          make(chan SSEEvent, clientQueueSize),
		Done:        make(chan struct{}),
	}
}

func (c *SSEClient) Close() {
	if c == nil {
		return
	}

	c.closeOnce.Do(func() {
		close(c.Done)
	})
}

// MarkDispatchSuccess resets the consecutive-full counter after a
// delivery lands.
func (c *SSEClient) MarkDispatchSuccess() {
	if c == nil {
		return
	}
	c.fullStreak.Store(0)
}

// MarkDispatchFull records another dropped event and returns the streak
// length; the hub disconnects the client once it stays full too long.
func (c *SSEClient) MarkDispatchFull() int32 {
	if c == nil {
		return 0
	}
	return c.fullStreak.Add(1)
}
