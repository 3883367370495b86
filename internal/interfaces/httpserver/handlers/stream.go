package handlers

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-chat/internal/interfaces/httpserver/middlewares"
)

const (
	keepAliveInterval = 15 * time.Second
	maxQueuedEvents   = 4096
)

type streamEvent struct {
	name string
	data any
}

// eventQueue decouples store callbacks from the HTTP writer. Push never blocks;
// a reader that falls too far behind is disconnected and replays on reconnect.
type eventQueue struct {
	mu       sync.Mutex
	items    []streamEvent
	overflow bool
	signal   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

func (q *eventQueue) push(ev streamEvent) {
	q.mu.Lock()
	if len(q.items) >= maxQueuedEvents {
		q.overflow = true
	} else {
		q.items = append(q.items, ev)
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) drain() ([]streamEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items, q.overflow
}

// serveStream writes queued events as SSE until the client goes away.
// handle may rewrite or drop an event before it is written.
func serveStream(c *gin.Context, q *eventQueue, handle func(streamEvent) (streamEvent, bool)) {
	flusher, ok := middlewares.OpenEventStream(c)
	if !ok {
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	ctx := c.Request.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = c.Writer.WriteString(": keep-alive\n\n")
			flusher.Flush()
		case <-q.signal:
			items, overflow := q.drain()
			for _, ev := range items {
				if handle != nil {
					var keep bool
					if ev, keep = handle(ev); !keep {
						continue
					}
				}
				c.SSEvent(ev.name, ev.data)
			}
			if overflow {
				c.SSEvent("error", gin.H{"error": "stream fell behind, reconnect to resume"})
				flusher.Flush()
				return
			}
			flusher.Flush()
		}
	}
}
