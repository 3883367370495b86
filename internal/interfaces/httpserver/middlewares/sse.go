package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpenEventStream commits a 200 text/event-stream response and flushes the
// headers so clients see the stream open before the first event.
func OpenEventStream(c *gin.Context) (http.Flusher, bool) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Disables proxy buffering (nginx).
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	flusher.Flush()
	return flusher, true
}
