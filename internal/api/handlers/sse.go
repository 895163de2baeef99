package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type sseMessage struct {
	event string
	data  interface{}
}

// mailbox holds the most recent message only. A slow client skips intermediate
// snapshots rather than falling behind. Single producer.
type mailbox struct {
	ch chan sseMessage
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan sseMessage, 1)}
}

func (m *mailbox) put(msg sseMessage) {
	for {
		select {
		case m.ch <- msg:
			return
		default:
			select {
			case <-m.ch:
			default:
			}
		}
	}
}

// serveSSE writes messages from box until the client goes away.
func serveSSE(c *gin.Context, box *mailbox, heartbeat time.Duration) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Content-Type", "text/event-stream")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-box.ch:
			c.SSEvent(msg.event, msg.data)
		case <-ticker.C:
			c.SSEvent("ping", "keepalive")
		}
		c.Writer.Flush()
	}
}
