package stream

import (
	"io"

	"github.com/gatherly/gatherly/internal/handler"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

func NewHandler(broker broker) Handler {
	return Handler{broker}
}

type Handler struct {
	broker broker
}

type broker interface {
	Subscribe(eventId uint) (uint64, <-chan Update)
	Unsubscribe(eventId uint, id uint64)
}

// Feed event
func (h Handler) Feed(c *gin.Context) {
	// swagger:route GET /events/{id}/feed eventFeed
	//
	// Attendance feed
	//
	// Stream attendance changes for an event as server-sent events. Each message carries the
	// attendee count and spots remaining after the change.
	//
	// responses:
	//   200: Stream
	//   400: Error
	eventId, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	id, updates := h.broker.Subscribe(eventId)
	defer h.broker.Unsubscribe(eventId, id)

	c.Writer.Header().Set("Content-Type", sse.ContentType)
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case update, ok := <-updates:
			if !ok {
				return false
			}
			c.Render(-1, sse.Event{Event: "attendance", Data: update})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
