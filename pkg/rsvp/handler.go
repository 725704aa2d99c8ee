package rsvp

import (
	"context"
	"net/http"

	"github.com/gatherly/gatherly/internal/handler"
	"github.com/gatherly/gatherly/pkg/model"
	"github.com/gin-gonic/gin"
)

func NewHandler(rsvpService rsvpService) Handler {
	return Handler{rsvpService}
}

type Handler struct {
	rsvpService rsvpService
}

type rsvpService interface {
	Join(ctx context.Context, user *model.User, eventId uint) (Outcome, error)
	Leave(ctx context.Context, user *model.User, eventId uint) (Outcome, error)
}

// Response is returned when a join or leave was applied.
type Response struct {
	Status         Status       `json:"status"`
	AttendeeCount  int          `json:"attendeeCount"`
	SpotsRemaining uint         `json:"spotsRemaining"`
	Event          *model.Event `json:"event"`
}

// RejectionResponse is returned when a join or leave wasn't applied.
type RejectionResponse struct {
	Reason         Reason `json:"reason"`
	Message        string `json:"message"`
	SpotsRemaining uint   `json:"spotsRemaining"`
}

// Join event
func (h Handler) Join(c *gin.Context) {
	// swagger:route POST /events/{id}/rsvp joinEvent
	//
	// Join event
	//
	// Request a spot at an event. The request either takes a spot atomically or is rejected
	// with a reason. Capacity is never exceeded, even under concurrent requests.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   201: RsvpResponse
	//   400: Error
	//   401: Error
	//   404: RsvpRejection
	//   409: RsvpRejection
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	outcome, err := h.rsvpService.Join(c.Request.Context(), user, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if !outcome.Applied {
		c.JSON(rejectionStatus(outcome.Reason), newRejectionResponse(outcome))
		return
	}

	c.JSON(http.StatusCreated, newResponse(outcome))
}

// Leave event
func (h Handler) Leave(c *gin.Context) {
	// swagger:route DELETE /events/{id}/rsvp leaveEvent
	//
	// Leave event
	//
	// Give up a spot at an event. Allowed even after the event took place, so users can
	// always remove themselves.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: RsvpResponse
	//   400: Error
	//   401: Error
	//   404: RsvpRejection
	//   409: RsvpRejection
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	outcome, err := h.rsvpService.Leave(c.Request.Context(), user, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if !outcome.Applied {
		c.JSON(rejectionStatus(outcome.Reason), newRejectionResponse(outcome))
		return
	}

	c.JSON(http.StatusOK, newResponse(outcome))
}

func newResponse(outcome Outcome) Response {
	return Response{
		Status:         outcome.Status,
		AttendeeCount:  len(outcome.Event.Attendees),
		SpotsRemaining: outcome.SpotsRemaining,
		Event:          outcome.Event,
	}
}

func newRejectionResponse(outcome Outcome) RejectionResponse {
	return RejectionResponse{
		Reason:         outcome.Reason,
		Message:        outcome.Message,
		SpotsRemaining: outcome.SpotsRemaining,
	}
}

func rejectionStatus(reason Reason) int {
	if reason == ReasonNotFound {
		return http.StatusNotFound
	}
	return http.StatusConflict
}
