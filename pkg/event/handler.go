package event

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gatherly/gatherly/internal/errdef"
	"github.com/gatherly/gatherly/internal/handler"
	"github.com/gatherly/gatherly/pkg/model"
	"github.com/gin-gonic/gin"
)

func NewHandler(eventService eventService) Handler {
	return Handler{eventService}
}

type Handler struct {
	eventService eventService
}

type eventService interface {
	Create(ctx context.Context, creator *model.User, title string, description string, location string, capacity uint, scheduledAt time.Time) (*model.Event, error)
	Update(ctx context.Context, user *model.User, id uint, values UpdateValues) (*model.Event, error)
	Delete(ctx context.Context, user *model.User, id uint) error
	FindById(ctx context.Context, id uint) (*model.Event, error)
	FindBySlug(ctx context.Context, eventSlug string) (*model.Event, error)
	FindAll(ctx context.Context, filter Filter) ([]model.Event, error)
	FindByCreator(ctx context.Context, creatorId uint) ([]model.Event, error)
	FindJoined(ctx context.Context, userId uint) ([]model.Event, error)
}

// Response decorates an event with its derived attendance numbers.
type Response struct {
	*model.Event
	AttendeeCount  int  `json:"attendeeCount"`
	SpotsRemaining uint `json:"spotsRemaining"`
}

func newResponse(event *model.Event) Response {
	return Response{
		Event:          event,
		AttendeeCount:  len(event.Attendees),
		SpotsRemaining: event.SpotsRemaining(),
	}
}

func newResponses(events []model.Event) []Response {
	responses := make([]Response, len(events))
	for i := range events {
		responses[i] = newResponse(&events[i])
	}
	return responses
}

type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,max=200"`
	Description string    `json:"description" binding:"max=4000"`
	Location    string    `json:"location" binding:"max=200"`
	Capacity    uint      `json:"capacity" binding:"required,gte=1"`
	ScheduledAt time.Time `json:"scheduledAt" binding:"required,future"`
}

// Create event
func (h Handler) Create(c *gin.Context) {
	// swagger:route POST /events createEvent
	//
	// Create event
	//
	// Create an event. The authenticated user becomes the creator and is implicitly attending,
	// without taking up a spot.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   201: EventResponse
	//   400: Error
	//   401: Error
	//   415: Error
	var request CreateEventRequest

	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	event, err := h.eventService.Create(c.Request.Context(), user, request.Title, request.Description, request.Location, request.Capacity, request.ScheduledAt)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, newResponse(event))
}

type UpdateEventRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=4000"`
	Location    *string    `json:"location" binding:"omitempty,max=200"`
	Capacity    *uint      `json:"capacity" binding:"omitempty,gte=1"`
	ScheduledAt *time.Time `json:"scheduledAt" binding:"omitempty,future"`
}

// Update event
func (h Handler) Update(c *gin.Context) {
	// swagger:route PUT /events/{id} updateEvent
	//
	// Update event
	//
	// Update an event. Only the creator can update it. Capacity can't be lowered below the
	// current attendance.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: EventResponse
	//   400: Error
	//   401: Error
	//   403: Error
	//   404: Error
	//   415: Error
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	var request UpdateEventRequest
	if err := handler.DataBinder(c, &request); err != nil {
		_ = c.Error(err)
		return
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	values := UpdateValues{
		Title:       request.Title,
		Description: request.Description,
		Location:    request.Location,
		Capacity:    request.Capacity,
		ScheduledAt: request.ScheduledAt,
	}

	event, err := h.eventService.Update(c.Request.Context(), user, id, values)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newResponse(event))
}

// Delete event
func (h Handler) Delete(c *gin.Context) {
	// swagger:route DELETE /events/{id} deleteEvent
	//
	// Delete event
	//
	// Delete an event. Only the creator can delete it. The event disappears from listings but
	// its attendance records are kept.
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   202:
	//   401: Error
	//   403: Error
	//   404: Error
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.eventService.Delete(c.Request.Context(), user, id); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusAccepted)
}

// FindById event
func (h Handler) FindById(c *gin.Context) {
	// swagger:route GET /events/{id} findEventById
	//
	// Find event
	//
	// Find an event by id, including its attendee list and spots remaining
	//
	// responses:
	//   200: EventResponse
	//   404: Error
	id, ok := handler.GetPathParameter(c, "id")
	if !ok {
		return
	}

	event, err := h.eventService.FindById(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newResponse(event))
}

// FindBySlug event
func (h Handler) FindBySlug(c *gin.Context) {
	// swagger:route GET /events/slug/{slug} findEventBySlug
	//
	// Find event by slug
	//
	// Find an event by its URL friendly slug
	//
	// responses:
	//   200: EventResponse
	//   404: Error
	event, err := h.eventService.FindBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newResponse(event))
}

// FindAll events
func (h Handler) FindAll(c *gin.Context) {
	// swagger:route GET /events listEvents
	//
	// List events
	//
	// List active events. Supports filtering by free text (q), a scheduled time window (from,
	// to), upcoming=true and creator id.
	//
	// responses:
	//   200: EventResponses
	//   400: Error
	filter, err := parseFilter(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	events, err := h.eventService.FindAll(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newResponses(events))
}

func parseFilter(c *gin.Context) (Filter, error) {
	filter := Filter{
		Query:    c.Query("q"),
		Upcoming: c.Query("upcoming") == "true",
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return Filter{}, errdef.NewBadRequest("error parsing from: %v", err)
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return Filter{}, errdef.NewBadRequest("error parsing to: %v", err)
		}
		filter.To = &t
	}
	if creator := c.Query("creator"); creator != "" {
		id, err := strconv.ParseUint(creator, 10, 32)
		if err != nil {
			return Filter{}, errdef.NewBadRequest("error parsing creator: %v", err)
		}
		filter.CreatorID = uint(id)
	}

	return filter, nil
}

// Mine events
func (h Handler) Mine(c *gin.Context) {
	// swagger:route GET /events-mine myEvents
	//
	// My events
	//
	// List the active events created by the authenticated user
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: EventResponses
	//   401: Error
	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	events, err := h.eventService.FindByCreator(c.Request.Context(), user.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newResponses(events))
}

// Joined events
func (h Handler) Joined(c *gin.Context) {
	// swagger:route GET /rsvps-mine myRsvps
	//
	// My RSVPs
	//
	// List the active events the authenticated user has joined
	//
	// security:
	//   oauth2:
	//
	// responses:
	//   200: EventResponses
	//   401: Error
	user, err := handler.GetUserFromContext(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	events, err := h.eventService.FindJoined(c.Request.Context(), user.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newResponses(events))
}
