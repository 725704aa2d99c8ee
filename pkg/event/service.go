package event

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/gatherly/internal/errdef"
	"github.com/gatherly/gatherly/pkg/model"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type eventRepository interface {
	create(ctx context.Context, event *model.Event) error
	update(ctx context.Context, id uint, apply func(event *model.Event, attendeeCount int) error) (*model.Event, error)
	findById(ctx context.Context, id uint) (*model.Event, error)
	findBySlug(ctx context.Context, slug string) (*model.Event, error)
	findAll(ctx context.Context, filter Filter) ([]model.Event, error)
	findByCreator(ctx context.Context, creatorId uint) ([]model.Event, error)
	findJoined(ctx context.Context, userId uint) ([]model.Event, error)
	deactivate(ctx context.Context, id uint) error
}

//goland:noinspection GoExportedFuncWithUnexportedType
func NewService(eventRepository eventRepository) *service {
	return &service{eventRepository}
}

type service struct {
	eventRepository eventRepository
}

func (s service) Create(ctx context.Context, creator *model.User, title string, description string, location string, capacity uint, scheduledAt time.Time) (*model.Event, error) {
	event := &model.Event{
		Title:       title,
		Slug:        slug.Make(title),
		Description: description,
		Location:    location,
		Capacity:    capacity,
		ScheduledAt: scheduledAt,
		Active:      true,
		CreatorID:   creator.ID,
	}

	err := s.eventRepository.create(ctx, event)
	if errdef.IsDuplicated(err) {
		// title already taken, suffix the slug to keep it unique
		event.Slug = fmt.Sprintf("%s-%s", event.Slug, uuid.NewString()[:8])
		err = s.eventRepository.create(ctx, event)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %v", err)
	}

	return event, nil
}

// UpdateValues carries the mutable fields of an event. Nil fields are left untouched.
type UpdateValues struct {
	Title       *string
	Description *string
	Location    *string
	Capacity    *uint
	ScheduledAt *time.Time
}

// Update validates and saves under the event's row lock so the capacity floor is
// checked against the attendance a concurrent join actually committed, not a stale
// snapshot.
func (s service) Update(ctx context.Context, user *model.User, id uint, values UpdateValues) (*model.Event, error) {
	return s.eventRepository.update(ctx, id, func(event *model.Event, attendeeCount int) error {
		if event.CreatorID != user.ID {
			return errdef.NewForbidden("only the creator can update event %d", id)
		}

		if values.Title != nil {
			event.Title = *values.Title
		}
		if values.Description != nil {
			event.Description = *values.Description
		}
		if values.Location != nil {
			event.Location = *values.Location
		}
		if values.Capacity != nil {
			// shrinking below the current attendance would strand members
			if int(*values.Capacity) < attendeeCount {
				return errdef.NewBadRequest("capacity %d is below the current attendance of %d", *values.Capacity, attendeeCount)
			}
			event.Capacity = *values.Capacity
		}
		if values.ScheduledAt != nil {
			event.ScheduledAt = *values.ScheduledAt
		}

		return nil
	})
}

func (s service) Delete(ctx context.Context, user *model.User, id uint) error {
	event, err := s.eventRepository.findById(ctx, id)
	if err != nil {
		return err
	}

	if event.CreatorID != user.ID {
		return errdef.NewForbidden("only the creator can delete event %d", id)
	}

	return s.eventRepository.deactivate(ctx, id)
}

func (s service) FindById(ctx context.Context, id uint) (*model.Event, error) {
	return s.eventRepository.findById(ctx, id)
}

func (s service) FindBySlug(ctx context.Context, eventSlug string) (*model.Event, error) {
	return s.eventRepository.findBySlug(ctx, eventSlug)
}

func (s service) FindAll(ctx context.Context, filter Filter) ([]model.Event, error) {
	return s.eventRepository.findAll(ctx, filter)
}

func (s service) FindByCreator(ctx context.Context, creatorId uint) ([]model.Event, error) {
	return s.eventRepository.findByCreator(ctx, creatorId)
}

func (s service) FindJoined(ctx context.Context, userId uint) ([]model.Event, error) {
	return s.eventRepository.findJoined(ctx, userId)
}
