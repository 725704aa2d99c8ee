package rsvp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatherly/gatherly/internal/errdef"
	"github.com/gatherly/gatherly/pkg/model"
)

type Status string

const (
	StatusJoined Status = "joined"
	StatusLeft   Status = "left"
)

// Reason explains why an RSVP request wasn't applied. Reasons are diagnostic only.
// The decision to reject was already made atomically, the reason is a best effort
// reconstruction for the response message.
type Reason string

const (
	ReasonNotFound                   Reason = "NotFound"
	ReasonEventEnded                 Reason = "EventEnded"
	ReasonCreatorImplicitlyAttending Reason = "CreatorImplicitlyAttending"
	ReasonAlreadyJoined              Reason = "AlreadyJoined"
	ReasonAtCapacity                 Reason = "AtCapacity"
	ReasonTransientConflict          Reason = "TransientConflict"
	ReasonNotJoined                  Reason = "NotJoined"
)

// Outcome is the result of a join or leave request. Applied outcomes carry the event
// snapshot the mutation produced. Rejected outcomes carry a reason and message, and
// are not errors: a full event is the system working as intended.
type Outcome struct {
	Applied        bool
	Status         Status
	Reason         Reason
	Message        string
	Event          *model.Event
	SpotsRemaining uint
}

type rsvpRepository interface {
	tryJoin(ctx context.Context, eventId uint, userId uint, now time.Time) (*model.Event, bool, error)
	tryLeave(ctx context.Context, eventId uint, userId uint) (*model.Event, bool, error)
	findEvent(ctx context.Context, eventId uint) (*model.Event, error)
}

type notifier interface {
	RSVPJoined(ctx context.Context, event *model.Event, user *model.User) error
	RSVPLeft(ctx context.Context, event *model.Event, user *model.User) error
}

type feed interface {
	BroadcastAttendance(eventId uint, status Status, attendeeCount int, spotsRemaining uint)
}

//goland:noinspection GoExportedFuncWithUnexportedType
func NewService(logger *slog.Logger, rsvpRepository rsvpRepository, notifier notifier, feed feed) *service {
	return &service{logger, rsvpRepository, notifier, feed}
}

type service struct {
	logger         *slog.Logger
	rsvpRepository rsvpRepository
	notifier       notifier
	feed           feed
}

func (s service) Join(ctx context.Context, user *model.User, eventId uint) (Outcome, error) {
	snapshot, applied, err := s.rsvpRepository.tryJoin(ctx, eventId, user.ID, time.Now())
	if err != nil {
		return Outcome{}, err
	}

	if !applied {
		return s.diagnoseJoin(ctx, user, eventId)
	}

	s.broadcast(ctx, StatusJoined, snapshot, user)

	return Outcome{
		Applied:        true,
		Status:         StatusJoined,
		Event:          snapshot,
		SpotsRemaining: snapshot.SpotsRemaining(),
	}, nil
}

func (s service) Leave(ctx context.Context, user *model.User, eventId uint) (Outcome, error) {
	snapshot, applied, err := s.rsvpRepository.tryLeave(ctx, eventId, user.ID)
	if err != nil {
		return Outcome{}, err
	}

	if !applied {
		return s.diagnoseLeave(ctx, eventId)
	}

	s.broadcast(ctx, StatusLeft, snapshot, user)

	return Outcome{
		Applied:        true,
		Status:         StatusLeft,
		Event:          snapshot,
		SpotsRemaining: snapshot.SpotsRemaining(),
	}, nil
}

// diagnoseJoin re-reads the event without a lock to pick the most useful rejection
// reason. The event may have changed since the atomic check, which is fine: the first
// matching reason in precedence order still describes a state the request could have
// been rejected for.
func (s service) diagnoseJoin(ctx context.Context, user *model.User, eventId uint) (Outcome, error) {
	event, err := s.rsvpRepository.findEvent(ctx, eventId)
	if errdef.IsNotFound(err) {
		return rejected(ReasonNotFound, fmt.Sprintf("event %d doesn't exist", eventId), nil), nil
	}
	if err != nil {
		return Outcome{}, err
	}

	switch {
	case !event.Active:
		return rejected(ReasonNotFound, fmt.Sprintf("event %d doesn't exist", eventId), nil), nil
	case event.IsPast(time.Now()):
		return rejected(ReasonEventEnded, "the event has already taken place", event), nil
	case event.CreatorID == user.ID:
		return rejected(ReasonCreatorImplicitlyAttending, "the creator is already attending their own event", event), nil
	case event.HasAttendee(user.ID):
		return rejected(ReasonAlreadyJoined, "you have already joined this event", event), nil
	case event.SpotsRemaining() == 0:
		return rejected(ReasonAtCapacity, "the event is full", event), nil
	default:
		return rejected(ReasonTransientConflict, "the event changed while handling the request, please retry", event), nil
	}
}

func (s service) diagnoseLeave(ctx context.Context, eventId uint) (Outcome, error) {
	_, err := s.rsvpRepository.findEvent(ctx, eventId)
	if errdef.IsNotFound(err) {
		return rejected(ReasonNotFound, fmt.Sprintf("event %d doesn't exist", eventId), nil), nil
	}
	if err != nil {
		return Outcome{}, err
	}

	return rejected(ReasonNotJoined, "you haven't joined this event", nil), nil
}

func rejected(reason Reason, message string, event *model.Event) Outcome {
	outcome := Outcome{Reason: reason, Message: message}
	if event != nil {
		outcome.SpotsRemaining = event.SpotsRemaining()
	}
	return outcome
}

// broadcast fans the applied change out to the live feed and the notification queue.
// Neither can undo the admission decision so failures are logged, not returned.
func (s service) broadcast(ctx context.Context, status Status, event *model.Event, user *model.User) {
	s.feed.BroadcastAttendance(event.ID, status, len(event.Attendees), event.SpotsRemaining())

	var err error
	if status == StatusJoined {
		err = s.notifier.RSVPJoined(ctx, event, user)
	} else {
		err = s.notifier.RSVPLeft(ctx, event, user)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish rsvp notification", "error", err, "event", event.ID, "status", status)
	}
}
