package rsvp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly/gatherly/internal/errdef"
	"github.com/gatherly/gatherly/pkg/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//goland:noinspection GoExportedFuncWithUnexportedType
func NewRepository(db *gorm.DB) *repository {
	return &repository{db}
}

type repository struct {
	db *gorm.DB
}

// tryJoin adds userId to the event's attendee set if, at the moment of the check, the
// event exists, is active, hasn't started, the user isn't the creator or already a
// member, and a spot is free. Check and insert run in one transaction holding the
// event's row lock, so capacity can never be exceeded and no duplicate membership can
// be created no matter how many requests race. On success the returned snapshot is
// read while the lock is still held and reflects exactly the state this call produced.
func (r repository) tryJoin(ctx context.Context, eventId uint, userId uint, now time.Time) (*model.Event, bool, error) {
	ctx = context.WithoutCancel(ctx)

	var snapshot *model.Event
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event model.Event
		// serialize all membership changes for this event behind its row lock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, eventId).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock event %d: %v", eventId, err)
		}

		if !event.Active || event.IsPast(now) || event.CreatorID == userId {
			return nil
		}

		var member int64
		err = tx.Table("event_attendees").
			Where("event_id = ? AND user_id = ?", eventId, userId).
			Count(&member).Error
		if err != nil {
			return fmt.Errorf("failed to check membership: %v", err)
		}
		if member > 0 {
			return nil
		}

		var attendees int64
		err = tx.Table("event_attendees").
			Where("event_id = ?", eventId).
			Count(&attendees).Error
		if err != nil {
			return fmt.Errorf("failed to count attendees: %v", err)
		}
		if attendees >= int64(event.Capacity) {
			return nil
		}

		err = tx.Exec("INSERT INTO event_attendees (event_id, user_id) VALUES (?, ?)", eventId, userId).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// the join table's composite key backstops the membership check
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to add attendee: %v", err)
		}

		var fresh model.Event
		if err := tx.Preload("Attendees").First(&fresh, eventId).Error; err != nil {
			return fmt.Errorf("failed to read back event %d: %v", eventId, err)
		}

		snapshot = &fresh
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return snapshot, applied, nil
}

// tryLeave removes userId from the event's attendee set if the event exists and the
// user is a member. Leaving is allowed even after the event started or was deleted, so
// attendance history stays under the user's control.
func (r repository) tryLeave(ctx context.Context, eventId uint, userId uint) (*model.Event, bool, error) {
	ctx = context.WithoutCancel(ctx)

	var snapshot *model.Event
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event model.Event
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, eventId).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock event %d: %v", eventId, err)
		}

		result := tx.Exec("DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?", eventId, userId)
		if result.Error != nil {
			return fmt.Errorf("failed to remove attendee: %v", result.Error)
		}
		if result.RowsAffected < 1 {
			return nil
		}

		var fresh model.Event
		if err := tx.Preload("Attendees").First(&fresh, eventId).Error; err != nil {
			return fmt.Errorf("failed to read back event %d: %v", eventId, err)
		}

		snapshot = &fresh
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return snapshot, applied, nil
}

// findEvent is the plain read backing the rejection diagnosis. It deliberately runs
// outside any lock since its result is only used for messaging.
func (r repository) findEvent(ctx context.Context, eventId uint) (*model.Event, error) {
	var event *model.Event
	err := r.db.
		WithContext(ctx).
		Preload("Attendees").
		First(&event, eventId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("event %d doesn't exist", eventId)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find event: %v", err)
	}

	return event, nil
}
