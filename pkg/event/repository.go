package event

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

func (r repository) create(ctx context.Context, event *model.Event) error {
	// only use ctx for values (logging) and not cancellation signals on cud operations. ctx
	// cancellation can lead to rollbacks which we should decide individually.
	ctx = context.WithoutCancel(ctx)

	err := r.db.WithContext(ctx).Create(&event).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errdef.NewDuplicated("event slug %q already exists", event.Slug)
	}

	return err
}

// update applies changes to an event while holding its row lock, the same lock the
// rsvp admission takes before mutating the member set. The attendee count handed to
// apply is counted under that lock, so a validation against it can't be invalidated
// by a join committing before the save does.
func (r repository) update(ctx context.Context, id uint, apply func(event *model.Event, attendeeCount int) error) (*model.Event, error) {
	ctx = context.WithoutCancel(ctx)

	var event *model.Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("events.active = true").
			First(&event, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errdef.NewNotFound("event %d doesn't exist", id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock event %d: %v", id, err)
		}

		var attendees int64
		err = tx.Table("event_attendees").
			Where("event_id = ?", id).
			Count(&attendees).Error
		if err != nil {
			return fmt.Errorf("failed to count attendees: %v", err)
		}

		if err := apply(event, int(attendees)); err != nil {
			return err
		}

		// Omit Attendees so the save can never write the member set. The set is
		// owned by the rsvp repository's atomic operations.
		if err := tx.Omit("Attendees").Save(&event).Error; err != nil {
			return fmt.Errorf("failed to save event %d: %v", id, err)
		}

		return tx.Preload("Attendees").First(&event, id).Error
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

func (r repository) findById(ctx context.Context, id uint) (*model.Event, error) {
	var event *model.Event
	err := r.db.
		WithContext(ctx).
		Preload("Attendees").
		Where("events.active = true").
		First(&event, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("event %d doesn't exist", id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find event: %v", err)
	}

	return event, nil
}

func (r repository) findBySlug(ctx context.Context, slug string) (*model.Event, error) {
	var event *model.Event
	err := r.db.
		WithContext(ctx).
		Preload("Attendees").
		Where("events.slug = ? AND events.active = true", slug).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errdef.NewNotFound("event %q doesn't exist", slug)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find event: %v", err)
	}

	return event, nil
}

// Filter narrows down event listings. The zero value matches every active event.
type Filter struct {
	Query     string
	From      *time.Time
	To        *time.Time
	Upcoming  bool
	CreatorID uint
}

func (r repository) findAll(ctx context.Context, filter Filter) ([]model.Event, error) {
	query := r.db.
		WithContext(ctx).
		Preload("Attendees").
		Where("events.active = true")

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where("events.title ILIKE ? OR events.location ILIKE ?", pattern, pattern)
	}
	if filter.From != nil {
		query = query.Where("events.scheduled_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("events.scheduled_at <= ?", *filter.To)
	}
	if filter.Upcoming {
		query = query.Where("events.scheduled_at > ?", time.Now())
	}
	if filter.CreatorID != 0 {
		query = query.Where("events.creator_id = ?", filter.CreatorID)
	}

	var events []model.Event
	err := query.Order("events.scheduled_at asc").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %v", err)
	}

	return events, nil
}

func (r repository) findByCreator(ctx context.Context, creatorId uint) ([]model.Event, error) {
	var events []model.Event
	err := r.db.
		WithContext(ctx).
		Preload("Attendees").
		Where("events.creator_id = ? AND events.active = true", creatorId).
		Order("events.scheduled_at asc").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find events by creator: %v", err)
	}

	return events, nil
}

func (r repository) findJoined(ctx context.Context, userId uint) ([]model.Event, error) {
	var events []model.Event
	err := r.db.
		WithContext(ctx).
		Preload("Attendees").
		Joins("JOIN event_attendees ON event_attendees.event_id = events.id").
		Where("event_attendees.user_id = ? AND events.active = true", userId).
		Order("events.scheduled_at asc").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find joined events: %v", err)
	}

	return events, nil
}

func (r repository) deactivate(ctx context.Context, id uint) error {
	ctx = context.WithoutCancel(ctx)

	db := r.db.
		WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ? AND active = true", id).
		Update("active", false)
	if db.Error != nil {
		return fmt.Errorf("failed to deactivate event %d: %v", id, db.Error)
	}
	if db.RowsAffected < 1 {
		return errdef.NewNotFound("event %d doesn't exist", id)
	}

	return nil
}
