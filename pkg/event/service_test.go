package event

import (
	"context"
	"testing"
	"time"

	"github.com/gatherly/gatherly/internal/errdef"
	"github.com/gatherly/gatherly/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_Create(t *testing.T) {
	repository := &mockEventRepository{}
	repository.
		On("create", mock.AnythingOfType("*model.Event")).
		Return(nil)
	s := NewService(repository)
	creator := &model.User{ID: 1}
	scheduledAt := time.Now().Add(time.Hour)

	event, err := s.Create(context.Background(), creator, "Friday Jam", "bring drums", "the basement", 10, scheduledAt)

	require.NoError(t, err)
	assert.Equal(t, "friday-jam", event.Slug)
	assert.Equal(t, uint(1), event.CreatorID)
	assert.True(t, event.Active)
	repository.AssertExpectations(t)
}

func TestService_Create_SuffixesSlugOnCollision(t *testing.T) {
	repository := &mockEventRepository{}
	repository.
		On("create", mock.AnythingOfType("*model.Event")).
		Return(errdef.NewDuplicated("event slug %q already exists", "friday-jam")).
		Once()
	repository.
		On("create", mock.AnythingOfType("*model.Event")).
		Return(nil).
		Once()
	s := NewService(repository)
	creator := &model.User{ID: 1}

	event, err := s.Create(context.Background(), creator, "Friday Jam", "", "", 10, time.Now().Add(time.Hour))

	require.NoError(t, err)
	assert.Regexp(t, "^friday-jam-[0-9a-f]{8}$", event.Slug)
	repository.AssertExpectations(t)
}

func TestService_Update_OnlyCreator(t *testing.T) {
	repository := &mockEventRepository{}
	repository.
		On("update", uint(5)).
		Return(&model.Event{ID: 5, CreatorID: 1}, 0, nil)
	s := NewService(repository)

	_, err := s.Update(context.Background(), &model.User{ID: 2}, 5, UpdateValues{})

	require.Error(t, err)
	assert.True(t, errdef.IsForbidden(err))
	repository.AssertExpectations(t)
}

func TestService_Update_RejectsCapacityBelowAttendance(t *testing.T) {
	repository := &mockEventRepository{}
	event := &model.Event{
		ID:        5,
		CreatorID: 1,
		Capacity:  10,
		Attendees: []model.User{{ID: 2}, {ID: 3}, {ID: 4}},
	}
	repository.
		On("update", uint(5)).
		Return(event, 3, nil)
	s := NewService(repository)
	capacity := uint(2)

	_, err := s.Update(context.Background(), &model.User{ID: 1}, 5, UpdateValues{Capacity: &capacity})

	require.Error(t, err)
	assert.True(t, errdef.IsBadRequest(err))
	assert.ErrorContains(t, err, "below the current attendance")
	repository.AssertExpectations(t)
}

func TestService_Update_ValidatesCapacityAgainstLockedAttendance(t *testing.T) {
	repository := &mockEventRepository{}
	// the preloaded snapshot only knows one attendee, two more joins committed
	// before the row lock was taken
	event := &model.Event{
		ID:        5,
		CreatorID: 1,
		Capacity:  10,
		Attendees: []model.User{{ID: 2}},
	}
	repository.
		On("update", uint(5)).
		Return(event, 3, nil)
	s := NewService(repository)
	capacity := uint(2)

	_, err := s.Update(context.Background(), &model.User{ID: 1}, 5, UpdateValues{Capacity: &capacity})

	require.Error(t, err)
	assert.True(t, errdef.IsBadRequest(err))
	assert.ErrorContains(t, err, "below the current attendance of 3")
	assert.Equal(t, uint(10), event.Capacity, "a rejected shrink must not touch the event")
	repository.AssertExpectations(t)
}

func TestService_Update(t *testing.T) {
	repository := &mockEventRepository{}
	event := &model.Event{ID: 5, CreatorID: 1, Capacity: 10, Title: "old"}
	repository.
		On("update", uint(5)).
		Return(event, 0, nil)
	s := NewService(repository)
	title := "new"
	capacity := uint(20)

	updated, err := s.Update(context.Background(), &model.User{ID: 1}, 5, UpdateValues{Title: &title, Capacity: &capacity})

	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, uint(20), updated.Capacity)
	repository.AssertExpectations(t)
}

func TestService_Delete_OnlyCreator(t *testing.T) {
	repository := &mockEventRepository{}
	repository.
		On("findById", uint(5)).
		Return(&model.Event{ID: 5, CreatorID: 1}, nil)
	s := NewService(repository)

	err := s.Delete(context.Background(), &model.User{ID: 2}, 5)

	require.Error(t, err)
	assert.True(t, errdef.IsForbidden(err))
	repository.AssertNotCalled(t, "deactivate", mock.Anything)
}

func TestService_Delete(t *testing.T) {
	repository := &mockEventRepository{}
	repository.
		On("findById", uint(5)).
		Return(&model.Event{ID: 5, CreatorID: 1}, nil)
	repository.
		On("deactivate", uint(5)).
		Return(nil)
	s := NewService(repository)

	err := s.Delete(context.Background(), &model.User{ID: 1}, 5)

	require.NoError(t, err)
	repository.AssertExpectations(t)
}

type mockEventRepository struct{ mock.Mock }

func (m *mockEventRepository) create(ctx context.Context, event *model.Event) error {
	return m.Called(event).Error(0)
}

// update runs apply against the configured event and attendee count, mirroring the
// real repository's behaviour of applying changes under the event's row lock.
func (m *mockEventRepository) update(ctx context.Context, id uint, apply func(event *model.Event, attendeeCount int) error) (*model.Event, error) {
	called := m.Called(id)
	if err := called.Error(2); err != nil {
		return nil, err
	}
	event := called.Get(0).(*model.Event)
	if err := apply(event, called.Int(1)); err != nil {
		return nil, err
	}
	return event, nil
}

func (m *mockEventRepository) findById(ctx context.Context, id uint) (*model.Event, error) {
	called := m.Called(id)
	return called.Get(0).(*model.Event), called.Error(1)
}

func (m *mockEventRepository) findBySlug(ctx context.Context, slug string) (*model.Event, error) {
	panic("implement me")
}

func (m *mockEventRepository) findAll(ctx context.Context, filter Filter) ([]model.Event, error) {
	panic("implement me")
}

func (m *mockEventRepository) findByCreator(ctx context.Context, creatorId uint) ([]model.Event, error) {
	panic("implement me")
}

func (m *mockEventRepository) findJoined(ctx context.Context, userId uint) ([]model.Event, error) {
	panic("implement me")
}

func (m *mockEventRepository) deactivate(ctx context.Context, id uint) error {
	return m.Called(id).Error(0)
}
