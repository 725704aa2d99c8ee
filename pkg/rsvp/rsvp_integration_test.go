package rsvp_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gatherly/gatherly/pkg/inttest"
	"github.com/gatherly/gatherly/pkg/model"
	"github.com/gatherly/gatherly/pkg/rsvp"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func TestRSVP_ConcurrentJoinsNeverOverbook(t *testing.T) {
	t.Parallel()

	db := inttest.SetupDB(t)
	creator := seedUser(t, db, "creator@gatherly.io")
	event := seedEvent(t, db, creator.ID, 5, time.Now().Add(time.Hour))

	const contenders = 20
	users := make([]*model.User, contenders)
	for i := range contenders {
		users[i] = seedUser(t, db, fmt.Sprintf("user-%d@gatherly.io", i))
	}

	service := rsvp.NewService(slog.New(slog.DiscardHandler), rsvp.NewRepository(db), noopNotifier{}, noopFeed{})

	outcomes := make([]rsvp.Outcome, contenders)
	var group errgroup.Group
	for i := range contenders {
		group.Go(func() error {
			outcome, err := service.Join(context.Background(), users[i], event.ID)
			outcomes[i] = outcome
			return err
		})
	}
	require.NoError(t, group.Wait())

	winners := 0
	for _, outcome := range outcomes {
		if outcome.Applied {
			winners++
		} else {
			assert.Equal(t, rsvp.ReasonAtCapacity, outcome.Reason)
		}
	}
	assert.Equal(t, 5, winners, "winners must match the capacity exactly")

	var attendees int64
	require.NoError(t, db.Table("event_attendees").Where("event_id = ?", event.ID).Count(&attendees).Error)
	assert.EqualValues(t, 5, attendees, "stored attendance must match the capacity exactly")
}

func TestRSVP_JoinIsNotRepeatable(t *testing.T) {
	t.Parallel()

	db := inttest.SetupDB(t)
	creator := seedUser(t, db, "creator@gatherly.io")
	user := seedUser(t, db, "user@gatherly.io")
	event := seedEvent(t, db, creator.ID, 5, time.Now().Add(time.Hour))

	service := rsvp.NewService(slog.New(slog.DiscardHandler), rsvp.NewRepository(db), noopNotifier{}, noopFeed{})

	first, err := service.Join(context.Background(), user, event.ID)
	require.NoError(t, err)
	require.True(t, first.Applied)
	assert.Equal(t, uint(4), first.SpotsRemaining)

	second, err := service.Join(context.Background(), user, event.ID)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, rsvp.ReasonAlreadyJoined, second.Reason)

	var attendees int64
	require.NoError(t, db.Table("event_attendees").Where("event_id = ?", event.ID).Count(&attendees).Error)
	assert.EqualValues(t, 1, attendees)
}

func TestRSVP_ConcurrentRepeatJoinsYieldOneMembership(t *testing.T) {
	t.Parallel()

	db := inttest.SetupDB(t)
	creator := seedUser(t, db, "creator@gatherly.io")
	user := seedUser(t, db, "user@gatherly.io")
	event := seedEvent(t, db, creator.ID, 10, time.Now().Add(time.Hour))

	service := rsvp.NewService(slog.New(slog.DiscardHandler), rsvp.NewRepository(db), noopNotifier{}, noopFeed{})

	const attempts = 10
	outcomes := make([]rsvp.Outcome, attempts)
	var group errgroup.Group
	for i := range attempts {
		group.Go(func() error {
			outcome, err := service.Join(context.Background(), user, event.ID)
			outcomes[i] = outcome
			return err
		})
	}
	require.NoError(t, group.Wait())

	applied := 0
	for _, outcome := range outcomes {
		if outcome.Applied {
			applied++
		} else {
			assert.Equal(t, rsvp.ReasonAlreadyJoined, outcome.Reason)
		}
	}
	assert.Equal(t, 1, applied, "exactly one of the racing joins must be admitted")

	var attendees int64
	require.NoError(t, db.Table("event_attendees").Where("event_id = ?", event.ID).Count(&attendees).Error)
	assert.EqualValues(t, 1, attendees, "membership is a set, racing joins must not duplicate it")
}

func TestRSVPHandler(t *testing.T) {
	t.Parallel()

	db := inttest.SetupDB(t)
	creator := seedUser(t, db, "creator@gatherly.io")
	user := seedUser(t, db, "user@gatherly.io")
	event := seedEvent(t, db, creator.ID, 1, time.Now().Add(time.Hour))

	service := rsvp.NewService(slog.New(slog.DiscardHandler), rsvp.NewRepository(db), noopNotifier{}, noopFeed{})

	client := inttest.SetupHTTPServer(t, func(router gin.IRouter) {
		handler := rsvp.NewHandler(service)
		rsvp.Routes(router, testAuthenticator{}, handler)
	})

	path := fmt.Sprintf("/events/%d/rsvp", event.ID)

	t.Run("Join", func(t *testing.T) {
		var response rsvp.Response
		client.PostJSON(t, path, nil, &response, asUser(user))
		require.Equal(t, rsvp.StatusJoined, response.Status)
		require.Equal(t, uint(0), response.SpotsRemaining)
		require.Equal(t, 1, response.AttendeeCount)
	})

	t.Run("JoinFullEvent", func(t *testing.T) {
		other := seedUser(t, db, "late@gatherly.io")
		body := client.Do(t, http.MethodPost, path, nil, http.StatusConflict, asUser(other))
		require.Contains(t, string(body), rsvp.ReasonAtCapacity)
	})

	t.Run("JoinUnknownEvent", func(t *testing.T) {
		body := client.Do(t, http.MethodPost, "/events/4242/rsvp", nil, http.StatusNotFound, asUser(user))
		require.Contains(t, string(body), rsvp.ReasonNotFound)
	})

	t.Run("Leave", func(t *testing.T) {
		body := client.Do(t, http.MethodDelete, path, nil, http.StatusOK, asUser(user))
		require.Contains(t, string(body), rsvp.StatusLeft)

		body = client.Do(t, http.MethodDelete, path, nil, http.StatusConflict, asUser(user))
		require.Contains(t, string(body), rsvp.ReasonNotJoined)
	})
}

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()

	user := &model.User{Email: email, Password: "irrelevant", Validated: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedEvent(t *testing.T, db *gorm.DB, creatorId uint, capacity uint, scheduledAt time.Time) *model.Event {
	t.Helper()

	event := &model.Event{
		Title:       "integration",
		Slug:        fmt.Sprintf("integration-%d", time.Now().UnixNano()),
		Capacity:    capacity,
		ScheduledAt: scheduledAt,
		Active:      true,
		CreatorID:   creatorId,
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

// testAuthenticator trusts the X-User-ID header so tests can act as any seeded user.
type testAuthenticator struct{}

func (a testAuthenticator) TokenAuthentication(c *gin.Context) {
	id, err := strconv.ParseUint(c.GetHeader("X-User-ID"), 10, 32)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Set("user", &model.User{ID: uint(id)})
}

func asUser(user *model.User) func(http.Header) {
	return inttest.WithHeader("X-User-ID", strconv.FormatUint(uint64(user.ID), 10))
}

type noopNotifier struct{}

func (noopNotifier) RSVPJoined(ctx context.Context, event *model.Event, user *model.User) error {
	return nil
}

func (noopNotifier) RSVPLeft(ctx context.Context, event *model.Event, user *model.User) error {
	return nil
}

type noopFeed struct{}

func (noopFeed) BroadcastAttendance(eventId uint, status rsvp.Status, attendeeCount int, spotsRemaining uint) {
}
