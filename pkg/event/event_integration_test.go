package event_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gatherly/gatherly/pkg/event"
	"github.com/gatherly/gatherly/pkg/inttest"
	"github.com/gatherly/gatherly/pkg/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestEventHandler(t *testing.T) {
	t.Parallel()

	db := inttest.SetupDB(t)
	creator := &model.User{Email: "creator@gatherly.io", Password: "irrelevant", Validated: true}
	require.NoError(t, db.Create(creator).Error)
	other := &model.User{Email: "other@gatherly.io", Password: "irrelevant", Validated: true}
	require.NoError(t, db.Create(other).Error)

	eventService := event.NewService(event.NewRepository(db))

	client := inttest.SetupHTTPServer(t, func(router gin.IRouter) {
		handler := event.NewHandler(eventService)
		event.Routes(router, testAuthenticator{}, handler)
	})

	scheduledAt := time.Now().Add(24 * time.Hour).UTC()

	var created event.Response
	{
		requestBody := strings.NewReader(fmt.Sprintf(`{
			"title": "Board Game Night",
			"description": "Bring your own snacks",
			"location": "Community Hall",
			"capacity": 8,
			"scheduledAt": %q
		}`, scheduledAt.Format(time.RFC3339)))

		client.PostJSON(t, "/events", requestBody, &created, asUser(creator))
		require.Equal(t, "Board Game Night", created.Title)
		require.Equal(t, "board-game-night", created.Slug)
		require.Equal(t, uint(8), created.SpotsRemaining)
		require.Equal(t, creator.ID, created.CreatorID)
	}

	path := fmt.Sprintf("/events/%d", created.ID)

	t.Run("RejectsEventInThePast", func(t *testing.T) {
		requestBody := strings.NewReader(`{
			"title": "Too late",
			"capacity": 8,
			"scheduledAt": "2020-01-01T10:00:00Z"
		}`)

		client.Do(t, http.MethodPost, "/events", requestBody, http.StatusBadRequest,
			asUser(creator), inttest.WithHeader("Content-Type", "application/json"))
	})

	t.Run("FindById", func(t *testing.T) {
		var found event.Response
		client.GetJSON(t, path, &found)
		require.Equal(t, created.ID, found.ID)
		require.Equal(t, 0, found.AttendeeCount)
	})

	t.Run("FindBySlug", func(t *testing.T) {
		var found event.Response
		client.GetJSON(t, "/events/slug/board-game-night", &found)
		require.Equal(t, created.ID, found.ID)
	})

	t.Run("List", func(t *testing.T) {
		var events []event.Response
		client.GetJSON(t, "/events?upcoming=true", &events)
		require.Len(t, events, 1)
	})

	t.Run("ListOutsideWindow", func(t *testing.T) {
		var events []event.Response
		to := time.Now().Format(time.RFC3339)
		client.GetJSON(t, "/events?to="+to, &events)
		require.Empty(t, events)
	})

	t.Run("Mine", func(t *testing.T) {
		var events []event.Response
		client.GetJSON(t, "/events-mine", &events, asUser(creator))
		require.Len(t, events, 1)

		client.GetJSON(t, "/events-mine", &events, asUser(other))
		require.Empty(t, events)
	})

	t.Run("UpdateByNonCreatorIsForbidden", func(t *testing.T) {
		requestBody := strings.NewReader(`{"title": "Hijacked"}`)
		client.Do(t, http.MethodPut, path, requestBody, http.StatusForbidden,
			asUser(other), inttest.WithHeader("Content-Type", "application/json"))
	})

	t.Run("Update", func(t *testing.T) {
		requestBody := strings.NewReader(`{"capacity": 12}`)

		var updated event.Response
		body := client.Do(t, http.MethodPut, path, requestBody, http.StatusOK,
			asUser(creator), inttest.WithHeader("Content-Type", "application/json"))
		require.NoError(t, json.Unmarshal(body, &updated))
		require.Equal(t, uint(12), updated.Capacity)
	})

	t.Run("UpdateCapacityBelowAttendanceIsRejected", func(t *testing.T) {
		third := &model.User{Email: "third@gatherly.io", Password: "irrelevant", Validated: true}
		require.NoError(t, db.Create(third).Error)
		require.NoError(t, db.Exec("INSERT INTO event_attendees (event_id, user_id) VALUES (?, ?)", created.ID, other.ID).Error)
		require.NoError(t, db.Exec("INSERT INTO event_attendees (event_id, user_id) VALUES (?, ?)", created.ID, third.ID).Error)

		requestBody := strings.NewReader(`{"capacity": 1}`)
		body := client.Do(t, http.MethodPut, path, requestBody, http.StatusBadRequest,
			asUser(creator), inttest.WithHeader("Content-Type", "application/json"))
		require.Contains(t, string(body), "below the current attendance")

		var found event.Response
		client.GetJSON(t, path, &found)
		require.Equal(t, uint(12), found.Capacity, "a rejected shrink must leave the capacity untouched")
	})

	t.Run("DeleteByNonCreatorIsForbidden", func(t *testing.T) {
		client.Do(t, http.MethodDelete, path, nil, http.StatusForbidden, asUser(other))
	})

	t.Run("Delete", func(t *testing.T) {
		client.Delete(t, path, asUser(creator))

		var events []event.Response
		client.GetJSON(t, "/events", &events)
		require.Empty(t, events, "deleted events should disappear from listings")

		client.Do(t, http.MethodGet, path, nil, http.StatusNotFound)
		client.Do(t, http.MethodGet, "/events/slug/board-game-night", nil, http.StatusNotFound)
	})
}

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
