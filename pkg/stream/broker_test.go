package stream

import (
	"testing"

	"github.com/gatherly/gatherly/pkg/rsvp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_BroadcastReachesAllSubscribersOfTheEvent(t *testing.T) {
	broker := NewBroker()
	_, first := broker.Subscribe(1)
	_, second := broker.Subscribe(1)
	_, other := broker.Subscribe(2)

	broker.BroadcastAttendance(1, rsvp.StatusJoined, 3, 7)

	want := Update{Status: rsvp.StatusJoined, AttendeeCount: 3, SpotsRemaining: 7}
	assert.Equal(t, want, <-first)
	assert.Equal(t, want, <-second)
	select {
	case update := <-other:
		t.Fatalf("subscriber of another event received %+v", update)
	default:
	}
}

func TestBroker_Unsubscribe(t *testing.T) {
	broker := NewBroker()
	id, updates := broker.Subscribe(1)
	require.Equal(t, 1, broker.SubscriberCount(1))

	broker.Unsubscribe(1, id)

	assert.Equal(t, 0, broker.SubscriberCount(1))
	_, open := <-updates
	assert.False(t, open, "channel should be closed after unsubscribe")

	// unsubscribing twice must not panic
	broker.Unsubscribe(1, id)
}

func TestBroker_SlowSubscriberMissesUpdatesInsteadOfBlocking(t *testing.T) {
	broker := NewBroker()
	_, updates := broker.Subscribe(1)

	for i := range 20 {
		broker.BroadcastAttendance(1, rsvp.StatusJoined, i+1, uint(20-i-1))
	}

	received := 0
	for range len(updates) {
		<-updates
		received++
	}
	assert.Equal(t, 16, received, "buffer size bounds what a stalled subscriber can queue")
}
