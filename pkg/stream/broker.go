package stream

import (
	"sync"

	"github.com/gatherly/gatherly/pkg/rsvp"
)

// Update is one attendance change on an event's live feed.
type Update struct {
	Status         rsvp.Status `json:"status"`
	AttendeeCount  int         `json:"attendeeCount"`
	SpotsRemaining uint        `json:"spotsRemaining"`
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[uint]map[uint64]chan Update),
	}
}

// Broker fans attendance updates out to the subscribers of each event's feed.
type Broker struct {
	lock         sync.Mutex
	subscribers  map[uint]map[uint64]chan Update
	subscriberId uint64
}

func (b *Broker) Subscribe(eventId uint) (uint64, <-chan Update) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.subscribers[eventId] == nil {
		b.subscribers[eventId] = make(map[uint64]chan Update)
	}

	b.subscriberId++
	id := b.subscriberId
	channel := make(chan Update, 16)
	b.subscribers[eventId][id] = channel
	return id, channel
}

func (b *Broker) Unsubscribe(eventId uint, id uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	subscribers, ok := b.subscribers[eventId]
	if !ok {
		return
	}
	if channel, ok := subscribers[id]; ok {
		close(channel)
		delete(subscribers, id)
	}
	if len(subscribers) == 0 {
		delete(b.subscribers, eventId)
	}
}

func (b *Broker) SubscriberCount(eventId uint) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.subscribers[eventId])
}

// BroadcastAttendance delivers an update to every subscriber of the event's feed.
// Subscribers that can't keep up miss updates rather than block the sender.
func (b *Broker) BroadcastAttendance(eventId uint, status rsvp.Status, attendeeCount int, spotsRemaining uint) {
	b.lock.Lock()
	defer b.lock.Unlock()

	update := Update{
		Status:         status,
		AttendeeCount:  attendeeCount,
		SpotsRemaining: spotsRemaining,
	}
	for _, channel := range b.subscribers[eventId] {
		select {
		case channel <- update:
		default:
		}
	}
}
