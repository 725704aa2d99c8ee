package notification

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-mail/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailConsumer_SendsConfirmationOnJoin(t *testing.T) {
	dailer := &fakeDailer{}
	c := NewEmailConsumer(&fakeConsumer{}, dailer)
	message := Message{
		Kind:           KindJoined,
		EventID:        1,
		EventTitle:     "Friday Jam",
		ScheduledAt:    time.Date(2026, 9, 4, 19, 0, 0, 0, time.UTC),
		Email:          "drummer@gatherly.io",
		SpotsRemaining: 3,
	}
	body, err := json.Marshal(message)
	require.NoError(t, err)

	err = c.handle(body)

	require.NoError(t, err)
	require.Len(t, dailer.sent, 1)
	assert.Equal(t, []string{"drummer@gatherly.io"}, dailer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"You're going to Friday Jam"}, dailer.sent[0].GetHeader("Subject"))
}

func TestEmailConsumer_SendsGoodbyeOnLeave(t *testing.T) {
	dailer := &fakeDailer{}
	c := NewEmailConsumer(&fakeConsumer{}, dailer)
	body, err := json.Marshal(Message{Kind: KindLeft, EventTitle: "Friday Jam", Email: "drummer@gatherly.io"})
	require.NoError(t, err)

	err = c.handle(body)

	require.NoError(t, err)
	require.Len(t, dailer.sent, 1)
	assert.Equal(t, []string{"You left Friday Jam"}, dailer.sent[0].GetHeader("Subject"))
}

func TestEmailConsumer_RejectsMalformedMessages(t *testing.T) {
	dailer := &fakeDailer{}
	c := NewEmailConsumer(&fakeConsumer{}, dailer)

	require.Error(t, c.handle([]byte("not json")))

	body, err := json.Marshal(Message{Kind: "rsvp.unknown", Email: "drummer@gatherly.io"})
	require.NoError(t, err)
	require.Error(t, c.handle(body))
	assert.Empty(t, dailer.sent)
}

type fakeConsumer struct{}

func (f *fakeConsumer) Consume(handler func(body []byte) error) error {
	return nil
}

type fakeDailer struct {
	sent []*mail.Message
}

func (f *fakeDailer) DialAndSend(m ...*mail.Message) error {
	f.sent = append(f.sent, m...)
	return nil
}
