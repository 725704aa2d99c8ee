package notification

import (
	"encoding/json"
	"fmt"

	"github.com/go-mail/mail"
)

type consumer interface {
	Consume(handler func(body []byte) error) error
}

type dailer interface {
	DialAndSend(m ...*mail.Message) error
}

//goland:noinspection GoExportedFuncWithUnexportedType
func NewEmailConsumer(consumer consumer, dailer dailer) *emailConsumer {
	return &emailConsumer{consumer, dailer}
}

// emailConsumer turns rsvp messages into confirmation emails for the acting user.
type emailConsumer struct {
	consumer consumer
	dailer   dailer
}

func (c emailConsumer) Consume() error {
	return c.consumer.Consume(c.handle)
}

func (c emailConsumer) handle(body []byte) error {
	var message Message
	if err := json.Unmarshal(body, &message); err != nil {
		return fmt.Errorf("failed to unmarshal rsvp message: %v", err)
	}

	m := mail.NewMessage()
	m.SetHeader("From", "Gatherly <no-reply@gatherly.io>")
	m.SetHeader("To", message.Email)

	switch message.Kind {
	case KindJoined:
		m.SetHeader("Subject", fmt.Sprintf("You're going to %s", message.EventTitle))
		m.SetBody("text/html", fmt.Sprintf(
			"Your spot at <b>%s</b> on %s is confirmed.<br/>%d spots remain.",
			message.EventTitle, message.ScheduledAt.Format("Monday, 2 January 2006 15:04"), message.SpotsRemaining))
	case KindLeft:
		m.SetHeader("Subject", fmt.Sprintf("You left %s", message.EventTitle))
		m.SetBody("text/html", fmt.Sprintf(
			"You gave up your spot at <b>%s</b>. We hope to see you another time.", message.EventTitle))
	default:
		return fmt.Errorf("unknown rsvp message kind %q", message.Kind)
	}

	return c.dailer.DialAndSend(m)
}
