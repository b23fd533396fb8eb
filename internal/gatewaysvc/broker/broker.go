package broker

import (
	"encoding/json"

	"github.com/avvvet/timeline-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Conn is the part of *nats.Conn the broker uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Broker publishes record events to NATS so that every gateway instance, and
// any other consumer, sees writes made through any instance.
type Broker struct {
	Conn    Conn
	Subject string
}

func NewBroker(nc Conn, subject string) *Broker {
	return &Broker{
		Conn:    nc,
		Subject: subject,
	}
}

// Notify implements comm.Notifier. Publish failures are logged, the write
// that produced the event has already succeeded.
func (b *Broker) Notify(event comm.RecordEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Error marshal record event %s: %s", event.ID, err)
		return
	}

	if err := b.Conn.Publish(b.Subject, payload); err != nil {
		log.Errorf("Error publishing to topic %s: %s", b.Subject, err)
	}
}

// Subscribe delivers every event published on the subject to fn.
func (b *Broker) Subscribe(fn func(comm.RecordEvent)) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(b.Subject, b.handleMessage(fn))
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessage(fn func(comm.RecordEvent)) nats.MsgHandler {
	return func(msg *nats.Msg) {
		event := comm.RecordEvent{}
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.Errorf("Error nats message %s", err)
			return
		}
		fn(event)
	}
}
