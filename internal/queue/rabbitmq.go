package queue

import (
	"context"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RabbitPublisher publishes ticket events to the durable ticket.issued
// queue through the default exchange.  Each publish dials its own
// connection; the broker being down only costs the event, never the
// purchase.
type RabbitPublisher struct {
	url   string
	queue string
	log   logrus.FieldLogger
}

func NewRabbitPublisher(url string, log logrus.FieldLogger) *RabbitPublisher {
	return &RabbitPublisher{url: url, queue: TicketIssuedQueue, log: log}
}

// PublishTicketIssued sends ev as a persistent JSON message.  Errors are
// logged and returned so the caller can choose to ignore them.
func (p *RabbitPublisher) PublishTicketIssued(ctx context.Context, ev TicketIssuedEvent) error {
	log := p.log.WithFields(logrus.Fields{"queue": p.queue, "ticket_id": ev.TicketID})

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      dialContext(ctx),
	})
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := encode(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error { return nil }

// dialContext bounds the TCP connect and the AMQP handshake by ctx.
func dialContext(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if deadline, ok := ctx.Deadline(); ok {
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		return conn, nil
	}
}
