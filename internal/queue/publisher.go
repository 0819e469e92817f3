package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends TicketBookedEvents to RabbitMQ.  It dials per publish;
// confirmations are rare compared to request traffic.
type Publisher struct {
    url string
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// TicketBooked publishes ev as a persistent message.  A missing EventID is
// filled in.
func (p *Publisher) TicketBooked(ctx context.Context, ev TicketBookedEvent) error {
    if ev.EventID == "" {
        ev.EventID = NewEventID()
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("rabbitmq dial: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("rabbitmq channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        TicketBookedQueue, // name
        true,              // durable
        false,             // autoDelete
        false,             // exclusive
        false,             // noWait
        nil,               // args
    ); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", TicketBookedQueue, false, false, pub); err != nil {
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}
