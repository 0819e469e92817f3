package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded event.  A returned error rejects the
// message without requeueing it.
type Handler func(ctx context.Context, ev TicketBookedEvent) error

// Consumer drains the ticket.booked queue.
type Consumer struct {
    url     string
    handler Handler
    log     *slog.Logger
}

// NewConsumer builds a Consumer that hands every event to h.
func NewConsumer(url string, h Handler, log *slog.Logger) *Consumer {
    if log == nil {
        log = slog.Default()
    }
    return &Consumer{url: url, handler: h, log: log}
}

// Run connects to the broker and consumes until ctx is cancelled.  Broker
// failures are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("ticket-consumer: dial failed", "error", err, "retry_in", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("ticket-consumer: consume loop ended, reconnecting", "error", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(10, 0, false); err != nil {
        c.log.Warn("ticket-consumer: set QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(TicketBookedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(TicketBookedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.Handle(ctx, d.Body); err != nil {
                c.log.Error("ticket-consumer: handle message failed", "error", err, "message_id", d.MessageId)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes body and runs the handler on it.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
    var ev TicketBookedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.TicketID == 0 {
        return errors.New("event without ticket_id")
    }
    return c.handler(ctx, ev)
}
