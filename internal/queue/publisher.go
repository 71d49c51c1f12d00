package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher keeps one broker connection for the life of the process and
// redials lazily when the broker drops it.  It is safe for concurrent use.
type Publisher struct {
    url  string
    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher dials the broker and declares the enrollment queue.
func NewPublisher(url string) (*Publisher, error) {
    p := &Publisher{url: url}
    p.mu.Lock()
    defer p.mu.Unlock()
    if err := p.connectLocked(); err != nil {
        return nil, err
    }
    return p, nil
}

func (p *Publisher) connectLocked() error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return fmt.Errorf("dial broker: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return fmt.Errorf("channel open: %w", err)
    }
    // durable so messages survive broker restarts
    if _, err := ch.QueueDeclare(EnrollmentQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return fmt.Errorf("queue declare: %w", err)
    }
    p.conn, p.ch = conn, ch
    return nil
}

// PublishEnrollmentSettled publishes ev as a persistent JSON message on the
// enrollment queue.
func (p *Publisher) PublishEnrollmentSettled(ctx context.Context, ev EnrollmentSettledEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
        if err := p.connectLocked(); err != nil {
            return err
        }
    }
    return p.ch.PublishWithContext(ctx,
        "",              // default exchange
        EnrollmentQueue, // routing key = queue name
        false,           // mandatory
        false,           // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            MessageId:    uuid.NewString(),
            Timestamp:    time.Now().UTC(),
            Body:         body,
        })
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil && !p.conn.IsClosed() {
        return p.conn.Close()
    }
    return nil
}
