package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/seatrips/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name("seatrips-gateway"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	msg := nats.NewMsg(subject)
	msg.Data = payload
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		msg.Header.Set("X-Request-ID", requestID)
	}
	return n.conn.PublishMsg(msg)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(toMessage(msg))
	})
	return err
}

func toMessage(msg *nats.Msg) *Message {
	id := msg.Header.Get("X-Request-ID")
	if id == "" {
		id = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: time.Now(),
		ID:        id,
	}
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

// NoopBus is used when NATS is disabled. Publish only logs at debug level.
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "Event dropped, bus disabled", "subject", subject)
	return nil
}

func (NoopBus) Subscribe(subject string, handler func(msg *Message)) error { return nil }

func (NoopBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	return nil
}

func (NoopBus) Close() error { return nil }

// PublishAsync fires an event without making the caller wait or fail.
// Errors are logged.
func PublishAsync(ctx context.Context, p Publisher, subject string, data interface{}) {
	if p == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := p.Publish(ctx, subject, data); err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
		}
	}()
}

const (
	// Booking events
	BookingSubmitted  = "booking.submitted"
	BookingRedirected = "booking.redirected"
	BookingFailed     = "booking.failed"

	// Promo events
	PromoPreviewed = "promo.previewed"

	// Auth events
	LoginSucceeded = "auth.login.succeeded"
	LoginFailed    = "auth.login.failed"
	LoginLocked    = "auth.login.locked"
	SessionCleared = "session.cleared"
)

type BookingSubmittedEvent struct {
	BookingID      int64     `json:"booking_id"`
	TripID         int64     `json:"trip_id"`
	Outcome        string    `json:"outcome"`
	NumberOfPeople int       `json:"number_of_people"`
	UserID         int64     `json:"user_id,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

type BookingFailedEvent struct {
	TripID   int64     `json:"trip_id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

type PromoPreviewedEvent struct {
	TripID         int64  `json:"trip_id"`
	NumberOfPeople int    `json:"number_of_people"`
	Code           string `json:"code"`
	TotalPrice     string `json:"total_price"`
}

type LoginEvent struct {
	SessionID string    `json:"session_id"`
	Email     string    `json:"email"`
	Remaining int       `json:"remaining,omitempty"`
	BlockedAt time.Time `json:"blocked_at,omitempty"`
}

type SessionClearedEvent struct {
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	ClearedAt time.Time `json:"cleared_at"`
}
