// Package notify publishes post-commit order events to RabbitMQ. Publishing
// is best-effort: the order is already committed when an event is emitted,
// so a broker failure is reported to the caller for logging, never for
// rollback.
package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/volna/booking-api/internal/domain/order"
)

// Queue names. Routing goes through the default exchange, so the routing
// key is the queue name.
const (
	QueueOrderSettled     = "order.settled"
	QueueRetirementBooked = "retirement.booked"
)

var _ order.Events = (*Publisher)(nil)

// Publisher implements order.Events on top of a long-lived AMQP connection.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials the broker and declares both event queues as durable.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	for _, queue := range []string{QueueOrderSettled, QueueRetirementBooked} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, errors.Wrapf(err, "declare queue %q", queue)
		}
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return errors.Wrap(err, "close channel")
	}
	return p.conn.Close()
}

// OrderSettled publishes the settlement merge data to the order.settled
// queue.
func (p *Publisher) OrderSettled(ctx context.Context, ev order.SettledEvent) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(ev.OrderID) })
		e.Field("user_id", func(e *jx.Encoder) { e.Str(ev.UserID) })
		e.Field("customer_name", func(e *jx.Encoder) { e.Str(ev.CustomerName) })
		e.Field("customer_email", func(e *jx.Encoder) { e.Str(ev.CustomerEmail) })
		e.Field("authorization_id", func(e *jx.Encoder) { e.Str(ev.AuthorizationID) })
		e.Field("card_last_digits", func(e *jx.Encoder) { e.Str(ev.CardLastDigits) })
		e.Field("card_type", func(e *jx.Encoder) { e.Str(ev.CardType) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, item := range ev.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("name", func(e *jx.Encoder) { e.Str(item.Name) })
						e.Field("price", func(e *jx.Encoder) { e.Str(item.Price.StringFixed(2)) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { e.Str(ev.Subtotal.StringFixed(2)) })
		e.Field("tax", func(e *jx.Encoder) { e.Str(ev.Tax.StringFixed(2)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(ev.Total.StringFixed(2)) })
		e.Field("discount", func(e *jx.Encoder) { e.Str(ev.Discount.StringFixed(2)) })
		e.Field("coupon_code", func(e *jx.Encoder) { e.Str(ev.CouponCode) })
		e.Field("settled_at", func(e *jx.Encoder) { e.Str(ev.SettledAt.Format(time.RFC3339)) })
	})

	return p.publish(ctx, QueueOrderSettled, e.Bytes())
}

// RetirementBooked publishes one event per committed retirement reservation
// to the retirement.booked queue.
func (p *Publisher) RetirementBooked(ctx context.Context, ev order.RetirementBookedEvent) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("reservation_id", func(e *jx.Encoder) { e.Str(ev.ReservationID) })
		e.Field("user_id", func(e *jx.Encoder) { e.Str(ev.UserID) })
		e.Field("customer_name", func(e *jx.Encoder) { e.Str(ev.CustomerName) })
		e.Field("customer_email", func(e *jx.Encoder) { e.Str(ev.CustomerEmail) })
		e.Field("product_id", func(e *jx.Encoder) { e.Str(ev.ProductID) })
		e.Field("product_name", func(e *jx.Encoder) { e.Str(ev.ProductName) })
		e.Field("booked_at", func(e *jx.Encoder) { e.Str(ev.BookedAt.Format(time.RFC3339)) })
	})

	return p.publish(ctx, QueueRetirementBooked, e.Bytes())
}

func (p *Publisher) publish(ctx context.Context, queue string, body []byte) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return errors.Wrapf(err, "publish to %q", queue)
	}
	return nil
}
