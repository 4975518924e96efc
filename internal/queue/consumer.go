package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer listens to the booking.confirmed and ticket.cancelled queues
// and appends one line per message to <LogDir>/booking.log.
type Consumer struct {
	url    string
	logDir string
	logger echo.Logger

	mu sync.Mutex // serializes appends to the log file
}

// NewConsumer returns a Consumer for the broker at url.
func NewConsumer(url, logDir string, logger echo.Logger) *Consumer {
	if logDir == "" {
		logDir = "logs"
	}
	return &Consumer{url: url, logDir: logDir, logger: logger}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warnf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warnf("booking-consumer: consume loop ended: %v; reconnecting", err)
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

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warnf("booking-consumer: set QoS failed: %v", err)
	}

	names := []string{BookingConfirmedQueue, TicketCancelledQueue}
	sources := make([]<-chan amqp.Delivery, 0, len(names))
	for _, name := range names {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.ConsumeWithContext(ctx, name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		sources = append(sources, msgs)
	}

	merged := fanIn(ctx, sources...)
	for d := range merged {
		if err := c.Handle(d.RoutingKey, d.Body); err != nil {
			c.logger.Errorf("booking-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // do not requeue, avoids tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// fanIn forwards every source into one channel.  The channel closes
// once all sources are drained or ctx is done.
func fanIn(ctx context.Context, sources ...<-chan amqp.Delivery) <-chan amqp.Delivery {
	out := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src <-chan amqp.Delivery) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-src:
					if !ok {
						return
					}
					select {
					case out <- d:
					case <-ctx.Done():
						return
					}
				}
			}
		}(src)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Handle formats one message from the named queue and appends it to the
// log file.
func (c *Consumer) Handle(queue string, body []byte) error {
	line, err := FormatLine(queue, body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders a single human readable log line for a message.
func FormatLine(queue string, body []byte) (string, error) {
	switch queue {
	case BookingConfirmedQueue:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		ids := make([]string, 0, len(ev.TicketIDs))
		for _, id := range ev.TicketIDs {
			ids = append(ids, fmt.Sprint(id))
		}
		return fmt.Sprintf("[%s] Booking confirmed | order_id=%d | user_id=%d | event_id=%d | type=%q | quantity=%d | unit=%s | total=%s | tickets=[%s]\n",
			ev.ConfirmedAt, ev.OrderID, ev.UserID, ev.EventID, ev.TicketType, ev.Quantity, ev.UnitPrice, ev.TotalPrice, strings.Join(ids, ",")), nil
	case TicketCancelledQueue:
		var ev TicketCancelledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Ticket cancelled | ticket_id=%d | order_id=%d | event_id=%d | type=%q | actor_id=%d | mode=%s | order_deleted=%t | order_total=%s | restocked=%t\n",
			ev.CancelledAt, ev.TicketID, ev.OrderID, ev.EventID, ev.TicketType, ev.ActorID, ev.Mode, ev.OrderDeleted, ev.OrderTotal, ev.Restocked), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
