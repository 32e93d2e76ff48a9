package fulfilment

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection owns the broker connection and the publishing channel.
type Connection struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to url and declares exchange as a durable direct exchange.
func Dial(url, exchange string) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &Connection{conn: conn, ch: ch}, nil
}

// Channel returns the publishing channel.
func (c *Connection) Channel() *amqp.Channel {
	return c.ch
}

// HealthCheck fails when the connection or channel was closed.
func (c *Connection) HealthCheck(context.Context) error {
	if c == nil || c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	if c.ch.IsClosed() {
		return errors.New("rabbitmq channel is closed")
	}
	return nil
}

// Shutdown closes the channel and the connection.
func (c *Connection) Shutdown(context.Context) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return errors.Join(c.ch.Close(), c.conn.Close())
}
