package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"habitrack/pkg/config"
)

const (
	ExchangeName = "events"

	defaultHeartbeat = 10 * time.Second
)

// NewConnection dials the broker. name shows up as the connection name in
// the RabbitMQ management UI.
func NewConnection(cfg config.MQConfig, name string) (*amqp091.Connection, error) {
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName(name)

	conn, err := amqp091.DialConfig(cfg.URL, amqp091.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// openChannel dials, opens a channel and declares the events and DLQ
// exchanges. On error nothing is left open.
func openChannel(cfg config.MQConfig, name string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := NewConnection(cfg, name)
	if err != nil {
		return nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}
	return conn, ch, nil
}

// DeclareExchange declares the durable topic exchange every event goes to.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil)
}
