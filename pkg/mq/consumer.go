package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"habitrack/pkg/config"
	"habitrack/pkg/metrics"
	"habitrack/pkg/trace"
	"habitrack/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// RetryCounter counts delivery attempts per message.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DeadLetterPublisher parks messages that will never succeed.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError string) error
}

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger

	retries    RetryCounter
	dlq        DeadLetterPublisher
	maxRetries int64

	stopOnce sync.Once
	done     chan struct{}
}

// NewConsumer creates a consumer for a specific routing key.
func NewConsumer(cfg config.MQConfig, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, ch, err := openChannel(cfg, "habitrack-consumer-"+queueName)
	if err != nil {
		return nil, err
	}

	if _, err := DeclareDLQQueue(ch, routingKey); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
		maxRetries: 3,
		done:       make(chan struct{}),
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// SetDeadLetter enables bounded retries: a failing message is requeued until
// maxRetries attempts, then published to the DLQ exchange and acked.
func (c *Consumer) SetDeadLetter(retries RetryCounter, dlq DeadLetterPublisher, maxRetries int64) {
	c.retries = retries
	c.dlq = dlq
	if maxRetries > 0 {
		c.maxRetries = maxRetries
	}
}

// IsConnected checks if the consumer connection is still alive
func (c *Consumer) IsConnected() bool {
	if c.conn == nil || c.channel == nil {
		return false
	}
	return !c.conn.IsClosed()
}

// Stop closes the channel, which ends StartConsuming.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.Close()
	})
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming starts consuming messages. This method blocks and should be called in a goroutine.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"",
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-c.done:
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.process(msg)
		}
	}
}

// deliveryAction is what happens to a message after the handler ran.
type deliveryAction int

const (
	actionAck deliveryAction = iota
	actionRequeue
	actionDeadLetter
)

// decide maps a handler result to a delivery action. attempts is the number
// of times this message has been handled, including the current one.
func decide(err error, attempts, maxRetries int64, deadLetter bool) deliveryAction {
	if err == nil {
		return actionAck
	}
	if !deadLetter {
		// 没有 DLQ：业务失败 → 重新入队
		return actionRequeue
	}
	retryable, _ := util.IsRetryableError(err)
	if util.ShouldRetry(attempts, maxRetries, retryable) {
		return actionRequeue
	}
	return actionDeadLetter
}

func (c *Consumer) messageContext(msg amqp091.Delivery) context.Context {
	ctx := context.Background()
	if v, ok := msg.Headers[TraceHeader].(string); ok && v != "" {
		return trace.WithContext(ctx, v)
	}
	return trace.WithContext(ctx, trace.GenerateTraceID())
}

// 保证每条消息都会被 ack 或 nack
func (c *Consumer) process(msg amqp091.Delivery) {
	start := time.Now()
	ctx := c.messageContext(msg)
	log := c.logger.With(
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
		zap.String("message_id", msg.MessageId),
		zap.String("trace_id", trace.FromContext(ctx)),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panic recovered", zap.Any("panic", r))
			// Panic → 拒绝消息并重新入队
			if err := msg.Nack(false, true); err != nil {
				log.Error("Failed to nack message after panic", zap.Error(err))
			}
		}
		metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))
	}()

	log.Debug("Received message", zap.Int("message_size", len(msg.Body)))

	handleErr := c.handler(ctx, msg.Body)

	var attempts int64 = 1
	retryKey := ""
	if c.retries != nil && msg.MessageId != "" {
		retryKey = util.FormatRetryKey(c.queue.Name, msg.MessageId)
		if handleErr != nil {
			if n, err := c.retries.IncrementAndGet(ctx, retryKey); err == nil {
				attempts = n
			} else {
				log.Warn("Failed to increment retry count", zap.Error(err))
			}
		}
	}

	switch decide(handleErr, attempts, c.maxRetries, c.dlq != nil) {
	case actionAck:
		if retryKey != "" {
			_ = c.retries.Reset(ctx, retryKey)
		}
		if err := msg.Ack(false); err != nil {
			log.Error("Failed to ack message", zap.Error(err))
			return
		}
		log.Debug("Message processed successfully")

	case actionRequeue:
		log.Error("Handler error, requeueing",
			zap.Int64("attempts", attempts),
			zap.Error(handleErr),
		)
		if err := msg.Nack(false, true); err != nil {
			log.Error("Failed to nack message", zap.Error(err))
		}

	case actionDeadLetter:
		_, errType := util.IsRetryableError(handleErr)
		log.Error("Handler error, sending to DLQ",
			zap.Int64("attempts", attempts),
			zap.String("error_type", errType),
			zap.Error(handleErr),
		)
		if err := c.dlq.PublishToDLQ(ctx, c.routingKey, msg.Body, handleErr.Error()); err != nil {
			log.Error("Failed to publish to DLQ", zap.Error(err))
			if err := msg.Nack(false, true); err != nil {
				log.Error("Failed to nack message", zap.Error(err))
			}
			return
		}
		if retryKey != "" {
			_ = c.retries.Reset(ctx, retryKey)
		}
		if err := msg.Ack(false); err != nil {
			log.Error("Failed to ack message", zap.Error(err))
		}
	}
}
