package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// brokerMessage тело сообщения в брокере. Routing key совпадает с типом события.
type brokerMessage struct {
	UserID uuid.UUID `json:"user_id"`
	Event
}

type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

// NewAMQPPublisher подключается к брокеру и объявляет topic-exchange для событий.
func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPPublisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Publish отправляет событие в exchange. Ошибка только логируется.
func (p *AMQPPublisher) Publish(ctx context.Context, userID uuid.UUID, event Event) {
	if err := p.publish(ctx, userID, event); err != nil {
		p.logger.ErrorContext(ctx, "amqp publish failed",
			slog.String("event", event.Type),
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, userID uuid.UUID, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	body, err := encodeBrokerMessage(userID, event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.channel.PublishWithContext(
		ctx,
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
			MessageId:    uuid.NewString(),
			Body:         body,
		},
	)
}

// Close закрывает канал и соединение с брокером.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func encodeBrokerMessage(userID uuid.UUID, event Event) ([]byte, error) {
	body, err := json.Marshal(brokerMessage{UserID: userID, Event: event})
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	return body, nil
}
