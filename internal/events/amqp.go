package events

import (
	"context"
	"fmt"
	"time"

	"gigboard_backend/internal/logger"
	"gigboard_backend/internal/models"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel - часть *amqp.Channel, которой пользуется форвардер
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPForwarder пересылает доменные события в topic-exchange RabbitMQ.
// Routing key = тип события (gig.created, showcase.approved, ...).
type AMQPForwarder struct {
	ch       amqpChannel
	exchange string
}

// NewAMQPForwarder открывает канал и объявляет durable topic-exchange
func NewAMQPForwarder(conn *amqp.Connection, exchange string) (*AMQPForwarder, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	return newAMQPForwarder(ch, exchange)
}

func newAMQPForwarder(ch amqpChannel, exchange string) (*AMQPForwarder, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPForwarder{ch: ch, exchange: exchange}, nil
}

// Attach подписывает форвардер на все события шины
func (f *AMQPForwarder) Attach(bus Bus) string {
	return bus.Subscribe(AllEvents, f.Handle)
}

func (f *AMQPForwarder) Handle(ctx context.Context, evt models.DomainEvent) error {
	body, err := sonic.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", evt.ID, err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Type:         string(evt.EventType),
		Timestamp:    time.Now(),
		Body:         body,
		Headers:      amqp.Table{"aggregate_id": evt.AggregateID},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = f.ch.PublishWithContext(ctx, f.exchange, string(evt.EventType), false, false, publishing)
	logger.WorkerLog("amqp_forwarder", string(evt.EventType), err)
	return err
}

func (f *AMQPForwarder) Close() error {
	return f.ch.Close()
}
