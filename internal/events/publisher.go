// Package events публикует события о результатах обработки заказов в Kafka.
// Consumer-ы (кухонные экраны, аналитика) получают итог fan-out-а, не
// опрашивая провайдера. Публикация best-effort: сбой Kafka не влияет на
// результат обработки сессии.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/restaurant-checkout/internal/domain"
	"example.com/restaurant-checkout/pkg/logger"
)

// EventOrderFulfilled — тип события успешной обработки заказа.
const EventOrderFulfilled = "order.fulfilled"

// EventOrderFailed — тип события сбоя обработки.
const EventOrderFailed = "order.fulfillment_failed"

// FulfillmentEvent — payload события обработки заказа.
type FulfillmentEvent struct {
	Type           string   `json:"type"`
	CheckoutID     string   `json:"checkout_id"`
	OrderSessionID string   `json:"order_session_id"`
	CustomerName   string   `json:"customer_name"`
	TotalAmount    int64    `json:"total_amount"`
	FailedSinks    []string `json:"failed_sinks,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
	OccurredAt     string   `json:"occurred_at"`
}

// messageWriter абстрагирует kafka.Writer для тестирования.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher отправляет события обработки в Kafka.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher создаёт Publisher для указанных брокеров и топика.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("не указаны брокеры Kafka")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne, // Ждём подтверждения от лидера
		Async:        false,
	}

	logger.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Msg("Создан Kafka Publisher событий обработки")

	return &Publisher{writer: writer, topic: topic}, nil
}

// Publish отправляет событие по результату обработки сессии.
// Ключ сообщения — checkout_id: события одной сессии попадают в одну
// партицию и читаются по порядку.
func (p *Publisher) Publish(ctx context.Context, f *domain.Fulfillment) error {
	event := FulfillmentEvent{
		Type:           EventOrderFulfilled,
		CheckoutID:     f.CheckoutID,
		OrderSessionID: f.OrderSessionID,
		CustomerName:   f.CustomerName,
		TotalAmount:    f.TotalAmount,
		FailedSinks:    f.FailedSinks,
		ErrorMessage:   f.ErrorMessage,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	if f.Status == domain.FulfillmentFailed {
		event.Type = EventOrderFailed
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(f.CheckoutID),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("checkout_id", f.CheckoutID).
			Msg("Ошибка публикации события обработки в Kafka")
		return fmt.Errorf("ошибка отправки в Kafka: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("checkout_id", f.CheckoutID).
		Str("event_type", event.Type).
		Msg("Событие обработки опубликовано в Kafka")

	return nil
}

// Close закрывает соединение с Kafka.
func (p *Publisher) Close() error {
	if w, ok := p.writer.(*kafka.Writer); ok {
		return w.Close()
	}
	return nil
}
