// Package provider содержит клиент платёжного провайдера (Stripe).
// Интерфейс Client позволяет мокировать провайдера в тестах: ядро сервиса
// не зависит от типов Stripe SDK.
package provider

import (
	"context"

	"example.com/restaurant-checkout/internal/domain"
)

// PaymentStatusPaid — статус оплаченной Checkout сессии у провайдера.
const PaymentStatusPaid = "paid"

// EventCheckoutCompleted — единственный тип webhook события, запускающий
// обработку заказа. Остальные события подтверждаются без действий.
const EventCheckoutCompleted = "checkout.session.completed"

// Session — проекция Checkout сессии провайдера.
// Метаданные сессии — единственное durable состояние сервиса.
type Session struct {
	ID            string            // Идентификатор сессии, назначается провайдером
	URL           string            // Ссылка на hosted checkout страницу
	AmountTotal   int64             // Итоговая сумма в минимальных единицах валюты
	Currency      string            // Валюта сессии (ISO 4217, нижний регистр)
	PaymentStatus string            // Статус оплаты ("paid", "unpaid", ...)
	Metadata      map[string]string // Метаданные: заказ, клиент, processed-флаг
}

// Paid возвращает true, если сессия оплачена.
func (s *Session) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// Processed возвращает состояние обработки из метаданных.
func (s *Session) Processed() domain.ProcessedState {
	return domain.ProcessedState(s.Metadata[domain.MetaProcessed])
}

// CreateSessionInput — параметры создания Checkout сессии.
type CreateSessionInput struct {
	AmountMinor int64             // Сумма в минимальных единицах валюты
	Currency    string            // Валюта чекаута
	ProductName string            // Название позиции на hosted странице
	SuccessURL  string            // Редирект после успешной оплаты
	CancelURL   string            // Редирект при отмене
	Metadata    map[string]string // Метаданные сессии (включая processed="false")
}

// Event — верифицированное webhook событие провайдера.
type Event struct {
	Type      string // Тип события (например "checkout.session.completed")
	SessionID string // ID Checkout сессии для checkout-событий
}

// Client определяет интерфейс платёжного провайдера.
type Client interface {
	// CreateSession создаёт Checkout сессию у провайдера.
	CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error)

	// GetSession загружает актуальное состояние сессии.
	// Completion Processor всегда читает сессию заново — провайдер
	// является единственным источником истины.
	GetSession(ctx context.Context, id string) (*Session, error)

	// UpdateSessionMetadata записывает метаданные сессии.
	// Провайдер мержит переданные ключи с существующими.
	UpdateSessionMetadata(ctx context.Context, id string, metadata map[string]string) error

	// ParseWebhookEvent проверяет подпись webhook-а и разбирает событие.
	// При неверной подписи возвращает ошибку, не доверяя содержимому body.
	ParseWebhookEvent(payload []byte, signature string) (*Event, error)
}
