// Package handler содержит HTTP обработчики сервиса чекаута.
package handler

import (
	"context"

	"example.com/restaurant-checkout/internal/domain"
	"example.com/restaurant-checkout/internal/fulfillment"
)

// Fulfiller — интерфейс Completion Processor-а.
// Позволяет мокировать обработку заказа в тестах.
type Fulfiller interface {
	// Process обрабатывает Checkout сессию по её ID у провайдера.
	Process(ctx context.Context, checkoutID string) (*fulfillment.Outcome, error)
}

// FulfillmentArchive — интерфейс чтения архива обработок.
type FulfillmentArchive interface {
	// GetByCheckoutID возвращает запись архива по ID Checkout сессии.
	GetByCheckoutID(ctx context.Context, checkoutID string) (*domain.Fulfillment, error)
}
