package domain

import "time"

// FulfillmentStatus — итог обработки одной Checkout сессии.
type FulfillmentStatus string

const (
	// FulfillmentCompleted — fan-out выполнен (возможно с частичными
	// сбоями notify/invoice, они перечислены в FailedSinks).
	FulfillmentCompleted FulfillmentStatus = "COMPLETED"

	// FulfillmentFailed — обработка завершилась ошибкой, сессия помечена
	// processed="error" и может быть обработана повторно.
	FulfillmentFailed FulfillmentStatus = "FAILED"
)

// CompletedOrder — оплаченный заказ, восстановленный из метаданных сессии.
// TotalPrice рассчитывается из amount_total провайдера (authoritative),
// а не из суммы, присланной клиентом при создании чекаута.
type CompletedOrder struct {
	CheckoutID     string      // ID Checkout сессии провайдера
	OrderSessionID string      // Корреляционный ID заказа из фронтенда
	CustomerName   string      // Имя клиента из метаданных
	CustomerNumber string      // Телефон клиента из метаданных
	TotalPrice     float64     // Сумма в основных единицах валюты
	Items          []OrderItem // Нормализованные позиции заказа
}

// Fulfillment — локальная запись о результате обработки сессии.
// Хранится в архиве (MySQL) по одной записи на checkout_id: Stripe остаётся
// источником истины по платежу, архив — аудит fan-out-а на нашей стороне.
type Fulfillment struct {
	ID             string            // Уникальный идентификатор записи (UUID)
	CheckoutID     string            // ID Stripe Checkout сессии (уникален в архиве)
	OrderSessionID string            // Корреляционный ID заказа из фронтенда
	CustomerName   string            // Имя клиента на момент обработки
	CustomerNumber string            // Телефон клиента на момент обработки
	TotalAmount    int64             // Сумма в минимальных единицах валюты (из amount_total)
	Status         FulfillmentStatus // Итог обработки
	FailedSinks    []string          // Имена sink-ов, завершившихся ошибкой
	ErrorMessage   string            // Сообщение об ошибке при Status=FAILED
	CreatedAt      time.Time         // Дата первой обработки
	UpdatedAt      time.Time         // Дата последнего обновления (повторная обработка)
}
