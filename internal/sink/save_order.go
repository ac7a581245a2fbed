package sink

import (
	"context"

	"example.com/restaurant-checkout/internal/domain"
)

// orderPayload — тело запроса sink-ов save_order и kitchen.
// Формат полей зафиксирован контрактом принимающих workflow.
type orderPayload struct {
	CustomerName   string             `json:"customer_name"`
	CustomerNumber string             `json:"customer_number"`
	TotalPrice     float64            `json:"total_price"`
	OrderItems     []domain.OrderItem `json:"order_items"`
	OrderText      string             `json:"order_text,omitempty"`
	SessionID      string             `json:"session_id"`
}

// SaveOrderSink сохраняет оплаченный заказ во внешней БД через webhook.
// Единственный обязательный sink: его сбой прерывает обработку сессии.
type SaveOrderSink struct {
	caller *caller
}

// NewSaveOrderSink создаёт sink сохранения заказа.
func NewSaveOrderSink(url string, cfg Config) *SaveOrderSink {
	return &SaveOrderSink{caller: newCaller(NameSaveOrder, url, cfg)}
}

// Save отправляет заказ в save_order endpoint.
func (s *SaveOrderSink) Save(ctx context.Context, order domain.CompletedOrder) error {
	return s.caller.post(ctx, orderPayload{
		CustomerName:   order.CustomerName,
		CustomerNumber: order.CustomerNumber,
		TotalPrice:     order.TotalPrice,
		OrderItems:     order.Items,
		SessionID:      order.OrderSessionID,
	})
}
